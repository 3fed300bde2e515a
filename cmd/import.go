package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vitals/internal/export"
	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/snapshot"
	"github.com/sells-group/vitals/internal/store"
)

var (
	importUserID      string
	importSnapshot    string
	importMetricsPath string
	importSheet       string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a YAML snapshot or a metrics CSV/XLSX file into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if importSnapshot == "" && importMetricsPath == "" {
			return eris.New("one of --snapshot or --metrics is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if importSnapshot != "" {
			f, err := snapshot.ReadFile(importSnapshot)
			if err != nil {
				return err
			}
			userID := importUserID
			if userID == "" {
				userID = f.UserID
			}
			if err := importFile(ctx, st, userID, f); err != nil {
				return err
			}
		}

		if importMetricsPath != "" {
			if importUserID == "" {
				return eris.New("--user is required with --metrics")
			}
			obs, err := readMetricsFile(importMetricsPath, importSheet)
			if err != nil {
				return err
			}
			n, err := st.ImportMetrics(ctx, importUserID, obs)
			if err != nil {
				return eris.Wrap(err, "import metrics")
			}
			zap.L().Info("metrics imported", zap.String("file", importMetricsPath), zap.Int64("rows", n))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importUserID, "user", "", "user id (defaults to the snapshot's user_id)")
	importCmd.Flags().StringVar(&importSnapshot, "snapshot", "", "YAML snapshot file")
	importCmd.Flags().StringVar(&importMetricsPath, "metrics", "", "metrics .csv or .xlsx file")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name for .xlsx metrics (default: first sheet)")
	rootCmd.AddCommand(importCmd)
}

// importFile writes the snapshot's metrics, habits, completions and personal
// goals. Habits keep the ids given in the file so completions still point
// at them.
func importFile(ctx context.Context, st store.Store, userID string, f *snapshot.File) error {
	if userID == "" {
		return eris.New("snapshot has no user_id and --user is not set")
	}
	log := zap.L().With(zap.String("user_id", userID))

	metrics, err := st.ImportMetrics(ctx, userID, f.Metrics)
	if err != nil {
		return eris.Wrap(err, "import metrics")
	}

	for _, h := range f.Habits {
		if _, err := st.CreateHabit(ctx, userID, h); err != nil {
			return eris.Wrapf(err, "create habit %s", h.Title)
		}
	}

	completions, err := st.ImportCompletions(ctx, userID, f.Completions)
	if err != nil {
		return eris.Wrap(err, "import completions")
	}

	for _, g := range f.Goals {
		if _, err := st.CreateGoal(ctx, userID, g); err != nil {
			return eris.Wrapf(err, "create goal %s", g.Title)
		}
	}

	log.Info("snapshot imported",
		zap.Int64("metrics", metrics),
		zap.Int("habits", len(f.Habits)),
		zap.Int64("completions", completions),
		zap.Int("goals", len(f.Goals)),
	)
	if len(f.ChallengeGoals) > 0 || len(f.Challenges) > 0 || f.Trainer != nil {
		log.Warn("snapshot social data is not stored; use --snapshot mode to include it")
	}
	return nil
}

func readMetricsFile(path, sheet string) ([]model.MetricObservation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return export.ReadMetricsXLSX(path, sheet)
	case ".csv":
		fh, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer fh.Close() //nolint:errcheck
		return export.ReadMetricsCSV(fh)
	default:
		return nil, eris.Errorf("unsupported metrics file %s (want .csv or .xlsx)", path)
	}
}
