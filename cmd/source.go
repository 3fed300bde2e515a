package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/snapshot"
)

// sourceFlags select where a command reads one user's data from: a YAML
// snapshot file or the configured store.
type sourceFlags struct {
	userID       string
	snapshotPath string
	prefsPath    string
	now          string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.userID, "user", "", "user id to read from the store")
	cmd.Flags().StringVar(&f.snapshotPath, "snapshot", "", "read data from a YAML snapshot instead of the store")
	cmd.Flags().StringVar(&f.prefsPath, "prefs", "", "YAML preferences file (snapshot mode)")
	cmd.Flags().StringVar(&f.now, "now", "", "evaluate as of this RFC3339 time (default: now)")
}

func (f *sourceFlags) clock() (time.Time, error) {
	if f.now == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, f.now)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse --now %q", f.now)
	}
	return t, nil
}

// loaded is one user's generator context plus stored preferences.
type loaded struct {
	gctx  *model.GeneratorContext
	prefs *model.InsightPreferences
}

// load assembles the generator context from the snapshot file or the store.
func (f *sourceFlags) load(ctx context.Context) (*loaded, error) {
	now, err := f.clock()
	if err != nil {
		return nil, err
	}

	if f.snapshotPath != "" {
		gctx, err := snapshot.LoadFile(f.snapshotPath, now)
		if err != nil {
			return nil, err
		}
		out := &loaded{gctx: gctx}
		if f.prefsPath != "" {
			prefs, err := snapshot.LoadPreferencesFile(f.prefsPath)
			if err != nil {
				return nil, err
			}
			out.prefs = prefs
		}
		return out, nil
	}

	if f.userID == "" {
		return nil, eris.New("either --user or --snapshot is required")
	}
	if now.IsZero() {
		now = time.Now()
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	gctx, err := snapshot.NewAssembler(st, cfg.Insights.HistoryDays, cfg.Habits.ConsistencyWindowDays).
		Assemble(ctx, f.userID, now)
	if err != nil {
		return nil, err
	}
	prefs, err := st.GetPreferences(ctx, f.userID)
	if err != nil {
		return nil, eris.Wrap(err, "load preferences")
	}

	zap.L().Debug("loaded user data from store", zap.String("user_id", f.userID))
	return &loaded{gctx: gctx, prefs: prefs}, nil
}

// optionFlags override the configured pipeline limits.
type optionFlags struct {
	max         int
	minPriority int
	sources     []string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.max, "max", 0, "maximum insights returned (default from config)")
	cmd.Flags().IntVar(&f.minPriority, "min-priority", -1, "minimum priority kept (default from config)")
	cmd.Flags().StringSliceVar(&f.sources, "sources", nil, "generators to run (default: all)")
}

func (f *optionFlags) options() insight.Options {
	return pipelineOptions(f.max, f.minPriority, f.sources)
}

// pipelineOptions layers non-zero overrides over the configured limits.
func pipelineOptions(maxInsights, minPriority int, sources []string) insight.Options {
	opts := insight.DefaultOptions()
	if cfg != nil {
		opts.MaxInsights = cfg.Insights.MaxInsights
		opts.MinPriority = insight.Priority(cfg.Insights.MinPriority)
		opts.EnabledSources = cfg.Insights.EnabledSources
	}
	if maxInsights > 0 {
		opts.MaxInsights = maxInsights
	}
	if minPriority >= 0 {
		opts.MinPriority = insight.Priority(minPriority)
	}
	if len(sources) > 0 {
		opts.EnabledSources = sources
	}
	return opts
}
