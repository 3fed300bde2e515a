package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vitals/internal/export"
	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/internal/model"
)

var (
	exportSource sourceFlags
	exportOpts   optionFlags
	exportFormat string
	exportOut    string
	exportWhat   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write insights and habit scores to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := exportSource.load(cmd.Context())
		if err != nil {
			return err
		}
		insights := insight.New().Generate(data.gctx, exportOpts.options(), data.prefs)
		scores := habitScores(data.gctx)

		switch exportFormat {
		case "xlsx":
			if exportOut == "" {
				return eris.New("--out is required for xlsx")
			}
			if err := export.WriteXLSX(exportOut, insights, scores); err != nil {
				return err
			}
		case "csv":
			w := cmd.OutOrStdout()
			if exportOut != "" {
				fh, err := os.Create(exportOut)
				if err != nil {
					return eris.Wrapf(err, "create %s", exportOut)
				}
				defer fh.Close() //nolint:errcheck
				w = fh
			}
			if err := writeCSV(w, exportWhat, data, insights); err != nil {
				return err
			}
		default:
			return eris.Errorf("unsupported format %q (want csv or xlsx)", exportFormat)
		}

		zap.L().Info("export complete",
			zap.String("format", exportFormat),
			zap.Int("insights", len(insights)),
			zap.Int("scores", len(scores)),
		)
		return nil
	},
}

func init() {
	exportSource.register(exportCmd)
	exportOpts.register(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (csv defaults to stdout)")
	exportCmd.Flags().StringVar(&exportWhat, "what", "insights", "csv content: insights or scores")
	rootCmd.AddCommand(exportCmd)
}

func writeCSV(w io.Writer, what string, data *loaded, insights []model.SmartInsight) error {
	switch what {
	case "insights":
		return export.WriteInsightsCSV(w, insights)
	case "scores":
		return export.WriteScoresCSV(w, habitScores(data.gctx))
	default:
		return eris.Errorf("unsupported --what %q (want insights or scores)", what)
	}
}
