package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/internal/model"
)

var (
	insightsSource sourceFlags
	insightsOpts   optionFlags
	insightsJSON   bool
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate the ranked insight list for one user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := insightsSource.load(cmd.Context())
		if err != nil {
			return err
		}

		out := insight.New().Generate(data.gctx, insightsOpts.options(), data.prefs)
		if insightsJSON {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		return printInsights(cmd.OutOrStdout(), out)
	},
}

func init() {
	insightsSource.register(insightsCmd)
	insightsOpts.register(insightsCmd)
	insightsCmd.Flags().BoolVar(&insightsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(insightsCmd)
}

func printInsights(w io.Writer, insights []model.SmartInsight) error {
	if len(insights) == 0 {
		_, err := fmt.Fprintln(w, "No insights.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tTYPE\tSOURCE\tID\tMESSAGE")
	for _, in := range insights {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s %s\n", in.Priority, in.Type, in.Source, in.ID, in.Emoji, in.Message)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
