package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/vitals/internal/coach"
	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/pkg/anthropic"
)

var (
	briefSource sourceFlags
	briefOpts   optionFlags
	briefName   string
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Summarize today's insights as a short coaching note",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("coach"); err != nil {
			return err
		}
		ctx := cmd.Context()

		data, err := briefSource.load(ctx)
		if err != nil {
			return err
		}
		insights := insight.New().Generate(data.gctx, briefOpts.options(), data.prefs)

		c := coach.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		text, err := c.Brief(ctx, briefName, insights)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	briefSource.register(briefCmd)
	briefOpts.register(briefCmd)
	briefCmd.Flags().StringVar(&briefName, "name", "", "name to address the user by")
	rootCmd.AddCommand(briefCmd)
}
