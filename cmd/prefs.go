package main

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/store"
)

var prefsUserID string

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change a user's insight preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored preferences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		prefs, err := st.GetPreferences(ctx, prefsUserID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), prefs)
	},
}

var prefsMuteCmd = &cobra.Command{
	Use:   "mute <insight-id>...",
	Short: "Hide insights by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updatePrefs(cmd.Context(), func(p *model.InsightPreferences) error {
			for _, id := range args {
				p.Mute(id)
			}
			return nil
		})
	},
}

var prefsUnmuteCmd = &cobra.Command{
	Use:   "unmute <insight-id>...",
	Short: "Show previously muted insights again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updatePrefs(cmd.Context(), func(p *model.InsightPreferences) error {
			for _, id := range args {
				p.Unmute(id)
			}
			return nil
		})
	},
}

var prefsOverrideCmd = &cobra.Command{
	Use:   "override <insight-id> <priority>",
	Short: "Replace an insight's priority; a negative priority clears the override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Wrapf(err, "parse priority %q", args[1])
		}
		return updatePrefs(cmd.Context(), func(p *model.InsightPreferences) error {
			p.SetOverride(args[0], priority)
			return nil
		})
	},
}

var prefsEnableCmd = &cobra.Command{
	Use:   "enable <type>...",
	Short: "Enable insight types",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updatePrefs(cmd.Context(), setTypes(args, true))
	},
}

var prefsDisableCmd = &cobra.Command{
	Use:   "disable <type>...",
	Short: "Disable insight types",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updatePrefs(cmd.Context(), setTypes(args, false))
	},
}

func init() {
	prefsCmd.PersistentFlags().StringVar(&prefsUserID, "user", "", "user id (required)")
	_ = prefsCmd.MarkPersistentFlagRequired("user")
	prefsCmd.AddCommand(prefsShowCmd, prefsMuteCmd, prefsUnmuteCmd, prefsOverrideCmd, prefsEnableCmd, prefsDisableCmd)
	rootCmd.AddCommand(prefsCmd)
}

func setTypes(names []string, enabled bool) func(*model.InsightPreferences) error {
	return func(p *model.InsightPreferences) error {
		for _, name := range names {
			t, err := parseInsightType(name)
			if err != nil {
				return err
			}
			p.SetTypeEnabled(t, enabled)
		}
		return nil
	}
}

func parseInsightType(name string) (model.InsightType, error) {
	for _, t := range model.AllInsightTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", eris.Errorf("unknown insight type %q", name)
}

// updatePrefs loads, mutates and saves the user's preferences.
func updatePrefs(ctx context.Context, fn func(*model.InsightPreferences) error) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	return applyPrefs(ctx, st, prefsUserID, fn)
}

func applyPrefs(ctx context.Context, st store.Store, userID string, fn func(*model.InsightPreferences) error) error {
	prefs, err := st.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(prefs); err != nil {
		return err
	}
	if err := st.SavePreferences(ctx, userID, *prefs); err != nil {
		return err
	}
	zap.L().Info("preferences updated", zap.String("user_id", userID))
	return nil
}
