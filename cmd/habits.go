package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/vitals/internal/habit"
	"github.com/sells-group/vitals/internal/model"
)

var (
	habitsSource sourceFlags
	habitsJSON   bool
)

var habitsCmd = &cobra.Command{
	Use:   "habits",
	Short: "Habit quality scores and recommendations",
}

var habitScoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Score every habit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := habitsSource.load(cmd.Context())
		if err != nil {
			return err
		}
		scores := habitScores(data.gctx)
		if habitsJSON {
			return writeJSON(cmd.OutOrStdout(), scores)
		}
		return printScores(cmd.OutOrStdout(), scores)
	},
}

var habitRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest habit changes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := habitsSource.load(cmd.Context())
		if err != nil {
			return err
		}
		recs := habitRecommendations(data.gctx)
		if habitsJSON {
			return writeJSON(cmd.OutOrStdout(), recs)
		}
		return printRecommendations(cmd.OutOrStdout(), recs)
	},
}

func init() {
	habitsSource.register(habitScoresCmd)
	habitsSource.register(habitRecommendCmd)
	habitsCmd.PersistentFlags().BoolVar(&habitsJSON, "json", false, "print JSON instead of a table")
	habitsCmd.AddCommand(habitScoresCmd, habitRecommendCmd)
	rootCmd.AddCommand(habitsCmd)
}

func habitAnalyzer(gctx *model.GeneratorContext) (*habit.Analyzer, *model.HabitsData) {
	hd := gctx.HabitsData
	if hd == nil {
		hd = &model.HabitsData{}
	}
	return habit.NewAnalyzer(gctx.Clock(), hd.WindowDays), hd
}

func habitScores(gctx *model.GeneratorContext) []model.HabitQualityScore {
	a, hd := habitAnalyzer(gctx)
	return a.ScoreAll(hd.Habits, hd.Completions)
}

func habitRecommendations(gctx *model.GeneratorContext) []habit.HabitRecommendation {
	a, hd := habitAnalyzer(gctx)
	return a.Recommend(hd.Habits, hd.Completions, a.ScoreAll(hd.Habits, hd.Completions))
}

func printScores(w io.Writer, scores []model.HabitQualityScore) error {
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "No habits.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HABIT\tSCORE\tGRADE\tCONSISTENCY\tSTABILITY\tTREND\tCOMPLETION\tRECOMMENDATION")
	for _, s := range scores {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n",
			s.HabitID, s.OverallScore, s.Grade,
			s.Factors.Consistency, s.Factors.StreakStability, s.Factors.Trend, s.Factors.CompletionRate,
			s.Recommendation)
	}
	return tw.Flush()
}

func printRecommendations(w io.Writer, recs []habit.HabitRecommendation) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No recommendations.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tTYPE\tTITLE\tDESCRIPTION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Priority, r.Type, r.Title, r.Description)
	}
	return tw.Flush()
}
