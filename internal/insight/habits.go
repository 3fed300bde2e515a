package insight

import (
	"sort"
	"strconv"

	"github.com/sells-group/vitals/internal/habit"
	"github.com/sells-group/vitals/internal/model"
)

const (
	streakCelebrateDays     = 5
	riskAlertThreshold      = 70.0
	poorStreakMinDays       = 5
	lowConsistency          = 50.0
	habitSynergySuggestions = 2
	topQualityThreshold     = 90.0
	aiRecommendationCount   = 3
)

// streakMilestones are the streak lengths worth celebrating.
var streakMilestones = []int{7, 14, 21, 30, 50, 100}

// habitInputs unpacks the habits part of the context with an analyzer
// anchored at the context clock. ok is false when there are no habits.
func habitInputs(gctx *model.GeneratorContext) (hd *model.HabitsData, a *habit.Analyzer, ok bool) {
	hd = gctx.HabitsData
	if hd == nil || len(hd.Habits) == 0 {
		return nil, nil, false
	}
	return hd, habit.NewAnalyzer(gctx.Clock(), hd.WindowDays), true
}

// HabitInsights reports the longest active streak and today's completion
// progress across all habits.
func HabitInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	hd, _, ok := habitInputs(gctx)
	if !ok {
		return nil
	}
	var out []model.SmartInsight

	var best *model.Habit
	for i := range hd.Habits {
		h := &hd.Habits[i]
		if h.ID == "" {
			continue
		}
		if best == nil || h.CurrentStreak > best.CurrentStreak {
			best = h
		}
	}
	if best != nil && best.CurrentStreak >= streakCelebrateDays {
		out = append(out, newInsight(gctx, SourceHabit, model.InsightAchievement, makeID("habit", "streak", best.ID), "🔥",
			sprintf("%d-day streak on %s. Keep it going!", best.CurrentStreak, habitTitle(*best)),
			80, navigate("/habits/"+best.ID)))
	}

	now := gctx.Clock()
	doneToday := make(map[string]bool)
	for _, c := range hd.Completions {
		if model.SameDay(c.CompletedAt, now) {
			doneToday[c.HabitID] = true
		}
	}
	done := 0
	for _, h := range hd.Habits {
		if doneToday[h.ID] {
			done++
		}
	}
	total := len(hd.Habits)
	switch {
	case done == total:
		out = append(out, newInsight(gctx, SourceHabit, model.InsightAchievement, "habits-all-done", "✅",
			sprintf("All %d habits done today. Great work!", total), 75, navigate("/habits")))
	case done > 0:
		out = append(out, newInsight(gctx, SourceHabit, model.InsightInfo, "habits-partial", "📝",
			sprintf("%d of %d habits done today.", done, total), 40, navigate("/habits")))
	}
	return out
}

// HabitPatternInsights reports actionable optimal times and habit chains.
func HabitPatternInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	hd, a, ok := habitInputs(gctx)
	if !ok {
		return nil
	}
	titles := titlesByID(hd.Habits)
	var out []model.SmartInsight
	for _, h := range hd.Habits {
		opt := a.OptimalHabitTime(h.ID, hd.Completions)
		if opt == nil || !opt.Actionable() {
			continue
		}
		out = append(out, newInsight(gctx, SourceHabitPattern, model.InsightHabitPattern, makeID("habit", "pattern", "time", h.ID), "🕐",
			sprintf("You do %s best in the %s (%.0f%% of completions).", habitTitle(h), opt.TimeOfDay, opt.Confidence),
			roundPriority(opt.Confidence), navigate("/habits/"+h.ID)))
	}
	for _, c := range a.DetectChains(hd.Completions) {
		t1, ok1 := titles[c.Habit1]
		t2, ok2 := titles[c.Habit2]
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, newInsight(gctx, SourceHabitPattern, model.InsightHabitPattern, makeID("habit", "chain", c.Habit1, c.Habit2), "🔗",
			sprintf("%s and %s go together: done on the same day %.0f%% of the time.", t1, t2, c.CoOccurrenceRate),
			roundPriority(c.CoOccurrenceRate), navigate("/habits")))
	}
	return out
}

// HabitRiskInsights warns about active streaks likely to break.
func HabitRiskInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	hd, a, ok := habitInputs(gctx)
	if !ok {
		return nil
	}
	var out []model.SmartInsight
	for _, h := range hd.Habits {
		if h.ID == "" || h.CurrentStreak <= 0 {
			continue
		}
		risk := a.Risk(h, hd.Completions)
		if risk >= riskAlertThreshold {
			out = append(out, newInsight(gctx, SourceHabitRisk, model.InsightHabitRisk, makeID("habit", "risk", h.ID), "⚠️",
				sprintf("Your %d-day %s streak is at risk. Fit it in today.", h.CurrentStreak, habitTitle(h)),
				roundPriority(risk), navigate("/habits/"+h.ID)))
			continue
		}
		if h.CurrentStreak > poorStreakMinDays && a.ClassifyStreak(h, hd.Completions) == habit.StreakPoor {
			out = append(out, newInsight(gctx, SourceHabitRisk, model.InsightHabitRisk, makeID("habit", "streak", "poor", h.ID), "🧊",
				sprintf("%s is losing steam despite your streak. Lock in a time for it.", habitTitle(h)),
				65, navigate("/habits/"+h.ID)))
		}
	}
	return out
}

// HabitOptimizationInsights points at inconsistent habits and the top
// synergies worth grouping.
func HabitOptimizationInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	hd, a, ok := habitInputs(gctx)
	if !ok {
		return nil
	}
	titles := titlesByID(hd.Habits)
	var out []model.SmartInsight
	for _, h := range hd.Habits {
		if h.ID == "" {
			continue
		}
		c := a.Consistency(h, hd.Completions)
		if c <= 0 || c >= lowConsistency {
			continue
		}
		// 50..75, lower consistency ranks higher.
		priority := roundPriority(50 + (lowConsistency-c)/2)
		out = append(out, newInsight(gctx, SourceHabitOptimization, model.InsightHabitOptimization, makeID("habit", "consistency", h.ID), "🛠️",
			sprintf("%s is only %.0f%% consistent. Try a smaller version at a fixed time.", habitTitle(h), c),
			priority, navigate("/habits/"+h.ID)))
	}

	syn := a.DetectSynergies(hd.Habits, hd.Completions)
	if len(syn) > habitSynergySuggestions {
		syn = syn[:habitSynergySuggestions]
	}
	for _, s := range syn {
		out = append(out, newInsight(gctx, SourceHabitOptimization, model.InsightHabitOptimization, makeID("habit", "synergy", s.Habit1, s.Habit2), "🤝",
			sprintf("%s and %s reinforce each other. Schedule them back to back.", titles[s.Habit1], titles[s.Habit2]),
			roundPriority(s.Score*0.6), navigate("/habits")))
	}
	return out
}

// HabitAchievementInsights celebrates streak milestones that are also a
// personal best, and the top habit when its quality is excellent.
func HabitAchievementInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	hd, a, ok := habitInputs(gctx)
	if !ok {
		return nil
	}
	var out []model.SmartInsight
	for _, h := range hd.Habits {
		if h.ID == "" || h.CurrentStreak != h.BestStreak || !isMilestone(h.CurrentStreak) {
			continue
		}
		out = append(out, newInsight(gctx, SourceHabitAchievement, model.InsightAchievement,
			makeID("habit", "milestone", h.ID, strconv.Itoa(h.CurrentStreak)), "🏅",
			sprintf("New personal best: %d days of %s!", h.CurrentStreak, habitTitle(h)),
			85, navigate("/habits/"+h.ID)))
	}

	if best, found := habit.Best(a.ScoreAll(hd.Habits, hd.Completions)); found && best.OverallScore >= topQualityThreshold {
		title := titlesByID(hd.Habits)[best.HabitID]
		out = append(out, newInsight(gctx, SourceHabitAchievement, model.InsightAchievement, makeID("habit", "quality", best.HabitID), "⭐",
			sprintf("%s scores %.0f/100 (grade %s). It's your strongest habit.", title, best.OverallScore, best.Grade),
			75, navigate("/habits/"+best.HabitID)))
	}
	return out
}

// AIRecommendationInsights surfaces the top recommendations of the habit
// recommendation engine.
func AIRecommendationInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	hd, a, ok := habitInputs(gctx)
	if !ok {
		return nil
	}
	recs := a.Recommend(hd.Habits, hd.Completions, nil)
	if len(recs) > aiRecommendationCount {
		recs = recs[:aiRecommendationCount]
	}
	out := make([]model.SmartInsight, 0, len(recs))
	for _, r := range recs {
		out = append(out, newInsight(gctx, SourceAIRecommendation, model.InsightRecommendation, makeID("ai", "rec", r.Key()), "💡",
			r.Title+". "+r.Description, r.Priority, modal(r.Data)))
	}
	return out
}

func isMilestone(n int) bool {
	i := sort.SearchInts(streakMilestones, n)
	return i < len(streakMilestones) && streakMilestones[i] == n
}

func titlesByID(habits []model.Habit) map[string]string {
	m := make(map[string]string, len(habits))
	for _, h := range habits {
		m[h.ID] = habitTitle(h)
	}
	return m
}
