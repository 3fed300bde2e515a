package habit

import (
	"math"

	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/stats"
)

// ConsistencyWindow scores a habit 0-100 over the trailing windowDays:
// 40% completion rate, 30% streak stability, 30% regularity of the gaps
// between completion days. With fewer than two completion days the
// regularity term is dropped.
func (a *Analyzer) ConsistencyWindow(h model.Habit, completions []model.HabitCompletion, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = a.windowDays
	}
	days := a.daysInWindow(h.ID, completions, windowDays)

	completion := math.Min(float64(len(days))/float64(windowDays)*100, 100)
	streak := streakStability(h)

	if len(days) < 2 {
		return clamp(0.4*completion+0.3*streak, 0, 100)
	}

	gaps := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		gaps = append(gaps, float64(days[i]-days[i-1]))
	}
	regularity := math.Max(0, 100-stats.Variance(gaps)*10)

	return clamp(0.4*completion+0.3*streak+0.3*regularity, 0, 100)
}

// Consistency is ConsistencyWindow over the analyzer's default window.
func (a *Analyzer) Consistency(h model.Habit, completions []model.HabitCompletion) float64 {
	return a.ConsistencyWindow(h, completions, a.windowDays)
}

// CompletionRate is the share of the trailing window's days with a
// completion, 0-100.
func (a *Analyzer) CompletionRate(habitID string, completions []model.HabitCompletion) float64 {
	days := a.daysInWindow(habitID, completions, a.windowDays)
	return math.Min(float64(len(days))/float64(a.windowDays)*100, 100)
}

// daysInWindow returns the sorted day indexes with a completion of habitID
// within the last n calendar days, today included.
func (a *Analyzer) daysInWindow(habitID string, completions []model.HabitCompletion, n int) []int {
	loc := a.now.Location()
	set := make(map[int]bool)
	for _, c := range completionsFor(habitID, completions) {
		ago := a.daysAgo(c.CompletedAt)
		if ago < 0 || ago >= n {
			continue
		}
		set[dayIndex(c.CompletedAt, loc)] = true
	}
	return sortedDays(set)
}

// streakStability is current/best as a percentage, or current*10 before a
// best streak exists. Capped at 100.
func streakStability(h model.Habit) float64 {
	if h.BestStreak > 0 {
		return math.Min(float64(h.CurrentStreak)/float64(h.BestStreak)*100, 100)
	}
	return math.Min(float64(h.CurrentStreak)*10, 100)
}

// minMomentumCompletions is the history needed before momentum is reported.
const minMomentumCompletions = 7

// Momentum is the week-over-week change in completion count, in percent.
// A prior week with no completions yields 100 when this week has any.
func (a *Analyzer) Momentum(habitID string, completions []model.HabitCompletion) float64 {
	cs := completionsFor(habitID, completions)
	if len(cs) < minMomentumCompletions {
		return 0
	}
	var last, prior int
	for _, c := range cs {
		ago := a.daysAgo(c.CompletedAt)
		switch {
		case ago >= 0 && ago < 7:
			last++
		case ago >= 7 && ago < 14:
			prior++
		}
	}
	if prior == 0 {
		if last > 0 {
			return 100
		}
		return 0
	}
	return float64(last-prior) / float64(prior) * 100
}

// Risk estimates 0-100 how likely the current streak is to break: 40 points
// for days since the last completion, 30 for a streak below its best, 30 for
// poor two-week consistency. A habit never completed scores 100.
func (a *Analyzer) Risk(h model.Habit, completions []model.HabitCompletion) float64 {
	cs := completionsFor(h.ID, completions)
	if len(cs) == 0 {
		return 100
	}

	since := a.daysAgo(cs[len(cs)-1].CompletedAt)
	var recency float64
	switch {
	case since <= 0:
		recency = 0
	case since == 1:
		recency = 20
	default:
		recency = 40
	}

	ratio := 0.0
	if h.BestStreak > 0 {
		ratio = math.Min(float64(h.CurrentStreak)/float64(h.BestStreak), 1)
	}
	streak := (1 - ratio) * 30

	consistency := a.ConsistencyWindow(h, completions, riskWindowDays)
	return clamp(recency+streak+(100-consistency)*0.3, 0, 100)
}

// StreakQuality bands a habit's streak health.
type StreakQuality string

const (
	StreakExcellent StreakQuality = "excellent"
	StreakGood      StreakQuality = "good"
	StreakFair      StreakQuality = "fair"
	StreakPoor      StreakQuality = "poor"
)

// ClassifyStreak averages 30-day consistency with non-negative momentum and
// bands the result.
func (a *Analyzer) ClassifyStreak(h model.Habit, completions []model.HabitCompletion) StreakQuality {
	stability := (a.ConsistencyWindow(h, completions, DefaultWindowDays) + math.Max(0, a.Momentum(h.ID, completions))) / 2
	switch {
	case stability >= 80:
		return StreakExcellent
	case stability >= 60:
		return StreakGood
	case stability >= 40:
		return StreakFair
	default:
		return StreakPoor
	}
}
