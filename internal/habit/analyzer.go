// Package habit mines habit completion logs: time-of-day patterns, chains,
// dependencies and synergies between habits, consistency, momentum and risk
// scores, the composite quality score and the recommendation engine.
package habit

import (
	"sort"
	"time"

	"github.com/sells-group/vitals/internal/model"
)

// DefaultWindowDays is the trailing window for consistency and completion rate.
const DefaultWindowDays = 30

// riskWindowDays is the consistency window used inside the risk score.
const riskWindowDays = 14

// Analyzer evaluates habits against a fixed "now". It holds no mutable
// state and is safe to share.
type Analyzer struct {
	now        time.Time
	windowDays int
}

// NewAnalyzer creates an Analyzer anchored at now. A non-positive window
// falls back to DefaultWindowDays.
func NewAnalyzer(now time.Time, windowDays int) *Analyzer {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Analyzer{now: now, windowDays: windowDays}
}

// Now returns the anchor time.
func (a *Analyzer) Now() time.Time {
	return a.now
}

// dayIndex returns the calendar day number of t in loc.
func dayIndex(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// daysAgo returns how many calendar days before now t falls.
func (a *Analyzer) daysAgo(t time.Time) int {
	loc := a.now.Location()
	return dayIndex(a.now, loc) - dayIndex(t, loc)
}

// completionsFor returns the completions of habitID ordered oldest first.
func completionsFor(habitID string, completions []model.HabitCompletion) []model.HabitCompletion {
	var out []model.HabitCompletion
	for _, c := range completions {
		if c.HabitID == habitID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out
}

// activeDays returns the set of calendar days (by day index) in loc.
func activeDays(completions []model.HabitCompletion, loc *time.Location) map[int]bool {
	days := make(map[int]bool, len(completions))
	for _, c := range completions {
		days[dayIndex(c.CompletedAt, loc)] = true
	}
	return days
}

// sortedDays returns the keys of a day set in ascending order.
func sortedDays(days map[int]bool) []int {
	out := make([]int, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// habitIDs returns the distinct habit ids of completions, sorted.
func habitIDs(completions []model.HabitCompletion) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range completions {
		if c.HabitID == "" || seen[c.HabitID] {
			continue
		}
		seen[c.HabitID] = true
		ids = append(ids, c.HabitID)
	}
	sort.Strings(ids)
	return ids
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
