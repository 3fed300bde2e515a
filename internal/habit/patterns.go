package habit

import (
	"sort"
	"time"

	"github.com/sells-group/vitals/internal/model"
)

// Pattern-mining thresholds.
const (
	MinPatternCompletions = 5
	// Generators and recommendations act on an optimal time only above these.
	OptimalConfidenceThreshold  = 60.0
	OptimalSuccessRateThreshold = 70.0
)

// CompletionPattern is one (time-of-day, weekday) bucket of a habit's
// completions.
type CompletionPattern struct {
	TimeOfDay   model.TimeOfDay `json:"time_of_day"`
	DayOfWeek   time.Weekday    `json:"day_of_week"`
	Count       int             `json:"count"`
	SuccessRate float64         `json:"success_rate"` // bucket share of all completions, 0-100
}

// AnalyzeCompletionPatterns buckets a habit's completions by time of day and
// weekday, sorted by share descending. It needs MinPatternCompletions.
func (a *Analyzer) AnalyzeCompletionPatterns(habitID string, completions []model.HabitCompletion) []CompletionPattern {
	cs := completionsFor(habitID, completions)
	if len(cs) < MinPatternCompletions {
		return nil
	}

	type key struct {
		tod model.TimeOfDay
		dow time.Weekday
	}
	counts := make(map[key]int)
	var order []key
	for _, c := range cs {
		t := c.CompletedAt.In(a.now.Location())
		k := key{model.TimeOfDayFor(t), t.Weekday()}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	total := float64(len(cs))
	out := make([]CompletionPattern, 0, len(order))
	for _, k := range order {
		out = append(out, CompletionPattern{
			TimeOfDay:   k.tod,
			DayOfWeek:   k.dow,
			Count:       counts[k],
			SuccessRate: float64(counts[k]) / total * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SuccessRate > out[j].SuccessRate
	})
	return out
}

// OptimalTime is the time-of-day slot where a habit is most reliably done.
type OptimalTime struct {
	HabitID     string          `json:"habit_id"`
	TimeOfDay   model.TimeOfDay `json:"time_of_day"`
	Occurrences int             `json:"occurrences"`
	Total       int             `json:"total"`
	// Confidence is slot completions / all completions * 100, capped at 100.
	Confidence float64 `json:"confidence"`
	// SuccessRate is the slot's share of all completions, uncapped.
	SuccessRate float64 `json:"success_rate"`
}

// Actionable reports whether the finding clears both documented thresholds.
func (o OptimalTime) Actionable() bool {
	return o.Confidence > OptimalConfidenceThreshold && o.SuccessRate > OptimalSuccessRateThreshold
}

var slotOrder = []model.TimeOfDay{model.Morning, model.Afternoon, model.Evening, model.Night}

// OptimalHabitTime returns the slot with the most completions, or nil when
// the habit has fewer than MinPatternCompletions.
func (a *Analyzer) OptimalHabitTime(habitID string, completions []model.HabitCompletion) *OptimalTime {
	cs := completionsFor(habitID, completions)
	if len(cs) < MinPatternCompletions {
		return nil
	}

	loc := a.now.Location()
	occurrences := make(map[model.TimeOfDay]int)
	for _, c := range cs {
		occurrences[model.TimeOfDayFor(c.CompletedAt.In(loc))]++
	}

	best := model.TimeOfDay("")
	for _, tod := range slotOrder {
		if occurrences[tod] > occurrences[best] {
			best = tod
		}
	}

	share := float64(occurrences[best]) / float64(len(cs)) * 100
	return &OptimalTime{
		HabitID:     habitID,
		TimeOfDay:   best,
		Occurrences: occurrences[best],
		Total:       len(cs),
		Confidence:  clamp(share, 0, 100),
		SuccessRate: share,
	}
}
