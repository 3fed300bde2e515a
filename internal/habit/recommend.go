package habit

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/vitals/internal/model"
)

// RecommendationType names a rule family of the recommendation engine.
type RecommendationType string

const (
	RecTimeOptimization     RecommendationType = "time_optimization"
	RecGapFilling           RecommendationType = "gap_filling"
	RecDifficultyAdjustment RecommendationType = "difficulty_adjustment"
	RecSynergy              RecommendationType = "synergy"
	RecSuccessTransfer      RecommendationType = "success_transfer"
)

// Recommendation engine constants.
const (
	MaxRecommendations      = 10
	gapSlotPriority         = 70
	gapCategoryPriority     = 60
	categoryCoverageMax     = 10
	difficultyPriority      = 80
	difficultyMaxHabits     = 3
	difficultyCompletionCap = 40.0
	synergyMaxSuggestions   = 2
	transferPriority        = 65
	transferMinQuality      = 80.0
)

// CoreCategories are the categories a balanced routine should cover.
var CoreCategories = []string{"fitness", "nutrition", "sleep", "mindfulness"}

// HabitRecommendation is one actionable suggestion.
type HabitRecommendation struct {
	Type        RecommendationType `json:"type"`
	Priority    int                `json:"priority"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Actionable  bool               `json:"actionable"`
	Data        map[string]any     `json:"data,omitempty"`
}

// Key returns a stable identifier derived from the recommendation's data.
func (r HabitRecommendation) Key() string {
	parts := []string{string(r.Type)}
	for _, k := range []string{"habit_id", "slot", "habit1", "habit2", "categories"} {
		if v, ok := r.Data[k]; ok {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, "-")
}

// GenerateRecommendations runs the five rule families, merges them and
// returns at most MaxRecommendations by descending priority.
func GenerateRecommendations(now time.Time, habits []model.Habit, completions []model.HabitCompletion, scores []model.HabitQualityScore) []HabitRecommendation {
	return NewAnalyzer(now, DefaultWindowDays).Recommend(habits, completions, scores)
}

// Recommend is GenerateRecommendations bound to the analyzer's clock.
func (a *Analyzer) Recommend(habits []model.Habit, completions []model.HabitCompletion, scores []model.HabitQualityScore) []HabitRecommendation {
	if len(habits) == 0 {
		return nil
	}
	if scores == nil {
		scores = a.ScoreAll(habits, completions)
	}

	var recs []HabitRecommendation
	recs = append(recs, a.timeOptimization(habits, completions)...)
	recs = append(recs, gapFilling(habits)...)
	recs = append(recs, difficultyAdjustment(habits, scores)...)
	recs = append(recs, a.synergySuggestions(habits, completions)...)
	recs = append(recs, successTransfer(habits, scores)...)

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

func (a *Analyzer) timeOptimization(habits []model.Habit, completions []model.HabitCompletion) []HabitRecommendation {
	var out []HabitRecommendation
	for _, h := range habits {
		if !h.HasPreferredTime() {
			continue
		}
		opt := a.OptimalHabitTime(h.ID, completions)
		if opt == nil || opt.TimeOfDay == h.PreferredTime || !opt.Actionable() {
			continue
		}
		out = append(out, HabitRecommendation{
			Type:     RecTimeOptimization,
			Priority: int(math.Round(opt.Confidence)),
			Title:    fmt.Sprintf("Move %q to the %s", h.Title, opt.TimeOfDay),
			Description: fmt.Sprintf("You complete %q in the %s %.0f%% of the time, not in the %s as planned.",
				h.Title, opt.TimeOfDay, opt.Confidence, h.PreferredTime),
			Actionable: true,
			Data: map[string]any{
				"habit_id":  h.ID,
				"current":   string(h.PreferredTime),
				"suggested": string(opt.TimeOfDay),
			},
		})
	}
	return out
}

func gapFilling(habits []model.Habit) []HabitRecommendation {
	used := make(map[model.TimeOfDay]bool)
	categories := make(map[string]bool)
	for _, h := range habits {
		used[h.PreferredTime] = true
		if h.Category != "" {
			categories[strings.ToLower(h.Category)] = true
		}
	}

	var out []HabitRecommendation
	for _, slot := range []model.TimeOfDay{model.Morning, model.Evening} {
		if used[slot] {
			continue
		}
		out = append(out, HabitRecommendation{
			Type:        RecGapFilling,
			Priority:    gapSlotPriority,
			Title:       fmt.Sprintf("Add a %s habit", slot),
			Description: fmt.Sprintf("None of your habits are scheduled for the %s. A short routine there builds structure.", slot),
			Actionable:  true,
			Data:        map[string]any{"slot": string(slot)},
		})
	}

	if len(habits) < categoryCoverageMax {
		var missing []string
		for _, c := range CoreCategories {
			if !categories[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			out = append(out, HabitRecommendation{
				Type:        RecGapFilling,
				Priority:    gapCategoryPriority,
				Title:       "Round out your routine",
				Description: fmt.Sprintf("You have no habits for %s.", strings.Join(missing, ", ")),
				Actionable:  true,
				Data:        map[string]any{"categories": strings.Join(missing, ",")},
			})
		}
	}
	return out
}

func difficultyAdjustment(habits []model.Habit, scores []model.HabitQualityScore) []HabitRecommendation {
	titles := habitTitles(habits)
	var weak []model.HabitQualityScore
	for _, s := range scores {
		if s.Factors.CompletionRate < difficultyCompletionCap {
			weak = append(weak, s)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].OverallScore < weak[j].OverallScore
	})
	if len(weak) > difficultyMaxHabits {
		weak = weak[:difficultyMaxHabits]
	}

	out := make([]HabitRecommendation, 0, len(weak))
	for _, s := range weak {
		out = append(out, HabitRecommendation{
			Type:     RecDifficultyAdjustment,
			Priority: difficultyPriority,
			Title:    fmt.Sprintf("Simplify %q", titles[s.HabitID]),
			Description: fmt.Sprintf("%q is completed on only %.0f%% of days. Shrink it to a two-minute version until it sticks.",
				titles[s.HabitID], s.Factors.CompletionRate),
			Actionable: true,
			Data:       map[string]any{"habit_id": s.HabitID, "completion_rate": s.Factors.CompletionRate},
		})
	}
	return out
}

func (a *Analyzer) synergySuggestions(habits []model.Habit, completions []model.HabitCompletion) []HabitRecommendation {
	titles := habitTitles(habits)
	syn := a.DetectSynergies(habits, completions)
	if len(syn) > synergyMaxSuggestions {
		syn = syn[:synergyMaxSuggestions]
	}
	out := make([]HabitRecommendation, 0, len(syn))
	for _, s := range syn {
		out = append(out, HabitRecommendation{
			Type:        RecSynergy,
			Priority:    int(math.Round(s.Score)),
			Title:       fmt.Sprintf("Group %q with %q", titles[s.Habit1], titles[s.Habit2]),
			Description: "These habits reinforce each other. Doing them back to back makes both more likely.",
			Actionable:  true,
			Data:        map[string]any{"habit1": s.Habit1, "habit2": s.Habit2, "score": s.Score},
		})
	}
	return out
}

func successTransfer(habits []model.Habit, scores []model.HabitQualityScore) []HabitRecommendation {
	byID := make(map[string]model.Habit, len(habits))
	for _, h := range habits {
		byID[h.ID] = h
	}
	sorted := make([]model.HabitQualityScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})
	for _, s := range sorted {
		h, ok := byID[s.HabitID]
		if !ok || s.OverallScore < transferMinQuality || !h.HasPreferredTime() {
			continue
		}
		return []HabitRecommendation{{
			Type:     RecSuccessTransfer,
			Priority: transferPriority,
			Title:    fmt.Sprintf("Stack a new habit in the %s", h.PreferredTime),
			Description: fmt.Sprintf("%q thrives in the %s. Attach a new habit right after it.",
				h.Title, h.PreferredTime),
			Actionable: true,
			Data:       map[string]any{"habit_id": h.ID, "slot": string(h.PreferredTime)},
		}}
	}
	return nil
}

func habitTitles(habits []model.Habit) map[string]string {
	m := make(map[string]string, len(habits))
	for _, h := range habits {
		m[h.ID] = h.Title
	}
	return m
}
