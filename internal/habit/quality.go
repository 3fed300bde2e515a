package habit

import (
	"math"
	"sort"

	"github.com/sells-group/vitals/internal/model"
)

// Quality weights (sum = 1).
const (
	weightConsistency    = 0.4
	weightStreak         = 0.2
	weightTrend          = 0.2
	weightCompletionRate = 0.2
)

// Recommendation cut-offs, evaluated in order after the praise check.
const (
	lowConsistency    = 60.0
	lowStreakRatio    = 50.0
	lowCompletionRate = 50.0
)

// Recommendation texts.
const (
	RecommendPraise     = "Outstanding consistency. Keep doing exactly what you're doing."
	RecommendRegularity = "Improve regularity: try to complete this habit at the same time every day."
	RecommendStreak     = "Protect the streak: you're below your best run, so don't skip tomorrow."
	RecommendRestart    = "Momentum is slipping. Restart small with an easier version for a few days."
	RecommendFrequency  = "Increase frequency: aim to complete this habit on more days each week."
	RecommendEncourage  = "Solid progress. Keep building on it."
)

// Score computes the composite quality score of one habit.
func (a *Analyzer) Score(h model.Habit, completions []model.HabitCompletion) model.HabitQualityScore {
	consistency := a.Consistency(h, completions)
	streak := streakStability(h)
	momentum := a.Momentum(h.ID, completions)
	trend := clamp(50+momentum/2, 0, 100)
	completion := a.CompletionRate(h.ID, completions)

	overall := weightConsistency*consistency +
		weightStreak*math.Min(streak, 100) +
		weightTrend*trend +
		weightCompletionRate*math.Min(completion, 100)
	overall = round1(clamp(overall, 0, 100))

	factors := model.QualityFactors{
		Consistency:     round1(consistency),
		StreakStability: round1(streak),
		Trend:           round1(trend),
		CompletionRate:  round1(completion),
	}
	return model.HabitQualityScore{
		HabitID:        h.ID,
		OverallScore:   overall,
		Factors:        factors,
		Grade:          GradeFor(overall),
		Recommendation: recommendationFor(overall, factors, momentum),
	}
}

// ScoreAll scores every habit, in input order.
func (a *Analyzer) ScoreAll(habits []model.Habit, completions []model.HabitCompletion) []model.HabitQualityScore {
	out := make([]model.HabitQualityScore, 0, len(habits))
	for _, h := range habits {
		out = append(out, a.Score(h, completions))
	}
	return out
}

// Best returns the highest scoring entry. Ties keep the earlier one.
func Best(scores []model.HabitQualityScore) (model.HabitQualityScore, bool) {
	if len(scores) == 0 {
		return model.HabitQualityScore{}, false
	}
	sorted := make([]model.HabitQualityScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})
	return sorted[0], true
}

// GradeFor maps a 0-100 score to a letter grade.
func GradeFor(score float64) model.Grade {
	switch {
	case score >= 90:
		return model.GradeA
	case score >= 80:
		return model.GradeB
	case score >= 70:
		return model.GradeC
	case score >= 60:
		return model.GradeD
	default:
		return model.GradeF
	}
}

// recommendationFor picks the first matching condition; the order is part of
// the contract.
func recommendationFor(overall float64, f model.QualityFactors, momentum float64) string {
	switch {
	case overall >= 90:
		return RecommendPraise
	case f.Consistency < lowConsistency:
		return RecommendRegularity
	case f.StreakStability < lowStreakRatio:
		return RecommendStreak
	case momentum < 0:
		return RecommendRestart
	case f.CompletionRate < lowCompletionRate:
		return RecommendFrequency
	default:
		return RecommendEncourage
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
