// Package insight turns a GeneratorContext into the ranked list of
// SmartInsights shown on the dashboard. Generators are pure functions held in
// an ordered registry; Pipeline runs them in isolation and then dedupes,
// personalizes, ranks, filters and truncates the result.
package insight

import (
	"github.com/sells-group/vitals/internal/model"
)

// Generator sources, used for dedup grouping and the enabled-source filter.
const (
	SourceQuality           = "quality"
	SourceTrend             = "trend"
	SourceGoal              = "goal"
	SourceHabit             = "habit"
	SourceAchievement       = "achievement"
	SourceInfo              = "info"
	SourceRecommendation    = "recommendation"
	SourceCorrelation       = "correlation"
	SourceAnomaly           = "anomaly"
	SourcePrediction        = "prediction"
	SourceSocial            = "social"
	SourceTrainer           = "trainer"
	SourceTemporal          = "temporal"
	SourceHabitPattern      = "habit_pattern"
	SourceHabitRisk         = "habit_risk"
	SourceHabitOptimization = "habit_optimization"
	SourceHabitAchievement  = "habit_achievement"
	SourceAIRecommendation  = "ai_recommendation"
)

// GenerateFunc produces insights from a read-only context. It must treat
// every absent part of the context as "nothing to say".
type GenerateFunc func(*model.GeneratorContext) []model.SmartInsight

// Generator is a named entry of the registry.
type Generator struct {
	Source   string
	Generate GenerateFunc
}

// DefaultGenerators returns the full registry in evaluation order.
func DefaultGenerators() []Generator {
	return []Generator{
		{SourceQuality, QualityInsights},
		{SourceTrend, TrendInsights},
		{SourceGoal, GoalInsights},
		{SourceHabit, HabitInsights},
		{SourceAchievement, AchievementInsights},
		{SourceInfo, InfoInsights},
		{SourceRecommendation, CoverageInsights},
		{SourceCorrelation, CorrelationInsights},
		{SourceAnomaly, AnomalyInsights},
		{SourcePrediction, PredictionInsights},
		{SourceSocial, SocialInsights},
		{SourceTrainer, TrainerInsights},
		{SourceTemporal, TemporalInsights},
		{SourceHabitPattern, HabitPatternInsights},
		{SourceHabitRisk, HabitRiskInsights},
		{SourceHabitOptimization, HabitOptimizationInsights},
		{SourceHabitAchievement, HabitAchievementInsights},
		{SourceAIRecommendation, AIRecommendationInsights},
	}
}

// Sources lists the source names of the default registry.
func Sources() []string {
	gens := DefaultGenerators()
	out := make([]string, 0, len(gens))
	for _, g := range gens {
		out = append(out, g.Source)
	}
	return out
}
