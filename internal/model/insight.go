package model

import "time"

// InsightType classifies a SmartInsight.
type InsightType string

const (
	InsightCritical          InsightType = "critical"
	InsightWarning           InsightType = "warning"
	InsightAchievement       InsightType = "achievement"
	InsightInfo              InsightType = "info"
	InsightRecommendation    InsightType = "recommendation"
	InsightCorrelation       InsightType = "correlation"
	InsightAnomaly           InsightType = "anomaly"
	InsightPrediction        InsightType = "prediction"
	InsightSocial            InsightType = "social"
	InsightTrainer           InsightType = "trainer"
	InsightTemporal          InsightType = "temporal"
	InsightHabitPattern      InsightType = "habit_pattern"
	InsightHabitRisk         InsightType = "habit_risk"
	InsightHabitOptimization InsightType = "habit_optimization"
)

// AllInsightTypes lists every insight type in declaration order.
var AllInsightTypes = []InsightType{
	InsightCritical, InsightWarning, InsightAchievement, InsightInfo,
	InsightRecommendation, InsightCorrelation, InsightAnomaly, InsightPrediction,
	InsightSocial, InsightTrainer, InsightTemporal, InsightHabitPattern,
	InsightHabitRisk, InsightHabitOptimization,
}

// ActionType tells the UI how to follow up on an insight.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionModal    ActionType = "modal"
	ActionExternal ActionType = "external"
)

// InsightAction is the UI follow-up attached to an insight.
type InsightAction struct {
	Type ActionType     `json:"type"`
	Path string         `json:"path,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// SmartInsight is one finding surfaced on the dashboard. ID is stable for
// the same logical finding across recomputation.
type SmartInsight struct {
	ID        string        `json:"id"`
	Type      InsightType   `json:"type"`
	Emoji     string        `json:"emoji"`
	Message   string        `json:"message"`
	Priority  int           `json:"priority"` // 0-100
	Action    InsightAction `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
}

// InsightPreferences is the user's personalization of the insight feed.
type InsightPreferences struct {
	EnabledTypes           map[InsightType]bool `json:"enabled_types" yaml:"enabled_types"`
	PriorityOverrides      map[string]int       `json:"priority_overrides" yaml:"priority_overrides"`
	MutedInsights          map[string]bool      `json:"muted_insights" yaml:"muted_insights"`
	RefreshIntervalSeconds int                  `json:"refresh_interval_seconds" yaml:"refresh_interval_seconds"`
}

// DefaultPreferences enables every insight type and mutes nothing.
func DefaultPreferences() InsightPreferences {
	enabled := make(map[InsightType]bool, len(AllInsightTypes))
	for _, t := range AllInsightTypes {
		enabled[t] = true
	}
	return InsightPreferences{
		EnabledTypes:           enabled,
		PriorityOverrides:      map[string]int{},
		MutedInsights:          map[string]bool{},
		RefreshIntervalSeconds: 300,
	}
}

// WithDefaults fills the fields a partial document left out. A present
// EnabledTypes map is kept as given: it is the full set, not a patch over
// the defaults.
func (p InsightPreferences) WithDefaults() InsightPreferences {
	def := DefaultPreferences()
	if p.EnabledTypes == nil {
		p.EnabledTypes = def.EnabledTypes
	}
	if p.PriorityOverrides == nil {
		p.PriorityOverrides = def.PriorityOverrides
	}
	if p.MutedInsights == nil {
		p.MutedInsights = def.MutedInsights
	}
	if p.RefreshIntervalSeconds <= 0 {
		p.RefreshIntervalSeconds = def.RefreshIntervalSeconds
	}
	return p
}

// TypeEnabled reports whether t passes the type filter. An empty filter
// enables everything.
func (p InsightPreferences) TypeEnabled(t InsightType) bool {
	if len(p.EnabledTypes) == 0 {
		return true
	}
	return p.EnabledTypes[t]
}

// Mute adds id to the muted set.
func (p *InsightPreferences) Mute(id string) {
	if p.MutedInsights == nil {
		p.MutedInsights = map[string]bool{}
	}
	p.MutedInsights[id] = true
}

// Unmute removes id from the muted set.
func (p *InsightPreferences) Unmute(id string) {
	delete(p.MutedInsights, id)
}

// SetOverride replaces the base priority of id. A negative value clears it.
func (p *InsightPreferences) SetOverride(id string, priority int) {
	if priority < 0 {
		delete(p.PriorityOverrides, id)
		return
	}
	if p.PriorityOverrides == nil {
		p.PriorityOverrides = map[string]int{}
	}
	p.PriorityOverrides[id] = priority
}

// SetTypeEnabled toggles a type. Starting from an empty filter materializes
// the full set first so that disabling one type keeps the rest enabled.
func (p *InsightPreferences) SetTypeEnabled(t InsightType, enabled bool) {
	if len(p.EnabledTypes) == 0 {
		p.EnabledTypes = DefaultPreferences().EnabledTypes
	}
	p.EnabledTypes[t] = enabled
}

// GeneratorContext is the immutable input snapshot of one pipeline run.
// Every pointer field may be nil; generators treat nil as "no data".
type GeneratorContext struct {
	UserID        string         `json:"user_id"`
	Now           time.Time      `json:"now"`
	QualityData   *QualityData   `json:"quality_data,omitempty"`
	MetricsData   *MetricsData   `json:"metrics_data,omitempty"`
	GoalsData     *GoalsData     `json:"goals_data,omitempty"`
	HabitsData    *HabitsData    `json:"habits_data,omitempty"`
	TodayMetrics  *TodayMetrics  `json:"today_metrics,omitempty"`
	ChallengeData *ChallengeData `json:"challenge_data,omitempty"`
	TrainerData   *TrainerData   `json:"trainer_data,omitempty"`
}

// Clock returns Now, falling back to the wall clock when unset.
func (c *GeneratorContext) Clock() time.Time {
	if c == nil || c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// SameDay reports whether a and b fall on the same calendar day in b's location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey returns the YYYY-MM-DD form of t in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
