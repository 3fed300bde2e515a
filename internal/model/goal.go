package model

import (
	"sort"
	"time"
)

// GoalMeasurement is one recorded value toward a goal.
type GoalMeasurement struct {
	Value     float64   `json:"value" yaml:"value"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Goal is a target the user is working toward.
type Goal struct {
	ID           string            `json:"id" yaml:"id"`
	Title        string            `json:"title" yaml:"title"`
	TargetValue  float64           `json:"target_value" yaml:"target_value"`
	Measurements []GoalMeasurement `json:"measurements" yaml:"measurements"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
}

// SortedMeasurements returns the measurements oldest first.
func (g Goal) SortedMeasurements() []GoalMeasurement {
	out := make([]GoalMeasurement, len(g.Measurements))
	copy(out, g.Measurements)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Current returns the most recent measurement, if any.
func (g Goal) Current() (GoalMeasurement, bool) {
	ms := g.SortedMeasurements()
	if len(ms) == 0 {
		return GoalMeasurement{}, false
	}
	return ms[len(ms)-1], true
}

// Progress returns current/target as a percentage. Goals without a positive
// target or without measurements report 0.
func (g Goal) Progress() float64 {
	cur, ok := g.Current()
	if !ok || g.TargetValue <= 0 {
		return 0
	}
	return cur.Value / g.TargetValue * 100
}

// LastUpdate returns the time of the last measurement, or CreatedAt.
func (g Goal) LastUpdate() time.Time {
	if cur, ok := g.Current(); ok {
		return cur.CreatedAt
	}
	return g.CreatedAt
}

// GoalsData splits goals into personal goals and challenge goals.
type GoalsData struct {
	Personal  []Goal `json:"personal" yaml:"personal"`
	Challenge []Goal `json:"challenge" yaml:"challenge"`
}

// Challenge is a social challenge the user participates in.
type Challenge struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Active       bool   `json:"active" yaml:"active"`
	UserRank     int    `json:"user_rank" yaml:"user_rank"`
	Participants int    `json:"participants" yaml:"participants"`
}

// ChallengeData lists the user's challenges.
type ChallengeData struct {
	Challenges []Challenge `json:"challenges" yaml:"challenges"`
}

// TrainerRecommendation is a recommendation authored by the user's trainer.
type TrainerRecommendation struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Read      bool      `json:"read" yaml:"read"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// TrainerData carries trainer-side signals.
type TrainerData struct {
	TrainerName     string                  `json:"trainer_name,omitempty" yaml:"trainer_name,omitempty"`
	UnreadMessages  int                     `json:"unread_messages" yaml:"unread_messages"`
	Recommendations []TrainerRecommendation `json:"recommendations" yaml:"recommendations"`
}
