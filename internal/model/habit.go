package model

import "time"

// TimeOfDay names a coarse slot of the day.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // 05:00-11:59
	Afternoon TimeOfDay = "afternoon" // 12:00-16:59
	Evening   TimeOfDay = "evening"   // 17:00-20:59
	Night     TimeOfDay = "night"     // everything else
	Anytime   TimeOfDay = "anytime"
)

// TimeOfDayFor buckets t by its hour in t's own location.
func TimeOfDayFor(t time.Time) TimeOfDay {
	h := t.Hour()
	switch {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 21:
		return Evening
	default:
		return Night
	}
}

// Habit is a tracked habit as read from the habits store.
type Habit struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Category      string    `json:"category,omitempty" yaml:"category,omitempty"`
	PreferredTime TimeOfDay `json:"preferred_time,omitempty" yaml:"preferred_time,omitempty"`
	Difficulty    string    `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	CurrentStreak int       `json:"current_streak" yaml:"current_streak"`
	BestStreak    int       `json:"best_streak" yaml:"best_streak"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// HasPreferredTime reports whether the habit is pinned to a concrete slot.
func (h Habit) HasPreferredTime() bool {
	return h.PreferredTime != "" && h.PreferredTime != Anytime
}

// HabitCompletion is one entry of the append-only completion log.
type HabitCompletion struct {
	ID          string    `json:"id" yaml:"id"`
	HabitID     string    `json:"habit_id" yaml:"habit_id"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
	UserID      string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
}

// HabitsData is the habits slice of the generator context. Completions are
// supplied explicitly rather than derived from today's metrics.
type HabitsData struct {
	Habits      []Habit           `json:"habits"`
	Completions []HabitCompletion `json:"completions"`
	// WindowDays is the trailing consistency window; zero means 30 days.
	WindowDays int `json:"window_days,omitempty"`
}

// Grade is a letter grade for a habit quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// QualityFactors are the 0-100 inputs of a habit quality score.
type QualityFactors struct {
	Consistency     float64 `json:"consistency"`
	StreakStability float64 `json:"streak_stability"`
	Trend           float64 `json:"trend"`
	CompletionRate  float64 `json:"completion_rate"`
}

// HabitQualityScore is the composite quality verdict for one habit.
type HabitQualityScore struct {
	HabitID        string         `json:"habit_id"`
	OverallScore   float64        `json:"overall_score"`
	Factors        QualityFactors `json:"factors"`
	Grade          Grade          `json:"grade"`
	Recommendation string         `json:"recommendation"`
}
