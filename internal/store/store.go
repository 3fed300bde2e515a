package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/vitals/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface behind the insight pipeline.
type Store interface {
	// Metrics
	RecordMetric(ctx context.Context, userID string, obs model.MetricObservation) error
	ImportMetrics(ctx context.Context, userID string, obs []model.MetricObservation) (int64, error)
	ListMetrics(ctx context.Context, userID string, since time.Time) ([]model.MetricObservation, error)

	// Habits
	CreateHabit(ctx context.Context, userID string, h model.Habit) (*model.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]model.Habit, error)
	RecordCompletion(ctx context.Context, userID string, c model.HabitCompletion) error
	ImportCompletions(ctx context.Context, userID string, cs []model.HabitCompletion) (int64, error)
	ListCompletions(ctx context.Context, userID string, since time.Time) ([]model.HabitCompletion, error)

	// Goals
	CreateGoal(ctx context.Context, userID string, g model.Goal) (*model.Goal, error)
	AddGoalMeasurement(ctx context.Context, goalID string, m model.GoalMeasurement) error
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)

	// Preferences
	GetPreferences(ctx context.Context, userID string) (*model.InsightPreferences, error)
	SavePreferences(ctx context.Context, userID string, prefs model.InsightPreferences) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// withMetricDefaults fills a missing id and unit and stores the timestamp in UTC.
func withMetricDefaults(obs model.MetricObservation) model.MetricObservation {
	if obs.ID == "" {
		obs.ID = newID()
	}
	if obs.Unit == "" {
		obs.Unit = model.MetricUnits[obs.MetricName]
	}
	obs.MeasurementDate = obs.MeasurementDate.UTC()
	return obs
}

func withHabitDefaults(h model.Habit) model.Habit {
	if h.ID == "" {
		h.ID = newID()
	}
	if h.PreferredTime == "" {
		h.PreferredTime = model.Anytime
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	h.CreatedAt = h.CreatedAt.UTC()
	return h
}

func withCompletionDefaults(userID string, c model.HabitCompletion) model.HabitCompletion {
	if c.ID == "" {
		c.ID = newID()
	}
	c.UserID = userID
	c.CompletedAt = c.CompletedAt.UTC()
	return c
}

func withGoalDefaults(g model.Goal) model.Goal {
	if g.ID == "" {
		g.ID = newID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g
}

// attachMeasurements groups measurements onto their goals in order.
func attachMeasurements(goals []model.Goal, byGoal map[string][]model.GoalMeasurement) []model.Goal {
	for i := range goals {
		goals[i].Measurements = byGoal[goals[i].ID]
	}
	return goals
}

func newID() string {
	return uuid.New().String()
}
