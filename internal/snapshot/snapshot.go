// Package snapshot assembles the immutable GeneratorContext consumed by the
// insight pipeline, either from a Store or from a YAML snapshot file.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vitals/internal/model"
)

// DefaultHistoryDays bounds how far back metrics and completions are loaded.
const DefaultHistoryDays = 90

// Reader is the read side of the store the assembler needs.
type Reader interface {
	ListMetrics(ctx context.Context, userID string, since time.Time) ([]model.MetricObservation, error)
	ListHabits(ctx context.Context, userID string) ([]model.Habit, error)
	ListCompletions(ctx context.Context, userID string, since time.Time) ([]model.HabitCompletion, error)
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)
}

// Parts are the raw inputs of a generator context.
type Parts struct {
	UserID      string
	Now         time.Time
	Metrics     []model.MetricObservation
	Habits      []model.Habit
	Completions []model.HabitCompletion
	Goals       []model.Goal
	Challenges  []model.Goal
	WindowDays  int

	ChallengeData *model.ChallengeData
	TrainerData   *model.TrainerData
	QualityData   *model.QualityData
}

// Build derives a GeneratorContext from raw parts. Latest values, quality
// verdicts and today's metrics are computed from the metric history unless
// QualityData is supplied.
func Build(p Parts) *model.GeneratorContext {
	gctx := &model.GeneratorContext{
		UserID:        p.UserID,
		Now:           p.Now,
		ChallengeData: p.ChallengeData,
		TrainerData:   p.TrainerData,
		QualityData:   p.QualityData,
	}
	if len(p.Metrics) > 0 {
		latest := Latest(p.Metrics)
		gctx.MetricsData = &model.MetricsData{Latest: latest, History: p.Metrics}
		gctx.TodayMetrics = TodayFromLatest(latest, p.Now)
		if gctx.QualityData == nil {
			gctx.QualityData = QualityFromLatest(latest)
		}
	}
	if len(p.Habits) > 0 {
		gctx.HabitsData = &model.HabitsData{
			Habits:      p.Habits,
			Completions: p.Completions,
			WindowDays:  p.WindowDays,
		}
	}
	if len(p.Goals) > 0 || len(p.Challenges) > 0 {
		gctx.GoalsData = &model.GoalsData{Personal: p.Goals, Challenge: p.Challenges}
	}
	return gctx
}

// Assembler loads a user's data from a Reader.
type Assembler struct {
	reader      Reader
	historyDays int
	windowDays  int
}

// NewAssembler creates an Assembler. Non-positive historyDays falls back to
// DefaultHistoryDays; windowDays is passed through to habit analytics.
func NewAssembler(r Reader, historyDays, windowDays int) *Assembler {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Assembler{reader: r, historyDays: historyDays, windowDays: windowDays}
}

// Assemble loads metrics, habits, completions and goals concurrently. A
// source that fails is logged and left empty; only a cancelled context fails
// the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, userID string, now time.Time) (*model.GeneratorContext, error) {
	if now.IsZero() {
		now = time.Now()
	}
	since := now.AddDate(0, 0, -a.historyDays)
	log := zap.L().With(zap.String("component", "snapshot"), zap.String("user_id", userID))

	var (
		mu    sync.Mutex
		parts = Parts{UserID: userID, Now: now, WindowDays: a.windowDays}
	)
	g, gctx := errgroup.WithContext(ctx)
	load := func(name string, fn func(context.Context) error) func() error {
		return func() error {
			if err := fn(gctx); err != nil {
				log.Warn("snapshot: source failed", zap.String("source", name), zap.Error(err))
			}
			return nil
		}
	}

	g.Go(load("metrics", func(ctx context.Context) error {
		m, err := a.reader.ListMetrics(ctx, userID, since)
		mu.Lock()
		parts.Metrics = m
		mu.Unlock()
		return err
	}))
	g.Go(load("habits", func(ctx context.Context) error {
		h, err := a.reader.ListHabits(ctx, userID)
		mu.Lock()
		parts.Habits = h
		mu.Unlock()
		return err
	}))
	g.Go(load("completions", func(ctx context.Context) error {
		c, err := a.reader.ListCompletions(ctx, userID, since)
		mu.Lock()
		parts.Completions = c
		mu.Unlock()
		return err
	}))
	g.Go(load("goals", func(ctx context.Context) error {
		gs, err := a.reader.ListGoals(ctx, userID)
		mu.Lock()
		parts.Goals = gs
		mu.Unlock()
		return err
	}))
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "snapshot: assemble")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "snapshot: assemble")
	}

	out := Build(parts)
	log.Debug("snapshot: assembled",
		zap.Int("metrics", len(parts.Metrics)),
		zap.Int("habits", len(parts.Habits)),
		zap.Int("completions", len(parts.Completions)),
		zap.Int("goals", len(parts.Goals)),
	)
	return out, nil
}
