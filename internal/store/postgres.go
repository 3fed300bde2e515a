package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vitals/internal/db"
	"github.com/sells-group/vitals/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgInsertMetric = `INSERT INTO metrics (id, user_id, metric_name, value, unit, measured_at, source, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET metric_name = EXCLUDED.metric_name, value = EXCLUDED.value,
			unit = EXCLUDED.unit, measured_at = EXCLUDED.measured_at, source = EXCLUDED.source,
			confidence = EXCLUDED.confidence`
	pgListMetrics = `SELECT id, metric_name, value, unit, measured_at, source, confidence FROM metrics
		WHERE user_id = $1 AND measured_at >= $2 ORDER BY measured_at ASC, id ASC`
	pgListCompletions = `SELECT id, habit_id, completed_at FROM habit_completions
		WHERE user_id = $1 AND completed_at >= $2 ORDER BY completed_at ASC, id ASC`
	pgListHabits = `SELECT id, title, category, preferred_time, difficulty, current_streak, best_streak, created_at
		FROM habits WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	pgGetPreferences = `SELECT prefs FROM insight_preferences WHERE user_id = $1`
)

// preparedStatements lists queries to prepare on each new connection. These
// are the reads behind every insight request.
var preparedStatements = map[string]string{
	"insert_metric":    pgInsertMetric,
	"list_metrics":     pgListMetrics,
	"list_completions": pgListCompletions,
	"list_habits":      pgListHabits,
	"get_preferences":  pgGetPreferences,
}

var metricColumns = []string{"id", "user_id", "metric_name", "value", "unit", "measured_at", "source", "confidence"}

var completionColumns = []string{"id", "user_id", "habit_id", "completed_at"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS metrics (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id     TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL DEFAULT '',
	measured_at TIMESTAMPTZ NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	confidence  DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS habits (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT NOT NULL,
	title          TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	preferred_time TEXT NOT NULL DEFAULT 'anytime',
	difficulty     TEXT NOT NULL DEFAULT '',
	current_streak INTEGER NOT NULL DEFAULT 0,
	best_streak    INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS habit_completions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL,
	habit_id     TEXT NOT NULL REFERENCES habits(id),
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	target_value DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS goal_measurements (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	goal_id    TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
	value      DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS insight_preferences (
	user_id    TEXT PRIMARY KEY,
	prefs      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_metrics_user_date ON metrics(user_id, measured_at);
CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);
CREATE INDEX IF NOT EXISTS idx_completions_user_date ON habit_completions(user_id, completed_at);
CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);
CREATE INDEX IF NOT EXISTS idx_goal_measurements_goal ON goal_measurements(goal_id, created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordMetric(ctx context.Context, userID string, obs model.MetricObservation) error {
	obs = withMetricDefaults(obs)
	_, err := s.pool.Exec(ctx, pgInsertMetric,
		obs.ID, userID, obs.MetricName, obs.Value, obs.Unit, obs.MeasurementDate, obs.Source, obs.Confidence,
	)
	return eris.Wrapf(err, "postgres: record metric %s", obs.MetricName)
}

// ImportMetrics upserts a batch keyed on id, so re-importing an export
// updates rows instead of duplicating them.
func (s *PostgresStore) ImportMetrics(ctx context.Context, userID string, obs []model.MetricObservation) (int64, error) {
	rows := make([][]any, 0, len(obs))
	for _, o := range obs {
		o = withMetricDefaults(o)
		rows = append(rows, []any{o.ID, userID, o.MetricName, o.Value, o.Unit, o.MeasurementDate, o.Source, o.Confidence})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.Upsert{
		Table:   "metrics",
		Columns: metricColumns,
		Key:     []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import metrics")
}

func (s *PostgresStore) ListMetrics(ctx context.Context, userID string, since time.Time) ([]model.MetricObservation, error) {
	rows, err := s.pool.Query(ctx, pgListMetrics, userID, since.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list metrics")
	}
	defer rows.Close()

	var out []model.MetricObservation
	for rows.Next() {
		var o model.MetricObservation
		if err := rows.Scan(&o.ID, &o.MetricName, &o.Value, &o.Unit, &o.MeasurementDate, &o.Source, &o.Confidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan metric")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list metrics iterate")
}

func (s *PostgresStore) CreateHabit(ctx context.Context, userID string, h model.Habit) (*model.Habit, error) {
	h = withHabitDefaults(h)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO habits (id, user_id, title, category, preferred_time, difficulty, current_streak, best_streak, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		h.ID, userID, h.Title, h.Category, string(h.PreferredTime), h.Difficulty, h.CurrentStreak, h.BestStreak, h.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert habit %s", h.Title)
	}
	return &h, nil
}

func (s *PostgresStore) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := s.pool.Query(ctx, pgListHabits, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list habits")
	}
	defer rows.Close()

	var out []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list habits iterate")
}

func (s *PostgresStore) RecordCompletion(ctx context.Context, userID string, c model.HabitCompletion) error {
	c = withCompletionDefaults(userID, c)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO habit_completions (id, user_id, habit_id, completed_at) VALUES ($1, $2, $3, $4)`,
		c.ID, userID, c.HabitID, c.CompletedAt,
	)
	return eris.Wrapf(err, "postgres: record completion for habit %s", c.HabitID)
}

// ImportCompletions appends a batch with COPY. The completion log is
// append-only, so ids must be new.
func (s *PostgresStore) ImportCompletions(ctx context.Context, userID string, cs []model.HabitCompletion) (int64, error) {
	rows := make([][]any, 0, len(cs))
	for _, c := range cs {
		c = withCompletionDefaults(userID, c)
		rows = append(rows, []any{c.ID, userID, c.HabitID, c.CompletedAt})
	}
	n, err := db.CopyFrom(ctx, s.pool, "habit_completions", completionColumns, rows)
	return n, eris.Wrap(err, "postgres: import completions")
}

func (s *PostgresStore) ListCompletions(ctx context.Context, userID string, since time.Time) ([]model.HabitCompletion, error) {
	rows, err := s.pool.Query(ctx, pgListCompletions, userID, since.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list completions")
	}
	defer rows.Close()

	var out []model.HabitCompletion
	for rows.Next() {
		c := model.HabitCompletion{UserID: userID}
		if err := rows.Scan(&c.ID, &c.HabitID, &c.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan completion")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list completions iterate")
}

func (s *PostgresStore) CreateGoal(ctx context.Context, userID string, g model.Goal) (*model.Goal, error) {
	g = withGoalDefaults(g)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create goal: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO goals (id, user_id, title, target_value, created_at) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, userID, g.Title, g.TargetValue, g.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert goal %s", g.Title)
	}
	for _, m := range g.Measurements {
		if _, err := tx.Exec(ctx,
			`INSERT INTO goal_measurements (id, goal_id, value, created_at) VALUES ($1, $2, $3, $4)`,
			newID(), g.ID, m.Value, m.CreatedAt.UTC(),
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: insert measurement for goal %s", g.ID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: create goal: commit")
	}
	g.Measurements = g.SortedMeasurements()
	return &g, nil
}

func (s *PostgresStore) AddGoalMeasurement(ctx context.Context, goalID string, m model.GoalMeasurement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO goal_measurements (id, goal_id, value, created_at)
		 SELECT $1, id, $2, $3 FROM goals WHERE id = $4`,
		newID(), m.Value, m.CreatedAt.UTC(), goalID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: add measurement to goal %s", goalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "goal %s", goalID)
	}
	return nil
}

func (s *PostgresStore) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, target_value, created_at FROM goals WHERE user_id = $1 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list goals")
	}
	goals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Goal, error) {
		var g model.Goal
		err := row.Scan(&g.ID, &g.Title, &g.TargetValue, &g.CreatedAt)
		return g, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan goals")
	}
	if len(goals) == 0 {
		return nil, nil
	}

	mrows, err := s.pool.Query(ctx,
		`SELECT m.goal_id, m.value, m.created_at FROM goal_measurements m
		 JOIN goals g ON g.id = m.goal_id
		 WHERE g.user_id = $1 ORDER BY m.created_at ASC, m.id ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list goal measurements")
	}
	defer mrows.Close()

	byGoal := make(map[string][]model.GoalMeasurement)
	for mrows.Next() {
		var goalID string
		var m model.GoalMeasurement
		if err := mrows.Scan(&goalID, &m.Value, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan goal measurement")
		}
		byGoal[goalID] = append(byGoal[goalID], m)
	}
	if err := mrows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list goal measurements iterate")
	}
	return attachMeasurements(goals, byGoal), nil
}

func (s *PostgresStore) GetPreferences(ctx context.Context, userID string) (*model.InsightPreferences, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, pgGetPreferences, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		prefs := model.DefaultPreferences()
		return &prefs, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get preferences for %s", userID)
	}
	var prefs model.InsightPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal preferences")
	}
	return &prefs, nil
}

func (s *PostgresStore) SavePreferences(ctx context.Context, userID string, prefs model.InsightPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal preferences")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO insight_preferences (user_id, prefs, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET prefs = EXCLUDED.prefs, updated_at = EXCLUDED.updated_at`,
		userID, raw, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save preferences for %s", userID)
}
