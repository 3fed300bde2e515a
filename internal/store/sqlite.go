package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vitals/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS metrics (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	value       REAL NOT NULL,
	unit        TEXT NOT NULL DEFAULT '',
	measured_at DATETIME NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	confidence  REAL
);

CREATE TABLE IF NOT EXISTS habits (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	title          TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	preferred_time TEXT NOT NULL DEFAULT 'anytime',
	difficulty     TEXT NOT NULL DEFAULT '',
	current_streak INTEGER NOT NULL DEFAULT 0,
	best_streak    INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS habit_completions (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	habit_id     TEXT NOT NULL REFERENCES habits(id),
	completed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	target_value REAL NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS goal_measurements (
	id         TEXT PRIMARY KEY,
	goal_id    TEXT NOT NULL REFERENCES goals(id),
	value      REAL NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS insight_preferences (
	user_id    TEXT PRIMARY KEY,
	prefs      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_metrics_user_date ON metrics(user_id, measured_at);
CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);
CREATE INDEX IF NOT EXISTS idx_completions_user_date ON habit_completions(user_id, completed_at);
CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);
CREATE INDEX IF NOT EXISTS idx_goal_measurements_goal ON goal_measurements(goal_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertMetric = `INSERT INTO metrics (id, user_id, metric_name, value, unit, measured_at, source, confidence)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET metric_name = excluded.metric_name, value = excluded.value,
		unit = excluded.unit, measured_at = excluded.measured_at, source = excluded.source,
		confidence = excluded.confidence`

func (s *SQLiteStore) RecordMetric(ctx context.Context, userID string, obs model.MetricObservation) error {
	obs = withMetricDefaults(obs)
	_, err := s.db.ExecContext(ctx, sqliteUpsertMetric,
		obs.ID, userID, obs.MetricName, obs.Value, obs.Unit, obs.MeasurementDate, obs.Source, nullFloat(obs.Confidence),
	)
	return eris.Wrapf(err, "sqlite: record metric %s", obs.MetricName)
}

func (s *SQLiteStore) ImportMetrics(ctx context.Context, userID string, obs []model.MetricObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import metrics: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertMetric)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import metrics: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, o := range obs {
		o = withMetricDefaults(o)
		if _, err := stmt.ExecContext(ctx,
			o.ID, userID, o.MetricName, o.Value, o.Unit, o.MeasurementDate, o.Source, nullFloat(o.Confidence),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import metric %s", o.ID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import metrics: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListMetrics(ctx context.Context, userID string, since time.Time) ([]model.MetricObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, metric_name, value, unit, measured_at, source, confidence FROM metrics
		 WHERE user_id = ? AND measured_at >= ? ORDER BY measured_at ASC, id ASC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list metrics")
	}
	defer rows.Close()

	var out []model.MetricObservation
	for rows.Next() {
		var o model.MetricObservation
		var conf sql.NullFloat64
		if err := rows.Scan(&o.ID, &o.MetricName, &o.Value, &o.Unit, &o.MeasurementDate, &o.Source, &conf); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metric")
		}
		if conf.Valid {
			o.Confidence = model.Float(conf.Float64)
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list metrics iterate")
}

func (s *SQLiteStore) CreateHabit(ctx context.Context, userID string, h model.Habit) (*model.Habit, error) {
	h = withHabitDefaults(h)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, title, category, preferred_time, difficulty, current_streak, best_streak, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, userID, h.Title, h.Category, string(h.PreferredTime), h.Difficulty, h.CurrentStreak, h.BestStreak, h.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert habit %s", h.Title)
	}
	return &h, nil
}

func (s *SQLiteStore) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, category, preferred_time, difficulty, current_streak, best_streak, created_at
		 FROM habits WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list habits")
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
	return out, eris.Wrap(rows.Err(), "sqlite: list habits iterate")
}

func (s *SQLiteStore) RecordCompletion(ctx context.Context, userID string, c model.HabitCompletion) error {
	c = withCompletionDefaults(userID, c)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO habit_completions (id, user_id, habit_id, completed_at) VALUES (?, ?, ?, ?)`,
		c.ID, userID, c.HabitID, c.CompletedAt,
	)
	return eris.Wrapf(err, "sqlite: record completion for habit %s", c.HabitID)
}

func (s *SQLiteStore) ImportCompletions(ctx context.Context, userID string, cs []model.HabitCompletion) (int64, error) {
	if len(cs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import completions: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, c := range cs {
		c = withCompletionDefaults(userID, c)
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO habit_completions (id, user_id, habit_id, completed_at) VALUES (?, ?, ?, ?)`,
			c.ID, userID, c.HabitID, c.CompletedAt,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import completion %s", c.ID)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import completions: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListCompletions(ctx context.Context, userID string, since time.Time) ([]model.HabitCompletion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, habit_id, completed_at FROM habit_completions
		 WHERE user_id = ? AND completed_at >= ? ORDER BY completed_at ASC, id ASC`,
		userID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list completions")
	}
	defer rows.Close()

	var out []model.HabitCompletion
	for rows.Next() {
		c := model.HabitCompletion{UserID: userID}
		if err := rows.Scan(&c.ID, &c.HabitID, &c.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan completion")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list completions iterate")
}

func (s *SQLiteStore) CreateGoal(ctx context.Context, userID string, g model.Goal) (*model.Goal, error) {
	g = withGoalDefaults(g)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create goal: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, target_value, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.ID, userID, g.Title, g.TargetValue, g.CreatedAt,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert goal %s", g.Title)
	}
	for _, m := range g.Measurements {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO goal_measurements (id, goal_id, value, created_at) VALUES (?, ?, ?, ?)`,
			newID(), g.ID, m.Value, m.CreatedAt.UTC(),
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert measurement for goal %s", g.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: create goal: commit")
	}
	g.Measurements = g.SortedMeasurements()
	return &g, nil
}

func (s *SQLiteStore) AddGoalMeasurement(ctx context.Context, goalID string, m model.GoalMeasurement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO goal_measurements (id, goal_id, value, created_at)
		 SELECT ?, id, ?, ? FROM goals WHERE id = ?`,
		newID(), m.Value, m.CreatedAt.UTC(), goalID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: add measurement to goal %s", goalID)
	}
	return checkRowsAffected(res, "goal", goalID)
}

func (s *SQLiteStore) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, target_value, created_at FROM goals WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list goals")
	}
	var goals []model.Goal
	for rows.Next() {
		var g model.Goal
		if err := rows.Scan(&g.ID, &g.Title, &g.TargetValue, &g.CreatedAt); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan goal")
		}
		goals = append(goals, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list goals iterate")
	}
	if len(goals) == 0 {
		return nil, nil
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT m.goal_id, m.value, m.created_at FROM goal_measurements m
		 JOIN goals g ON g.id = m.goal_id
		 WHERE g.user_id = ? ORDER BY m.created_at ASC, m.id ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list goal measurements")
	}
	defer mrows.Close()

	byGoal := make(map[string][]model.GoalMeasurement)
	for mrows.Next() {
		var goalID string
		var m model.GoalMeasurement
		if err := mrows.Scan(&goalID, &m.Value, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan goal measurement")
		}
		byGoal[goalID] = append(byGoal[goalID], m)
	}
	if err := mrows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list goal measurements iterate")
	}
	return attachMeasurements(goals, byGoal), nil
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (*model.InsightPreferences, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT prefs FROM insight_preferences WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		prefs := model.DefaultPreferences()
		return &prefs, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get preferences for %s", userID)
	}
	var prefs model.InsightPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal preferences")
	}
	return &prefs, nil
}

func (s *SQLiteStore) SavePreferences(ctx context.Context, userID string, prefs model.InsightPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal preferences")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO insight_preferences (user_id, prefs, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET prefs = excluded.prefs, updated_at = excluded.updated_at`,
		userID, string(raw), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save preferences for %s", userID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanHabit(row scannable) (*model.Habit, error) {
	var h model.Habit
	var preferred string
	if err := row.Scan(&h.ID, &h.Title, &h.Category, &preferred, &h.Difficulty, &h.CurrentStreak, &h.BestStreak, &h.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "scan habit")
	}
	h.PreferredTime = model.TimeOfDay(preferred)
	return &h, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
