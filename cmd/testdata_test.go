package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/vitals/internal/store"
)

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

const testSnapshot = `
user_id: u1
now: 2024-07-01T12:00:00Z
window_days: 30
metrics:
  - metric_name: Steps
    value: 8000
    measurement_date: 2024-07-01T09:00:00Z
    source: whoop
    confidence: 60
  - metric_name: Steps
    value: 11000
    measurement_date: 2024-06-30T09:00:00Z
    source: whoop
    confidence: 60
habits:
  - id: h1
    title: Walk
    category: fitness
    preferred_time: morning
    current_streak: 3
    best_streak: 5
completions:
  - id: c1
    habit_id: h1
    completed_at: 2024-07-01T07:30:00Z
  - id: c2
    habit_id: h1
    completed_at: 2024-06-30T07:30:00Z
goals:
  - id: g1
    title: Run 100km
    target_value: 100
    measurements:
      - value: 85
        created_at: 2024-06-30T18:00:00Z
challenges:
  - id: c1
    name: July steps
    active: true
    user_rank: 2
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0644))
	return path
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "vitals.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}
