package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/snapshot"
	"github.com/sells-group/vitals/internal/store"
)

func newTestAPI(t *testing.T, st store.Store, rateLimit float64, burst int) http.Handler {
	t.Helper()
	api := newAPIServer(st, apiConfig{
		HistoryDays:    90,
		WindowDays:     30,
		Options:        insight.Options{MaxInsights: 20, MinPriority: insight.Priority(0)},
		RateLimit:      rateLimit,
		Burst:          burst,
		AllowedOrigins: []string{"*"},
	})
	api.now = func() time.Time { return testNow }
	return api.routes()
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st := newTestStore(t)
	f, err := snapshot.ReadFile(writeSnapshot(t))
	require.NoError(t, err)
	require.NoError(t, importFile(context.Background(), st, "u1", f))
	return st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPI_Health(t *testing.T) {
	rr := get(t, newTestAPI(t, newTestStore(t), 100, 100), "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_Insights(t *testing.T) {
	h := newTestAPI(t, seededStore(t), 100, 100)

	rr := get(t, h, "/v1/users/u1/insights")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Insights []model.SmartInsight `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.Insights)
	for i := 1; i < len(body.Insights); i++ {
		assert.GreaterOrEqual(t,
			insight.Score(body.Insights[i-1], testNow),
			insight.Score(body.Insights[i], testNow))
	}
}

func TestAPI_InsightsQueryOptions(t *testing.T) {
	h := newTestAPI(t, seededStore(t), 100, 100)

	rr := get(t, h, "/v1/users/u1/insights?max=1")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Insights []model.SmartInsight `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Insights, 1)

	rr = get(t, h, "/v1/users/u1/insights?sources=goal")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	for _, in := range body.Insights {
		assert.Equal(t, "goal", in.Source)
	}
}

func TestAPI_InsightsBadQuery(t *testing.T) {
	h := newTestAPI(t, newTestStore(t), 100, 100)

	for _, q := range []string{"max=zero", "max=-2", "min_priority=101"} {
		rr := get(t, h, "/v1/users/u1/insights?"+q)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestAPI_InsightsUnknownUser(t *testing.T) {
	rr := get(t, newTestAPI(t, newTestStore(t), 100, 100), "/v1/users/nobody/insights")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"insights":[]}`, rr.Body.String())
}

func TestAPI_HabitScoresAndRecommendations(t *testing.T) {
	h := newTestAPI(t, seededStore(t), 100, 100)

	rr := get(t, h, "/v1/users/u1/habits/scores")
	require.Equal(t, http.StatusOK, rr.Code)
	var scores struct {
		Scores []model.HabitQualityScore `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scores))
	require.Len(t, scores.Scores, 1)
	assert.Equal(t, "h1", scores.Scores[0].HabitID)

	rr = get(t, h, "/v1/users/u1/habits/recommendations")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recommendations"`)
}

func TestAPI_PreferencesRoundTrip(t *testing.T) {
	h := newTestAPI(t, newTestStore(t), 100, 100)

	rr := get(t, h, "/v1/users/u1/preferences")
	require.Equal(t, http.StatusOK, rr.Code)
	var prefs model.InsightPreferences
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &prefs))
	assert.True(t, prefs.TypeEnabled(model.InsightSocial))

	body := `{"enabled_types":{"social":false},"muted_insights":{"quality-fair":true},"priority_overrides":{"goal-near-g1":90}}`
	req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/preferences", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, h, "/v1/users/u1/preferences")
	require.Equal(t, http.StatusOK, rr.Code)
	prefs = model.InsightPreferences{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &prefs))
	assert.False(t, prefs.TypeEnabled(model.InsightSocial))
	assert.True(t, prefs.MutedInsights["quality-fair"])
	assert.Equal(t, 90, prefs.PriorityOverrides["goal-near-g1"])
}

func put(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func insightTypes(t *testing.T, rr *httptest.ResponseRecorder) map[model.InsightType]bool {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Insights []model.SmartInsight `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	types := make(map[model.InsightType]bool)
	for _, in := range body.Insights {
		types[in.Type] = true
	}
	return types
}

func TestAPI_PutPreferencesNarrowsEnabledTypes(t *testing.T) {
	h := newTestAPI(t, seededStore(t), 100, 100)
	require.True(t, insightTypes(t, get(t, h, "/v1/users/u1/insights"))[model.InsightWarning])

	rr := put(t, h, "/v1/users/u1/preferences", `{"enabled_types":{"critical":true}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var saved model.InsightPreferences
	require.NoError(t, json.Unmarshal(get(t, h, "/v1/users/u1/preferences").Body.Bytes(), &saved))
	assert.Equal(t, map[model.InsightType]bool{model.InsightCritical: true}, saved.EnabledTypes)
	assert.NotNil(t, saved.MutedInsights)
	assert.Equal(t, 300, saved.RefreshIntervalSeconds)

	types := insightTypes(t, get(t, h, "/v1/users/u1/insights"))
	assert.False(t, types[model.InsightWarning])
	for typ := range types {
		assert.Equal(t, model.InsightCritical, typ)
	}
}

func TestAPI_PutPreferencesRejectsBadInput(t *testing.T) {
	h := newTestAPI(t, newTestStore(t), 100, 100)

	for _, body := range []string{`{not json`, `{"priority_overrides":{"x":250}}`} {
		req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/preferences", strings.NewReader(body))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestAPI_RateLimit(t *testing.T) {
	h := newTestAPI(t, newTestStore(t), 0.001, 1)

	assert.Equal(t, http.StatusOK, get(t, h, "/v1/users/u1/preferences").Code)
	rr := get(t, h, "/v1/users/u1/preferences")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "rate limit exceeded")

	// Health is not rate limited.
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
}

func TestIPLimiters_PerAddress(t *testing.T) {
	l := newIPLimiters(0.001, 1)
	assert.True(t, l.get("10.0.0.1").Allow())
	assert.False(t, l.get("10.0.0.1").Allow())
	assert.True(t, l.get("10.0.0.2").Allow())
}

func TestIPLimiters_SweepsIdleClients(t *testing.T) {
	l := newIPLimiters(0.001, 1)
	clock := testNow
	l.now = func() time.Time { return clock }

	l.get("10.0.0.1")
	l.get("10.0.0.2")
	assert.Equal(t, 2, l.size())

	clock = clock.Add(limiterTTL / 2)
	l.get("10.0.0.2")

	clock = clock.Add(limiterTTL)
	l.get("10.0.0.3")
	assert.Equal(t, 1, l.size())

	clock = clock.Add(limiterTTL / 2)
	assert.True(t, l.get("10.0.0.1").Allow(), "swept client starts with a fresh bucket")
}

func TestAPI_CORSPreflight(t *testing.T) {
	h := newTestAPI(t, newTestStore(t), 100, 100)

	req := httptest.NewRequest(http.MethodOptions, "/v1/users/u1/insights", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
