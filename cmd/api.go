package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/vitals/internal/habit"
	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/snapshot"
	"github.com/sells-group/vitals/internal/store"
)

// apiServer serves insights, habit scores and preferences over HTTP.
type apiServer struct {
	store     store.Store
	assembler *snapshot.Assembler
	opts      insight.Options
	now       func() time.Time
	limiters  *ipLimiters
	origins   []string
}

type apiConfig struct {
	HistoryDays    int
	WindowDays     int
	Options        insight.Options
	RateLimit      float64
	Burst          int
	AllowedOrigins []string
}

func newAPIServer(st store.Store, c apiConfig) *apiServer {
	return &apiServer{
		store:     st,
		assembler: snapshot.NewAssembler(st, c.HistoryDays, c.WindowDays),
		opts:      c.Options,
		now:       time.Now,
		limiters:  newIPLimiters(rate.Limit(c.RateLimit), c.Burst),
		origins:   c.AllowedOrigins,
	}
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Use(s.limiters.middleware)
		r.Get("/insights", s.handleInsights)
		r.Get("/habits/scores", s.handleHabitScores)
		r.Get("/habits/recommendations", s.handleHabitRecommendations)
		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)
	})
	return r
}

func (s *apiServer) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	opts, err := s.queryOptions(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gctx, err := s.assembler.Assemble(r.Context(), userID, s.now())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	prefs, err := s.store.GetPreferences(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	out := insight.New().Generate(gctx, opts, prefs)
	if out == nil {
		out = []model.SmartInsight{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"insights": out})
}

func (s *apiServer) handleHabitScores(w http.ResponseWriter, r *http.Request) {
	gctx, err := s.assembler.Assemble(r.Context(), chi.URLParam(r, "userID"), s.now())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	scores := habitScores(gctx)
	if scores == nil {
		scores = []model.HabitQualityScore{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

func (s *apiServer) handleHabitRecommendations(w http.ResponseWriter, r *http.Request) {
	gctx, err := s.assembler.Assemble(r.Context(), chi.URLParam(r, "userID"), s.now())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	recs := habitRecommendations(gctx)
	if recs == nil {
		recs = []habit.HabitRecommendation{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *apiServer) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.GetPreferences(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func (s *apiServer) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var prefs model.InsightPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prefs = prefs.WithDefaults()
	for id, p := range prefs.PriorityOverrides {
		if p < 0 || p > 100 {
			respondError(w, http.StatusBadRequest, "priority override for "+id+" must be between 0 and 100")
			return
		}
	}
	if err := s.store.SavePreferences(r.Context(), userID, prefs); err != nil {
		s.serverError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// queryOptions layers ?max, ?min_priority and ?sources over the server
// defaults.
func (s *apiServer) queryOptions(r *http.Request) (insight.Options, error) {
	opts := s.opts
	q := r.URL.Query()
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errBadParam("max")
		}
		opts.MaxInsights = n
	}
	if v := q.Get("min_priority"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return opts, errBadParam("min_priority")
		}
		opts.MinPriority = insight.Priority(n)
	}
	if v := q.Get("sources"); v != "" {
		opts.EnabledSources = strings.Split(v, ",")
	}
	return opts, nil
}

type errBadParam string

func (e errBadParam) Error() string { return "invalid query parameter: " + string(e) }

func (s *apiServer) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("api: request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// limiterTTL is how long an idle client keeps its bucket.
const limiterTTL = 10 * time.Minute

// ipLimiters hands out one token bucket per client address. Buckets idle
// for limiterTTL are swept on the next lookup after a TTL has passed.
type ipLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*clientBucket
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiters{limit: limit, burst: burst, now: time.Now, buckets: make(map[string]*clientBucket)}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterTTL {
		for addr, b := range l.buckets {
			if now.Sub(b.lastSeen) >= limiterTTL {
				delete(l.buckets, addr)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.lim
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *ipLimiters) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !l.get(ip).Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
