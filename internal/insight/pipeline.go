package insight

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vitals/internal/model"
)

// Pipeline defaults.
const (
	DefaultMaxInsights = 7
	DefaultMinPriority = 30
	maxFreshness       = 10.0
)

// typeWeights boost insight types during final ranking. Types not listed
// weigh 0.
var typeWeights = map[model.InsightType]float64{
	model.InsightCritical:       100,
	model.InsightWarning:        80,
	model.InsightAchievement:    60,
	model.InsightRecommendation: 40,
	model.InsightInfo:           20,
}

// Options bound the pipeline output. The zero value means the defaults:
// MaxInsights <= 0 and a nil MinPriority fall back to DefaultMaxInsights and
// DefaultMinPriority.
type Options struct {
	MaxInsights int
	MinPriority *int
	// EnabledSources restricts which generators run. Empty runs all.
	EnabledSources []string
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{MaxInsights: DefaultMaxInsights, MinPriority: Priority(DefaultMinPriority)}
}

// Priority returns a pointer for Options.MinPriority.
func Priority(p int) *int {
	return &p
}

func (o Options) minPriority() int {
	if o.MinPriority == nil {
		return DefaultMinPriority
	}
	return *o.MinPriority
}

// Pipeline runs a generator registry and post-processes the output.
type Pipeline struct {
	generators []Generator
}

// New creates a Pipeline over gens, or over DefaultGenerators when none are
// given.
func New(gens ...Generator) *Pipeline {
	if len(gens) == 0 {
		gens = DefaultGenerators()
	}
	return &Pipeline{generators: gens}
}

// GenerateInsights runs the default pipeline without personalization.
func GenerateInsights(gctx *model.GeneratorContext, opts Options) []model.SmartInsight {
	return New().Generate(gctx, opts, nil)
}

// Generate runs every enabled generator against gctx, then dedupes,
// personalizes, ranks, filters and truncates. It never fails: a generator
// that panics contributes nothing. prefs may be nil.
func (p *Pipeline) Generate(gctx *model.GeneratorContext, opts Options, prefs *model.InsightPreferences) []model.SmartInsight {
	if gctx == nil {
		gctx = &model.GeneratorContext{}
	}
	if gctx.Now.IsZero() {
		frozen := *gctx
		frozen.Now = time.Now()
		gctx = &frozen
	}
	if opts.MaxInsights <= 0 {
		opts.MaxInsights = DefaultMaxInsights
	}

	log := zap.L().With(
		zap.String("component", "insight"),
		zap.String("run_id", uuid.NewString()),
		zap.String("user_id", gctx.UserID),
	)

	enabled := sourceFilter(opts.EnabledSources)
	var all []model.SmartInsight
	for _, g := range p.generators {
		if enabled != nil && !enabled[g.Source] {
			continue
		}
		out, err := runGenerator(g, gctx)
		if err != nil {
			log.Warn("insight: generator failed", zap.String("generator", g.Source), zap.Error(err))
			continue
		}
		log.Debug("insight: generator complete", zap.String("generator", g.Source), zap.Int("count", len(out)))
		all = append(all, out...)
	}

	result := Dedupe(all)
	if prefs != nil {
		result = Personalize(result, *prefs)
	}
	result = Rank(result, gctx.Now)
	result = FilterMinPriority(result, opts.minPriority())
	if len(result) > opts.MaxInsights {
		result = result[:opts.MaxInsights]
	}

	log.Debug("insight: pipeline complete",
		zap.Int("generated", len(all)),
		zap.Int("returned", len(result)),
	)
	return result
}

// runGenerator isolates one generator. A panic is converted to an error and
// insights missing an id or message are dropped.
func runGenerator(g Generator, gctx *model.GeneratorContext) (out []model.SmartInsight, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = eris.Errorf("insight: generator %s panicked: %v", g.Source, r)
		}
	}()
	raw := g.Generate(gctx)
	out = make([]model.SmartInsight, 0, len(raw))
	for _, in := range raw {
		if in.ID == "" || in.Message == "" {
			continue
		}
		if in.Source == "" {
			in.Source = g.Source
		}
		if in.Timestamp.IsZero() {
			in.Timestamp = gctx.Now
		}
		in.Priority = clampPriority(in.Priority)
		out = append(out, in)
	}
	return out, nil
}

func sourceFilter(sources []string) map[string]bool {
	if len(sources) == 0 {
		return nil
	}
	m := make(map[string]bool, len(sources))
	for _, s := range sources {
		m[s] = true
	}
	return m
}

// Dedupe keeps the highest-priority insight per (source, type). Ties keep
// the earlier insight; each group stays at its first member's position.
func Dedupe(insights []model.SmartInsight) []model.SmartInsight {
	type key struct {
		source string
		typ    model.InsightType
	}
	pos := make(map[key]int)
	var out []model.SmartInsight
	for _, in := range insights {
		k := key{in.Source, in.Type}
		i, seen := pos[k]
		if !seen {
			pos[k] = len(out)
			out = append(out, in)
			continue
		}
		if in.Priority > out[i].Priority {
			out[i] = in
		}
	}
	return out
}

// Personalize drops disabled types and muted ids and applies priority
// overrides, which replace the base priority.
func Personalize(insights []model.SmartInsight, prefs model.InsightPreferences) []model.SmartInsight {
	out := make([]model.SmartInsight, 0, len(insights))
	for _, in := range insights {
		if !prefs.TypeEnabled(in.Type) || prefs.MutedInsights[in.ID] {
			continue
		}
		if p, ok := prefs.PriorityOverrides[in.ID]; ok {
			in.Priority = clampPriority(p)
		}
		out = append(out, in)
	}
	return out
}

// Score is the final ranking score: priority + type weight + freshness.
func Score(in model.SmartInsight, now time.Time) float64 {
	hours := now.Sub(in.Timestamp).Hours()
	freshness := math.Max(0, maxFreshness-hours)
	if hours < 0 {
		freshness = maxFreshness
	}
	return float64(in.Priority) + typeWeights[in.Type] + freshness
}

// Rank sorts by descending Score, keeping the input order for ties.
func Rank(insights []model.SmartInsight, now time.Time) []model.SmartInsight {
	out := make([]model.SmartInsight, len(insights))
	copy(out, insights)
	sort.SliceStable(out, func(i, j int) bool {
		return Score(out[i], now) > Score(out[j], now)
	})
	return out
}

// FilterMinPriority drops insights below minPriority.
func FilterMinPriority(insights []model.SmartInsight, minPriority int) []model.SmartInsight {
	out := make([]model.SmartInsight, 0, len(insights))
	for _, in := range insights {
		if in.Priority >= minPriority {
			out = append(out, in)
		}
	}
	return out
}
