package habit

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/vitals/internal/model"
)

// Relationship thresholds.
const (
	minChainCoOccurrences    = 3
	minChainRate             = 50.0
	minDependencySourceDays  = 3
	dependencyLiftRatio      = 1.3
	minDependencyProbability = 0.5
	minSynergyStrength       = 60.0
	minCategorySynergyDays   = 5
)

// Chain is a pair of habits that tend to be done on the same day.
type Chain struct {
	Habit1           string  `json:"habit1"`
	Habit2           string  `json:"habit2"`
	SharedDays       int     `json:"shared_days"`
	CoOccurrenceRate float64 `json:"co_occurrence_rate"` // 0-100
	// AvgTimeDifference is the mean wall-clock gap in minutes between the
	// first completion of each habit on shared days.
	AvgTimeDifference float64 `json:"avg_time_difference"`
}

// DetectChains returns habit pairs with at least three shared days and a
// co-occurrence rate above 50%, strongest first.
func (a *Analyzer) DetectChains(completions []model.HabitCompletion) []Chain {
	loc := a.now.Location()
	ids := habitIDs(completions)
	firstByDay := make(map[string]map[int]time.Time, len(ids))
	for _, id := range ids {
		m := make(map[int]time.Time)
		for _, c := range completionsFor(id, completions) {
			d := dayIndex(c.CompletedAt, loc)
			if _, ok := m[d]; !ok {
				m[d] = c.CompletedAt
			}
		}
		firstByDay[id] = m
	}

	var chains []Chain
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			d1, d2 := firstByDay[ids[i]], firstByDay[ids[j]]
			shared := 0
			var gapSum float64
			for _, d := range sortedTimeDays(d1) {
				t1 := d1[d]
				t2, ok := d2[d]
				if !ok {
					continue
				}
				shared++
				gapSum += math.Abs(t1.Sub(t2).Minutes())
			}
			if shared < minChainCoOccurrences {
				continue
			}
			minDays := len(d1)
			if len(d2) < minDays {
				minDays = len(d2)
			}
			rate := float64(shared) / float64(minDays) * 100
			if rate <= minChainRate {
				continue
			}
			chains = append(chains, Chain{
				Habit1:            ids[i],
				Habit2:            ids[j],
				SharedDays:        shared,
				CoOccurrenceRate:  rate,
				AvgTimeDifference: gapSum / float64(shared),
			})
		}
	}

	sort.SliceStable(chains, func(i, j int) bool {
		return chains[i].CoOccurrenceRate > chains[j].CoOccurrenceRate
	})
	return chains
}

// Relationship labels a dependency.
type Relationship string

const (
	RelationshipLeadsTo     Relationship = "leads_to"
	RelationshipIndependent Relationship = "independent"
)

// Dependency estimates P(To done | From done) on the same day.
type Dependency struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Probability  float64      `json:"probability"` // conditional, 0-1
	BaseRate     float64      `json:"base_rate"`   // unconditional rate of To, 0-1
	Strength     float64      `json:"strength"`    // Probability * 100
	Relationship Relationship `json:"relationship"`
}

// DetectDependencies evaluates every ordered pair of habits whose source
// has at least three active days. Base rates are taken over the union of
// days with any completion.
func (a *Analyzer) DetectDependencies(completions []model.HabitCompletion) []Dependency {
	loc := a.now.Location()
	ids := habitIDs(completions)
	days := make(map[string]map[int]bool, len(ids))
	union := make(map[int]bool)
	for _, id := range ids {
		days[id] = activeDays(completionsFor(id, completions), loc)
		for d := range days[id] {
			union[d] = true
		}
	}
	if len(union) == 0 {
		return nil
	}

	var deps []Dependency
	for _, from := range ids {
		src := days[from]
		if len(src) < minDependencySourceDays {
			continue
		}
		for _, to := range ids {
			if to == from {
				continue
			}
			both := 0
			for d := range src {
				if days[to][d] {
					both++
				}
			}
			p := float64(both) / float64(len(src))
			base := float64(len(days[to])) / float64(len(union))
			rel := RelationshipIndependent
			if p > minDependencyProbability && p >= base*dependencyLiftRatio {
				rel = RelationshipLeadsTo
			}
			deps = append(deps, Dependency{
				From:         from,
				To:           to,
				Probability:  p,
				BaseRate:     base,
				Strength:     p * 100,
				Relationship: rel,
			})
		}
	}
	return deps
}

// SynergyKind records why two habits were paired.
type SynergyKind string

const (
	SynergyMutual   SynergyKind = "mutual"
	SynergyCategory SynergyKind = "category"
)

// Synergy is a mutually reinforcing pair of habits.
type Synergy struct {
	Habit1 string      `json:"habit1"`
	Habit2 string      `json:"habit2"`
	Score  float64     `json:"score"` // 0-100
	Kind   SynergyKind `json:"kind"`
}

// DetectSynergies pairs habits whose dependency strengths both exceed 60, or
// that share a category and were done together on at least five days.
func (a *Analyzer) DetectSynergies(habits []model.Habit, completions []model.HabitCompletion) []Synergy {
	strength := make(map[[2]string]float64)
	for _, d := range a.DetectDependencies(completions) {
		strength[[2]string{d.From, d.To}] = d.Strength
	}

	loc := a.now.Location()
	days := make(map[string]map[int]bool, len(habits))
	for _, h := range habits {
		days[h.ID] = activeDays(completionsFor(h.ID, completions), loc)
	}

	sorted := make([]model.Habit, len(habits))
	copy(sorted, habits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out []Synergy
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			h1, h2 := sorted[i], sorted[j]
			s12 := strength[[2]string{h1.ID, h2.ID}]
			s21 := strength[[2]string{h2.ID, h1.ID}]
			if s12 > minSynergyStrength && s21 > minSynergyStrength {
				out = append(out, Synergy{Habit1: h1.ID, Habit2: h2.ID, Score: (s12 + s21) / 2, Kind: SynergyMutual})
				continue
			}
			if h1.Category == "" || h1.Category != h2.Category {
				continue
			}
			shared := 0
			for d := range days[h1.ID] {
				if days[h2.ID][d] {
					shared++
				}
			}
			if shared >= minCategorySynergyDays {
				out = append(out, Synergy{
					Habit1: h1.ID,
					Habit2: h2.ID,
					Score:  math.Min(float64(shared)*10, 100),
					Kind:   SynergyCategory,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func sortedTimeDays(m map[int]time.Time) []int {
	out := make([]int, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
