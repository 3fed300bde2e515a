package habit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vitals/internal/model"
)

var testNow = time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC)

// daily returns one completion per day for the last n days (today included)
// at the given hour.
func daily(habitID string, n, hour int) []model.HabitCompletion {
	out := make([]model.HabitCompletion, 0, n)
	for i := 0; i < n; i++ {
		day := testNow.AddDate(0, 0, -i)
		out = append(out, model.HabitCompletion{
			ID:          fmt.Sprintf("%s-%d", habitID, i),
			HabitID:     habitID,
			CompletedAt: time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC),
		})
	}
	return out
}

func onDays(habitID string, hour int, daysAgo ...int) []model.HabitCompletion {
	out := make([]model.HabitCompletion, 0, len(daysAgo))
	for _, ago := range daysAgo {
		day := testNow.AddDate(0, 0, -ago)
		out = append(out, model.HabitCompletion{
			ID:          fmt.Sprintf("%s-%d", habitID, ago),
			HabitID:     habitID,
			CompletedAt: time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC),
		})
	}
	return out
}

func TestConsistency_PerfectHabit(t *testing.T) {
	a := NewAnalyzer(testNow, 30)
	h := model.Habit{ID: "h1", CurrentStreak: 30, BestStreak: 30}

	assert.InDelta(t, 100.0, a.Consistency(h, daily("h1", 30, 8)), 1e-9)
}

func TestConsistency_Range(t *testing.T) {
	a := NewAnalyzer(testNow, 30)
	cases := []struct {
		name  string
		habit model.Habit
		cs    []model.HabitCompletion
	}{
		{"no completions", model.Habit{ID: "h1"}, nil},
		{"single completion", model.Habit{ID: "h1", CurrentStreak: 1}, onDays("h1", 8, 0)},
		{"irregular gaps", model.Habit{ID: "h1", CurrentStreak: 1, BestStreak: 9}, onDays("h1", 8, 0, 1, 9, 20, 21, 29)},
		{"more than window", model.Habit{ID: "h1", CurrentStreak: 200}, daily("h1", 60, 8)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := a.Consistency(tc.habit, tc.cs)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 100.0)
		})
	}
}

func TestConsistency_RegularityDroppedBelowTwoDays(t *testing.T) {
	a := NewAnalyzer(testNow, 30)
	h := model.Habit{ID: "h1", CurrentStreak: 1, BestStreak: 2}

	// 1/30 completion and a 50% streak ratio, no regularity term.
	want := 0.4*(100.0/30) + 0.3*50
	assert.InDelta(t, want, a.Consistency(h, onDays("h1", 8, 0)), 1e-9)
}

func TestStreakStability_NoBest(t *testing.T) {
	assert.Equal(t, 40.0, streakStability(model.Habit{CurrentStreak: 4}))
	assert.Equal(t, 100.0, streakStability(model.Habit{CurrentStreak: 25}))
	assert.Equal(t, 50.0, streakStability(model.Habit{CurrentStreak: 5, BestStreak: 10}))
}

func TestMomentum(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	t.Run("too little history", func(t *testing.T) {
		assert.Equal(t, 0.0, a.Momentum("h1", daily("h1", 6, 8)))
	})
	t.Run("steady", func(t *testing.T) {
		assert.Equal(t, 0.0, a.Momentum("h1", daily("h1", 14, 8)))
	})
	t.Run("empty prior week", func(t *testing.T) {
		assert.Equal(t, 100.0, a.Momentum("h1", daily("h1", 7, 8)))
	})
	t.Run("declining", func(t *testing.T) {
		cs := onDays("h1", 8, 0, 7, 8, 9, 10, 11, 12, 13)
		// 1 this week vs 7 the week before.
		assert.InDelta(t, (1.0-7.0)/7.0*100, a.Momentum("h1", cs), 1e-9)
	})
}

func TestRisk(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	t.Run("never completed", func(t *testing.T) {
		assert.Equal(t, 100.0, a.Risk(model.Habit{ID: "h1", CurrentStreak: 3}, nil))
	})
	t.Run("perfect two weeks", func(t *testing.T) {
		h := model.Habit{ID: "h1", CurrentStreak: 14, BestStreak: 14}
		assert.InDelta(t, 0.0, a.Risk(h, daily("h1", 14, 8)), 1e-9)
	})
	t.Run("lapsed", func(t *testing.T) {
		h := model.Habit{ID: "h1", CurrentStreak: 0, BestStreak: 10}
		r := a.Risk(h, onDays("h1", 8, 5, 6))
		assert.GreaterOrEqual(t, r, 70.0)
		assert.LessOrEqual(t, r, 100.0)
	})
}

func TestClassifyStreak(t *testing.T) {
	a := NewAnalyzer(testNow, 30)
	// A fresh week-long run has full momentum.
	fresh := model.Habit{ID: "h1", CurrentStreak: 7, BestStreak: 7}
	assert.Equal(t, StreakExcellent, a.ClassifyStreak(fresh, daily("h1", 7, 8)))

	// Steady habits have zero momentum, which halves stability.
	steady := model.Habit{ID: "h1", CurrentStreak: 30, BestStreak: 30}
	assert.Equal(t, StreakFair, a.ClassifyStreak(steady, daily("h1", 30, 8)))

	lapsed := model.Habit{ID: "h2", CurrentStreak: 0, BestStreak: 20}
	assert.Equal(t, StreakPoor, a.ClassifyStreak(lapsed, onDays("h2", 8, 25)))
}

func TestAnalyzeCompletionPatterns(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	assert.Nil(t, a.AnalyzeCompletionPatterns("h1", daily("h1", 4, 8)))

	cs := append(onDays("h1", 7, 0, 7, 14), onDays("h1", 19, 1, 2)...)
	patterns := a.AnalyzeCompletionPatterns("h1", cs)
	require.NotEmpty(t, patterns)
	top := patterns[0]
	assert.Equal(t, model.Morning, top.TimeOfDay)
	assert.Equal(t, testNow.Weekday(), top.DayOfWeek)
	assert.Equal(t, 3, top.Count)
	assert.InDelta(t, 60.0, top.SuccessRate, 1e-9)
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].SuccessRate, patterns[i].SuccessRate)
	}
}

func TestOptimalHabitTime(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	assert.Nil(t, a.OptimalHabitTime("h1", daily("h1", 4, 8)))

	cs := append(daily("h1", 8, 7), onDays("h1", 22, 3, 4)...)
	opt := a.OptimalHabitTime("h1", cs)
	require.NotNil(t, opt)
	assert.Equal(t, model.Morning, opt.TimeOfDay)
	assert.Equal(t, 8, opt.Occurrences)
	assert.Equal(t, 10, opt.Total)
	assert.InDelta(t, 80.0, opt.Confidence, 1e-9)
	assert.InDelta(t, 80.0, opt.SuccessRate, 1e-9)
	assert.True(t, opt.Actionable())
}

func TestOptimalHabitTime_RepeatDaysCountEveryCompletion(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	// Seven mornings plus three evenings on days that already had a morning.
	cs := append(daily("h1", 7, 7), onDays("h1", 19, 0, 1, 2)...)
	opt := a.OptimalHabitTime("h1", cs)
	require.NotNil(t, opt)
	assert.Equal(t, model.Morning, opt.TimeOfDay)
	assert.InDelta(t, 70.0, opt.Confidence, 1e-9)
	assert.InDelta(t, 70.0, opt.SuccessRate, 1e-9)
	assert.False(t, opt.Actionable())
}

func TestDetectChains(t *testing.T) {
	a := NewAnalyzer(testNow, 30)
	cs := append(onDays("run", 7, 0, 1, 2, 3), onDays("stretch", 8, 0, 1, 2, 10)...)
	cs = append(cs, onDays("read", 21, 5, 6, 7)...)

	chains := a.DetectChains(cs)
	require.Len(t, chains, 1)
	c := chains[0]
	assert.Equal(t, "run", c.Habit1)
	assert.Equal(t, "stretch", c.Habit2)
	assert.Equal(t, 3, c.SharedDays)
	assert.InDelta(t, 75.0, c.CoOccurrenceRate, 1e-9)
	assert.InDelta(t, 60.0, c.AvgTimeDifference, 1e-9)
}

func TestDetectDependencies(t *testing.T) {
	a := NewAnalyzer(testNow, 30)
	// "coffee" always follows "wake"; "wake" also has lone days.
	cs := append(onDays("wake", 6, 0, 1, 2, 3, 4, 5), onDays("coffee", 7, 0, 1, 2, 3)...)
	cs = append(cs, onDays("gym", 18, 8, 9, 10)...)

	var coffeeToWake *Dependency
	for _, d := range a.DetectDependencies(cs) {
		if d.From == "coffee" && d.To == "wake" {
			d := d
			coffeeToWake = &d
		}
	}
	require.NotNil(t, coffeeToWake)
	assert.InDelta(t, 1.0, coffeeToWake.Probability, 1e-9)
	assert.InDelta(t, 6.0/9.0, coffeeToWake.BaseRate, 1e-9)
	assert.Equal(t, RelationshipLeadsTo, coffeeToWake.Relationship)
}

func TestDetectSynergies(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	t.Run("mutual", func(t *testing.T) {
		habits := []model.Habit{{ID: "a"}, {ID: "b"}}
		cs := append(daily("a", 6, 7), daily("b", 6, 8)...)
		syn := a.DetectSynergies(habits, cs)
		require.Len(t, syn, 1)
		assert.Equal(t, SynergyMutual, syn[0].Kind)
		assert.InDelta(t, 100.0, syn[0].Score, 1e-9)
	})

	t.Run("category", func(t *testing.T) {
		habits := []model.Habit{{ID: "a", Category: "fitness"}, {ID: "b", Category: "fitness"}}
		cs := append(daily("a", 10, 7), daily("b", 5, 8)...)
		syn := a.DetectSynergies(habits, cs)
		require.Len(t, syn, 1)
		assert.Equal(t, SynergyCategory, syn[0].Kind)
		assert.InDelta(t, 50.0, syn[0].Score, 1e-9)
	})

	t.Run("different categories", func(t *testing.T) {
		habits := []model.Habit{{ID: "a", Category: "fitness"}, {ID: "b", Category: "sleep"}}
		cs := append(daily("a", 10, 7), daily("b", 5, 8)...)
		assert.Empty(t, a.DetectSynergies(habits, cs))
	})
}

func TestScore(t *testing.T) {
	a := NewAnalyzer(testNow, 30)

	t.Run("perfect habit", func(t *testing.T) {
		h := model.Habit{ID: "h1", CurrentStreak: 30, BestStreak: 30}
		s := a.Score(h, daily("h1", 30, 8))
		assert.Equal(t, "h1", s.HabitID)
		assert.InDelta(t, 90.0, s.OverallScore, 1e-9)
		assert.Equal(t, model.GradeA, s.Grade)
		assert.Equal(t, RecommendPraise, s.Recommendation)
		assert.InDelta(t, 50.0, s.Factors.Trend, 1e-9)
	})

	t.Run("neglected habit", func(t *testing.T) {
		h := model.Habit{ID: "h1", CurrentStreak: 0, BestStreak: 10}
		s := a.Score(h, onDays("h1", 8, 12, 20))
		assert.Equal(t, model.GradeF, s.Grade)
		assert.Equal(t, RecommendRegularity, s.Recommendation)
	})

	t.Run("factors in range", func(t *testing.T) {
		h := model.Habit{ID: "h1", CurrentStreak: 50, BestStreak: 5}
		s := a.Score(h, daily("h1", 45, 8))
		for _, v := range []float64{s.OverallScore, s.Factors.Consistency, s.Factors.StreakStability, s.Factors.Trend, s.Factors.CompletionRate} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})
}

func TestGradeFor(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Grade
	}{
		{100, model.GradeA},
		{90, model.GradeA},
		{89.9, model.GradeB},
		{80, model.GradeB},
		{70, model.GradeC},
		{60, model.GradeD},
		{59.9, model.GradeF},
		{0, model.GradeF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GradeFor(tc.score), "score %v", tc.score)
	}
}

func TestRecommendationFor_Order(t *testing.T) {
	good := model.QualityFactors{Consistency: 80, StreakStability: 80, CompletionRate: 80}

	assert.Equal(t, RecommendPraise, recommendationFor(95, model.QualityFactors{}, -50))

	low := good
	low.Consistency = 10
	low.StreakStability = 10
	assert.Equal(t, RecommendRegularity, recommendationFor(50, low, -10))

	streak := good
	streak.StreakStability = 10
	assert.Equal(t, RecommendStreak, recommendationFor(70, streak, -10))

	assert.Equal(t, RecommendRestart, recommendationFor(70, good, -10))

	rate := good
	rate.CompletionRate = 20
	assert.Equal(t, RecommendFrequency, recommendationFor(70, rate, 0))

	assert.Equal(t, RecommendEncourage, recommendationFor(75, good, 10))
}

func TestBest(t *testing.T) {
	_, ok := Best(nil)
	assert.False(t, ok)

	best, ok := Best([]model.HabitQualityScore{
		{HabitID: "a", OverallScore: 70},
		{HabitID: "b", OverallScore: 85},
		{HabitID: "c", OverallScore: 85},
	})
	require.True(t, ok)
	assert.Equal(t, "b", best.HabitID)
}

func TestGenerateRecommendations_NoHabits(t *testing.T) {
	assert.Nil(t, GenerateRecommendations(testNow, nil, daily("h1", 10, 8), nil))
}

func TestGenerateRecommendations(t *testing.T) {
	habits := []model.Habit{
		{ID: "walk", Title: "Walk", Category: "fitness", PreferredTime: model.Evening, CurrentStreak: 10, BestStreak: 10},
		{ID: "journal", Title: "Journal", Category: "mindfulness", PreferredTime: model.Afternoon, CurrentStreak: 0, BestStreak: 8},
	}
	// Walk is actually done every morning; journal almost never.
	cs := append(daily("walk", 14, 7), onDays("journal", 14, 20)...)

	recs := GenerateRecommendations(testNow, habits, cs, nil)
	require.NotEmpty(t, recs)
	assert.LessOrEqual(t, len(recs), MaxRecommendations)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Priority, recs[i].Priority)
	}

	byType := make(map[RecommendationType][]HabitRecommendation)
	for _, r := range recs {
		byType[r.Type] = append(byType[r.Type], r)
	}

	require.Len(t, byType[RecTimeOptimization], 1)
	opt := byType[RecTimeOptimization][0]
	assert.Equal(t, 100, opt.Priority)
	assert.Equal(t, "walk", opt.Data["habit_id"])
	assert.Equal(t, string(model.Morning), opt.Data["suggested"])

	// Morning has no habit assigned; evening does. Nutrition and sleep are missing.
	gaps := byType[RecGapFilling]
	require.Len(t, gaps, 2)
	assert.Equal(t, 70, gaps[0].Priority)
	assert.Equal(t, string(model.Morning), gaps[0].Data["slot"])
	assert.Equal(t, 60, gaps[1].Priority)
	assert.Equal(t, "nutrition,sleep", gaps[1].Data["categories"])

	require.Len(t, byType[RecDifficultyAdjustment], 1)
	assert.Equal(t, "journal", byType[RecDifficultyAdjustment][0].Data["habit_id"])
	assert.Equal(t, 80, byType[RecDifficultyAdjustment][0].Priority)
}

func TestGenerateRecommendations_TopTen(t *testing.T) {
	var habits []model.Habit
	var cs []model.HabitCompletion
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("h%02d", i)
		habits = append(habits, model.Habit{ID: id, Title: id, PreferredTime: model.Evening})
		cs = append(cs, daily(id, 5, 7)...)
	}
	recs := GenerateRecommendations(testNow, habits, cs, nil)
	require.Len(t, recs, MaxRecommendations)
	for _, r := range recs {
		assert.Equal(t, RecTimeOptimization, r.Type)
		assert.Equal(t, 100, r.Priority)
	}
	assert.Equal(t, "h00", recs[0].Data["habit_id"])
}

func TestSuccessTransfer(t *testing.T) {
	habits := []model.Habit{
		{ID: "a", Title: "Meditate", PreferredTime: model.Anytime},
		{ID: "b", Title: "Stretch", PreferredTime: model.Morning},
	}
	scores := []model.HabitQualityScore{
		{HabitID: "a", OverallScore: 95},
		{HabitID: "b", OverallScore: 82},
	}
	recs := successTransfer(habits, scores)
	require.Len(t, recs, 1)
	assert.Equal(t, 65, recs[0].Priority)
	assert.Equal(t, "b", recs[0].Data["habit_id"])

	assert.Empty(t, successTransfer(habits, []model.HabitQualityScore{{HabitID: "b", OverallScore: 79}}))
}

func TestRecommendationKey(t *testing.T) {
	r := HabitRecommendation{Type: RecSynergy, Data: map[string]any{"habit1": "a", "habit2": "b", "score": 90.0}}
	assert.Equal(t, "synergy-a-b", r.Key())
}
