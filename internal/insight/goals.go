package insight

import (
	"sort"
	"time"

	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/stats"
)

const (
	goalStaleAfter      = 7 * 24 * time.Hour
	goalNearProgress    = 80.0
	predictionSoonDays  = 7
	predictionLaterDays = 30
	socialTopRank       = 3
)

func allGoals(gd *model.GoalsData) []model.Goal {
	if gd == nil {
		return nil
	}
	out := make([]model.Goal, 0, len(gd.Personal)+len(gd.Challenge))
	out = append(out, gd.Personal...)
	return append(out, gd.Challenge...)
}

// GoalInsights reports stale goals, goals close to completion and goals
// completed today.
func GoalInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	now := gctx.Clock()
	var out []model.SmartInsight
	for _, g := range allGoals(gctx.GoalsData) {
		if g.ID == "" || g.TargetValue <= 0 {
			continue
		}
		progress := g.Progress()
		last := g.LastUpdate()
		action := navigate("/goals/" + g.ID)

		switch {
		case progress >= 100:
			if model.SameDay(last, now) {
				out = append(out, newInsight(gctx, SourceGoal, model.InsightAchievement, makeID("goal", "complete", g.ID), "🎉",
					sprintf("Goal reached: %s!", g.Title), 90, action))
			}
			continue
		case progress >= goalNearProgress:
			out = append(out, newInsight(gctx, SourceGoal, model.InsightAchievement, makeID("goal", "near", g.ID), "🎯",
				sprintf("You're %.0f%% of the way to %s.", progress, g.Title), 85, action))
		}

		if !last.IsZero() && now.Sub(last) > goalStaleAfter {
			days := int(now.Sub(last).Hours() / 24)
			out = append(out, newInsight(gctx, SourceGoal, model.InsightWarning, makeID("goal", "stale", g.ID), "⏳",
				sprintf("%s hasn't been updated in %d days.", g.Title, days), 65, action))
		}
	}
	return out
}

// PredictionInsights forecasts when in-progress goals will be reached.
func PredictionInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	var out []model.SmartInsight
	for _, g := range allGoals(gctx.GoalsData) {
		if g.ID == "" || g.TargetValue <= 0 || g.Progress() >= 100 {
			continue
		}
		ms := g.SortedMeasurements()
		if len(ms) < stats.MinTrendPoints {
			continue
		}
		history := make([]float64, 0, len(ms))
		for _, m := range ms {
			history = append(history, m.Value)
		}
		days := stats.PredictGoalCompletion(history[len(history)-1], g.TargetValue, history)
		action := navigate("/goals/" + g.ID)
		switch {
		case days > 0 && days <= predictionSoonDays:
			out = append(out, newInsight(gctx, SourcePrediction, model.InsightPrediction, makeID("prediction", "goal", g.ID), "🔮",
				sprintf("At this pace you'll reach %s in %d days.", g.Title, days), 70, action))
		case days > predictionSoonDays && days <= predictionLaterDays:
			out = append(out, newInsight(gctx, SourcePrediction, model.InsightPrediction, makeID("prediction", "goal", g.ID), "📆",
				sprintf("%s is trending up. Expect to reach it in about %d days.", g.Title, days), 50, action))
		}
	}
	return out
}

// SocialInsights celebrates a top-3 rank in an active challenge.
func SocialInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.ChallengeData == nil {
		return nil
	}
	var out []model.SmartInsight
	for _, c := range gctx.ChallengeData.Challenges {
		if !c.Active || c.ID == "" || c.UserRank < 1 || c.UserRank > socialTopRank {
			continue
		}
		msg := sprintf("You're #%d in %s!", c.UserRank, c.Name)
		if c.Participants > 0 {
			msg = sprintf("You're #%d of %d in %s!", c.UserRank, c.Participants, c.Name)
		}
		out = append(out, newInsight(gctx, SourceSocial, model.InsightSocial, makeID("social", "challenge", c.ID), "🥇",
			msg, 75, navigate("/challenges/"+c.ID)))
	}
	return out
}

// TrainerInsights surfaces unread trainer messages and the newest unread
// trainer recommendation.
func TrainerInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	td := gctx.TrainerData
	if td == nil {
		return nil
	}
	trainer := td.TrainerName
	if trainer == "" {
		trainer = "your trainer"
	}

	var out []model.SmartInsight
	if td.UnreadMessages > 0 {
		out = append(out, newInsight(gctx, SourceTrainer, model.InsightTrainer, "trainer-messages", "💬",
			sprintf("You have %d unread messages from %s.", td.UnreadMessages, trainer), 70, navigate("/messages")))
	}

	var unread []model.TrainerRecommendation
	for _, r := range td.Recommendations {
		if !r.Read && r.ID != "" {
			unread = append(unread, r)
		}
	}
	if len(unread) > 0 {
		sort.SliceStable(unread, func(i, j int) bool { return unread[i].CreatedAt.After(unread[j].CreatedAt) })
		r := unread[0]
		out = append(out, newInsight(gctx, SourceTrainer, model.InsightTrainer, makeID("trainer", "rec", r.ID), "📋",
			sprintf("New recommendation from %s: %s", trainer, r.Title), 75, navigate("/trainer/recommendations/"+r.ID)))
	}
	return out
}
