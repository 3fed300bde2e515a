package insight

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/internal/stats"
)

// Metric generator thresholds.
const (
	trendRecentDays       = 3
	trendPriorDays        = 4
	trendMinPoints        = trendRecentDays + trendPriorDays
	trendChangeThreshold  = 15.0
	trendStrongChange     = 30.0
	stepsAchievement      = 15000.0
	recoveryAchievement   = 85.0
	goodSleepHours        = 8.0
	correlationMinR       = 0.5
	correlationMinLiftPct = 5.0
	weekendDeltaThreshold = 20.0
)

// trendWatch is the fixed watch list and whether higher values are better.
var trendWatch = []struct {
	metric       string
	higherBetter bool
}{
	{model.MetricSteps, true},
	{model.MetricSleepDuration, true},
	{model.MetricRecoveryScore, true},
	{model.MetricHRV, true},
	{model.MetricRestingHeartRate, false},
}

// coverageMetrics are the key metrics every user should be syncing.
var coverageMetrics = []string{
	model.MetricSteps,
	model.MetricSleepDuration,
	model.MetricRecoveryScore,
	model.MetricRestingHeartRate,
}

// QualityInsights flags poor (critical) or fair (warning) metric confidence.
func QualityInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.QualityData == nil {
		return nil
	}
	var poor, fair []string
	for _, m := range gctx.QualityData.Metrics {
		switch m.Level {
		case model.ConfidencePoor:
			poor = append(poor, m.MetricName)
		case model.ConfidenceFair:
			fair = append(fair, m.MetricName)
		}
	}
	action := navigate("/data-quality")
	switch {
	case len(poor) > 0:
		return []model.SmartInsight{newInsight(gctx, SourceQuality, model.InsightCritical, "quality-poor", "🚨",
			sprintf("Data quality is poor for %s. Check that your devices are syncing.", strings.Join(poor, ", ")),
			95, action)}
	case len(fair) > 0:
		return []model.SmartInsight{newInsight(gctx, SourceQuality, model.InsightWarning, "quality-fair", "⚠️",
			sprintf("Data quality is only fair for %s. Readings may be less reliable.", strings.Join(fair, ", ")),
			70, action)}
	}
	return nil
}

// TrendInsights compares the last three days with the four before them for
// each watched metric.
func TrendInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.MetricsData == nil {
		return nil
	}
	var out []model.SmartInsight
	for _, w := range trendWatch {
		vals := values(gctx.MetricsData.HistoryFor(w.metric))
		if len(vals) < trendMinPoints {
			continue
		}
		recent := stats.Mean(vals[len(vals)-trendRecentDays:])
		prior := stats.Mean(vals[len(vals)-trendMinPoints : len(vals)-trendRecentDays])
		if prior == 0 {
			continue
		}
		change := (recent - prior) / prior * 100
		if math.Abs(change) <= trendChangeThreshold {
			continue
		}

		dir := "up"
		if change < 0 {
			dir = "down"
		}
		improving := (change > 0) == w.higherBetter
		typ, emoji := model.InsightWarning, "📉"
		if improving {
			typ, emoji = model.InsightAchievement, "📈"
		}
		priority := 55
		if math.Abs(change) > trendStrongChange {
			priority = 75
		}
		out = append(out, newInsight(gctx, SourceTrend, typ, makeID("trend", w.metric, dir), emoji,
			sprintf("Your %s is %s %.0f%% over the last 3 days.", metricLabel(w.metric), dir, math.Abs(change)),
			priority, navigate("/metrics/"+slug(w.metric))))
	}
	return out
}

// AchievementInsights celebrates standout values measured today.
func AchievementInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	tm := gctx.TodayMetrics
	if tm == nil {
		return nil
	}
	var out []model.SmartInsight
	if tm.Steps != nil && *tm.Steps > stepsAchievement {
		out = append(out, newInsight(gctx, SourceAchievement, model.InsightAchievement, "achievement-steps", "🏆",
			sprintf("%d steps today. That's a standout day!", int64(math.Round(*tm.Steps))),
			88, navigate("/metrics/steps")))
	}
	if tm.RecoveryScore != nil && *tm.RecoveryScore >= recoveryAchievement {
		out = append(out, newInsight(gctx, SourceAchievement, model.InsightAchievement, "achievement-recovery", "💪",
			sprintf("Recovery is %.0f%% today. Your body is ready for a hard session.", *tm.RecoveryScore),
			78, navigate("/metrics/recovery-score")))
	}
	return out
}

// InfoInsights reports metrics synced today.
func InfoInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.MetricsData == nil {
		return nil
	}
	now := gctx.Clock()
	var names []string
	for _, o := range gctx.MetricsData.Latest {
		if model.SameDay(o.MeasurementDate, now) {
			names = append(names, o.MetricName)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return []model.SmartInsight{newInsight(gctx, SourceInfo, model.InsightInfo, "info-synced-today", "🔄",
		sprintf("%d metrics synced today.", len(names)), 35, navigate("/metrics"))}
}

// CoverageInsights suggests connecting a source for the first key metric
// missing from the latest data. At most one insight is emitted.
func CoverageInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.MetricsData == nil {
		return nil
	}
	for _, name := range coverageMetrics {
		if _, ok := gctx.MetricsData.LatestFor(name); ok {
			continue
		}
		return []model.SmartInsight{newInsight(gctx, SourceRecommendation, model.InsightRecommendation,
			makeID("recommendation", "connect", name), "🔌",
			sprintf("No %s data yet. Connect a device to unlock more insights.", metricLabel(name)),
			45, navigate("/settings/integrations"))}
	}
	return nil
}

// CorrelationInsights looks for a sleep/recovery relationship over at least
// 30 paired days.
func CorrelationInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.MetricsData == nil {
		return nil
	}
	loc := gctx.Clock().Location()
	sleep := dailyAverages(gctx.MetricsData.HistoryFor(model.MetricSleepDuration), loc)
	recovery := dailyAverages(gctx.MetricsData.HistoryFor(model.MetricRecoveryScore), loc)

	var xs, ys, good []float64
	for _, day := range sortedKeys(sleep) {
		r, ok := recovery[day]
		if !ok {
			continue
		}
		xs = append(xs, sleep[day])
		ys = append(ys, r)
		if sleep[day] >= goodSleepHours {
			good = append(good, r)
		}
	}
	if len(xs) < stats.MinCorrelationDays || len(good) == 0 {
		return nil
	}
	r := stats.Correlation(xs, ys)
	if math.Abs(r) <= correlationMinR {
		return nil
	}
	overall := stats.Mean(ys)
	if overall == 0 {
		return nil
	}
	lift := (stats.Mean(good) - overall) / overall * 100
	if lift <= correlationMinLiftPct {
		return nil
	}
	return []model.SmartInsight{newInsight(gctx, SourceCorrelation, model.InsightCorrelation, "correlation-sleep-recovery", "🔗",
		sprintf("On nights with %.0fh+ of sleep your recovery is %.0f%% higher than average.", goodSleepHours, lift),
		60, modal(map[string]any{"correlation": r, "days": len(xs)}))}
}

// AnomalyInsights flags today's steps or sleep when far below history.
func AnomalyInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	tm := gctx.TodayMetrics
	if tm == nil || gctx.MetricsData == nil {
		return nil
	}
	now := gctx.Clock()
	checks := []struct {
		metric string
		today  *float64
	}{
		{model.MetricSteps, tm.Steps},
		{model.MetricSleepDuration, tm.SleepDuration},
	}
	var out []model.SmartInsight
	for _, c := range checks {
		if c.today == nil {
			continue
		}
		var history []float64
		for _, o := range gctx.MetricsData.HistoryFor(c.metric) {
			if !model.SameDay(o.MeasurementDate, now) {
				history = append(history, o.Value)
			}
		}
		a := stats.DetectAnomaly(*c.today, history)
		if !a.IsAnomaly || a.ZScore >= 0 {
			continue
		}
		out = append(out, newInsight(gctx, SourceAnomaly, model.InsightAnomaly, makeID("anomaly", c.metric, "low"), "🔍",
			sprintf("Today's %s is unusually low (%.1f standard deviations below your average of %.1f).",
				metricLabel(c.metric), math.Abs(a.ZScore), a.Mean),
			anomalyPriority(a.Severity), navigate("/metrics/"+slug(c.metric))))
	}
	return out
}

func anomalyPriority(s stats.Severity) int {
	switch s {
	case stats.SeveritySevere:
		return 90
	case stats.SeverityModerate:
		return 82
	default:
		return 75
	}
}

// TemporalInsights reports weekend effects on steps and the best time of day
// for activity.
func TemporalInsights(gctx *model.GeneratorContext) []model.SmartInsight {
	if gctx.MetricsData == nil {
		return nil
	}
	var out []model.SmartInsight
	if eff := stats.ComputeWeekendEffect(points(gctx.MetricsData.HistoryFor(model.MetricSteps))); eff != nil &&
		math.Abs(eff.DeltaPercent) > weekendDeltaThreshold {
		dir := "more"
		if eff.DeltaPercent < 0 {
			dir = "fewer"
		}
		out = append(out, newInsight(gctx, SourceTemporal, model.InsightTemporal, "temporal-weekend-steps", "📅",
			sprintf("You take %.0f%% %s steps on weekends than on weekdays.", math.Abs(eff.DeltaPercent), dir),
			45, navigate("/metrics/steps")))
	}
	if b, ok := stats.OptimalTime(points(gctx.MetricsData.HistoryFor(model.MetricActiveCalories))); ok {
		out = append(out, newInsight(gctx, SourceTemporal, model.InsightTemporal,
			makeID("temporal", "optimal", model.MetricActiveCalories), "⏰",
			sprintf("You burn the most energy in the %s (%.0f kcal on average).", b.Name, b.Average),
			40, navigate("/metrics/active-calories")))
	}
	return out
}

func values(obs []model.MetricObservation) []float64 {
	out := make([]float64, 0, len(obs))
	for _, o := range obs {
		out = append(out, o.Value)
	}
	return out
}

func points(obs []model.MetricObservation) []stats.Point {
	out := make([]stats.Point, 0, len(obs))
	for _, o := range obs {
		out = append(out, stats.Point{Time: o.MeasurementDate, Value: o.Value})
	}
	return out
}

// dailyAverages averages observations per calendar day in loc.
func dailyAverages(obs []model.MetricObservation, loc *time.Location) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range obs {
		day := model.DayKey(o.MeasurementDate.In(loc))
		sums[day] += o.Value
		counts[day]++
	}
	out := make(map[string]float64, len(sums))
	for day, sum := range sums {
		out[day] = sum / float64(counts[day])
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
