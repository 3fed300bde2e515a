package snapshot

import (
	"sort"
	"time"

	"github.com/sells-group/vitals/internal/model"
)

// sourcePriority ranks data sources for same-day ties. Device sources beat
// manual entry.
var sourcePriority = map[string]int{
	"manual":       1,
	"apple_health": 2,
	"oura":         3,
	"whoop":        4,
}

// Latest returns the newest observation per metric, sorted by metric name.
// Observations on the same calendar day are ranked by confidence and then by
// source priority, so a manual entry typed after a device sync does not win.
func Latest(history []model.MetricObservation) []model.MetricObservation {
	best := make(map[string]model.MetricObservation)
	for _, o := range history {
		cur, ok := best[o.MetricName]
		if !ok || preferred(o, cur) {
			best[o.MetricName] = o
		}
	}
	out := make([]model.MetricObservation, 0, len(best))
	for _, o := range best {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricName < out[j].MetricName })
	return out
}

// preferred reports whether a should replace b as the latest value.
func preferred(a, b model.MetricObservation) bool {
	if !model.SameDay(a.MeasurementDate, b.MeasurementDate) {
		return a.MeasurementDate.After(b.MeasurementDate)
	}
	if ca, cb := confidence(a), confidence(b); ca != cb {
		return ca > cb
	}
	if pa, pb := sourcePriority[a.Source], sourcePriority[b.Source]; pa != pb {
		return pa > pb
	}
	return a.MeasurementDate.After(b.MeasurementDate)
}

func confidence(o model.MetricObservation) float64 {
	if o.Confidence == nil {
		return -1
	}
	return *o.Confidence
}

// Level bands a confidence score.
func Level(score float64) model.ConfidenceLevel {
	switch {
	case score >= 85:
		return model.ConfidenceExcellent
	case score >= 70:
		return model.ConfidenceGood
	case score >= 50:
		return model.ConfidenceFair
	default:
		return model.ConfidencePoor
	}
}

// QualityFromLatest derives the data-quality verdicts from the confidence
// carried on the latest observations. Observations without a confidence are
// skipped; nil is returned when none carry one.
func QualityFromLatest(latest []model.MetricObservation) *model.QualityData {
	var q model.QualityData
	for _, o := range latest {
		if o.Confidence == nil {
			continue
		}
		q.Metrics = append(q.Metrics, model.MetricConfidence{
			MetricName: o.MetricName,
			Score:      *o.Confidence,
			Level:      Level(*o.Confidence),
		})
	}
	if len(q.Metrics) == 0 {
		return nil
	}
	return &q
}

// TodayFromLatest picks the headline metrics measured on now's calendar day.
func TodayFromLatest(latest []model.MetricObservation, now time.Time) *model.TodayMetrics {
	var t model.TodayMetrics
	fields := map[string]**float64{
		model.MetricSteps:            &t.Steps,
		model.MetricSleepDuration:    &t.SleepDuration,
		model.MetricRecoveryScore:    &t.RecoveryScore,
		model.MetricRestingHeartRate: &t.RestingHeartRate,
		model.MetricHRV:              &t.HRV,
		model.MetricActiveCalories:   &t.ActiveCalories,
	}
	found := false
	for _, o := range latest {
		dst, ok := fields[o.MetricName]
		if !ok || !model.SameDay(o.MeasurementDate, now) {
			continue
		}
		*dst = model.Float(o.Value)
		found = true
	}
	if !found {
		return nil
	}
	return &t
}
