package model

import (
	"sort"
	"time"
)

// Canonical metric names shared by the store, the snapshot assembler and the
// insight generators.
const (
	MetricSteps            = "Steps"
	MetricSleepDuration    = "Sleep Duration"
	MetricRecoveryScore    = "Recovery Score"
	MetricRestingHeartRate = "Resting Heart Rate"
	MetricHRV              = "HRV"
	MetricWeight           = "Weight"
	MetricActiveCalories   = "Active Calories"
)

// MetricUnits maps canonical metric names to their display units.
var MetricUnits = map[string]string{
	MetricSteps:            "steps",
	MetricSleepDuration:    "h",
	MetricRecoveryScore:    "%",
	MetricRestingHeartRate: "bpm",
	MetricHRV:              "ms",
	MetricWeight:           "kg",
	MetricActiveCalories:   "kcal",
}

// MetricObservation is a single measurement of a named metric.
type MetricObservation struct {
	ID              string    `json:"id,omitempty" yaml:"id,omitempty"`
	MetricName      string    `json:"metric_name" yaml:"metric_name"`
	Value           float64   `json:"value" yaml:"value"`
	Unit            string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	MeasurementDate time.Time `json:"measurement_date" yaml:"measurement_date"`
	Source          string    `json:"source,omitempty" yaml:"source,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"` // 0-100, computed upstream
}

// MetricsData is the metrics slice of the generator context: the
// source-prioritized latest value per metric plus the raw history.
type MetricsData struct {
	Latest  []MetricObservation `json:"latest"`
	History []MetricObservation `json:"history"`
}

// LatestFor returns the latest observation for name, if present.
func (m *MetricsData) LatestFor(name string) (MetricObservation, bool) {
	if m == nil {
		return MetricObservation{}, false
	}
	for _, o := range m.Latest {
		if o.MetricName == name {
			return o, true
		}
	}
	return MetricObservation{}, false
}

// HistoryFor returns the observations of name ordered oldest first.
func (m *MetricsData) HistoryFor(name string) []MetricObservation {
	if m == nil {
		return nil
	}
	var out []MetricObservation
	for _, o := range m.History {
		if o.MetricName == name {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeasurementDate.Before(out[j].MeasurementDate)
	})
	return out
}

// ConfidenceLevel is the banded form of a confidence score.
type ConfidenceLevel string

const (
	ConfidenceExcellent ConfidenceLevel = "excellent"
	ConfidenceGood      ConfidenceLevel = "good"
	ConfidenceFair      ConfidenceLevel = "fair"
	ConfidencePoor      ConfidenceLevel = "poor"
)

// MetricConfidence is the data-quality verdict for one metric.
type MetricConfidence struct {
	MetricName string          `json:"metric_name" yaml:"metric_name"`
	Score      float64         `json:"score" yaml:"score"`
	Level      ConfidenceLevel `json:"level" yaml:"level"`
}

// QualityData carries the output of the upstream confidence scorer.
type QualityData struct {
	Metrics []MetricConfidence `json:"metrics" yaml:"metrics"`
}

// TodayMetrics holds today's values of the headline metrics. A nil field
// means the metric was not measured today.
type TodayMetrics struct {
	Steps            *float64 `json:"steps,omitempty" yaml:"steps,omitempty"`
	SleepDuration    *float64 `json:"sleep_duration,omitempty" yaml:"sleep_duration,omitempty"`
	RecoveryScore    *float64 `json:"recovery_score,omitempty" yaml:"recovery_score,omitempty"`
	RestingHeartRate *float64 `json:"resting_heart_rate,omitempty" yaml:"resting_heart_rate,omitempty"`
	HRV              *float64 `json:"hrv,omitempty" yaml:"hrv,omitempty"`
	ActiveCalories   *float64 `json:"active_calories,omitempty" yaml:"active_calories,omitempty"`
}

// Float returns a pointer to v. Convenience for optional fields.
func Float(v float64) *float64 {
	return &v
}
