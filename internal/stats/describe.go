// Package stats implements the statistics primitives behind the insight
// generators: descriptive statistics, z-score anomaly detection, Pearson
// correlation, least-squares trends and time-bucket patterns.
//
// Every function is total. Insufficient or degenerate input yields a neutral
// value (0, Stable, nil) rather than an error.
package stats

import "math"

// Minimum history sizes.
const (
	MinAnomalyHistory   = 7
	MinTrendPoints      = 3
	MinPatternPoints    = 7
	MinWeekendPoints    = 14
	MinCorrelationDays  = 30
	anomalyThreshold    = 2.0
	moderateThreshold   = 2.5
	severeThreshold     = 3.0
	trendSlopeTolerance = 0.05
)

// Summary holds descriptive statistics of a series. Std is the population
// standard deviation.
type Summary struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Describe computes a Summary. An empty input yields the zero Summary.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Min:   values[0],
		Max:   values[0],
		Count: len(values),
	}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))
	s.Std = math.Sqrt(Variance(values))
	return s
}

// Mean returns the arithmetic mean, or 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance, or 0 for an empty input.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(values))
}

// ZScore returns (value-mean)/std, or 0 when std is 0.
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

// Severity grades how far an anomaly sits from the mean.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Anomaly is the verdict of DetectAnomaly.
type Anomaly struct {
	IsAnomaly bool     `json:"is_anomaly"`
	ZScore    float64  `json:"z_score"`
	Mean      float64  `json:"mean"`
	Std       float64  `json:"std"`
	Severity  Severity `json:"severity,omitempty"`
}

// ClassifyZ maps a z-score to an anomaly flag and severity. The threshold is
// strict: |z| == 2 is not anomalous.
func ClassifyZ(z float64) (bool, Severity) {
	abs := math.Abs(z)
	switch {
	case abs > severeThreshold:
		return true, SeveritySevere
	case abs > moderateThreshold:
		return true, SeverityModerate
	case abs > anomalyThreshold:
		return true, SeverityMild
	default:
		return false, SeverityNone
	}
}

// DetectAnomaly scores value against history. Fewer than MinAnomalyHistory
// points never flags.
func DetectAnomaly(value float64, history []float64) Anomaly {
	if len(history) < MinAnomalyHistory {
		return Anomaly{}
	}
	s := Describe(history)
	z := ZScore(value, s.Mean, s.Std)
	flag, sev := ClassifyZ(z)
	return Anomaly{
		IsAnomaly: flag,
		ZScore:    z,
		Mean:      s.Mean,
		Std:       s.Std,
		Severity:  sev,
	}
}
