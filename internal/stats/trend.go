package stats

import "math"

// Trend is the direction of a series.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// maxForecastDays bounds PredictGoalCompletion.
const maxForecastDays = 365

// LinearRegression fits value = intercept + slope*index by ordinary least
// squares. Fewer than two points yields a zero slope.
func LinearRegression(values []float64) (slope, intercept float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, values[0]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	den := fn*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / fn
	}
	slope = (fn*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept
}

// TrendDirection classifies a chronological series. The slope must exceed
// 5% of the first value's magnitude to count as a trend.
func TrendDirection(values []float64) Trend {
	if len(values) < MinTrendPoints {
		return TrendStable
	}
	slope, _ := LinearRegression(values)
	if math.Abs(slope) <= trendSlopeTolerance*math.Abs(values[0]) {
		return TrendStable
	}
	if slope > 0 {
		return TrendUp
	}
	return TrendDown
}

// PredictNextValue extrapolates the regression line daysAhead steps past the
// last point. With fewer than MinTrendPoints it returns history[0], or 0 for
// an empty history.
func PredictNextValue(history []float64, daysAhead int) float64 {
	if len(history) < MinTrendPoints {
		if len(history) == 0 {
			return 0
		}
		return history[0]
	}
	slope, intercept := LinearRegression(history)
	x := float64(len(history)-1+daysAhead)
	return intercept + slope*x
}

// PredictGoalCompletion estimates the number of steps until current reaches
// target at the history's slope. It returns -1 when no prediction is
// possible: flat slope, slope pointing away from the target, or an estimate
// beyond a year.
func PredictGoalCompletion(current, target float64, history []float64) int {
	if len(history) < MinTrendPoints {
		return -1
	}
	remaining := target - current
	if remaining == 0 {
		return 0
	}
	slope, _ := LinearRegression(history)
	if slope == 0 {
		return -1
	}
	if (remaining > 0) != (slope > 0) {
		return -1
	}
	// Absorb float noise before rounding up.
	days := math.Ceil(remaining/slope - 1e-9)
	if days > maxForecastDays {
		return -1
	}
	return int(days)
}
