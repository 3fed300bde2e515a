package stats

import (
	"sort"
	"time"

	"github.com/sells-group/vitals/internal/model"
)

// Point is a timestamped value.
type Point struct {
	Time  time.Time
	Value float64
}

// Bucket is the average of the points that fell into one named slot.
type Bucket struct {
	Name    string  `json:"name"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// TimeOfDayPattern averages points per time-of-day slot and returns the
// slots sorted by descending average.
func TimeOfDayPattern(points []Point) []Bucket {
	return bucketize(points, func(t time.Time) string {
		return string(model.TimeOfDayFor(t))
	})
}

// WeekdayPattern averages points per weekday name and returns the days
// sorted by descending average.
func WeekdayPattern(points []Point) []Bucket {
	return bucketize(points, func(t time.Time) string {
		return t.Weekday().String()
	})
}

// OptimalTime returns the time-of-day slot with the highest average. It
// needs at least MinPatternPoints points.
func OptimalTime(points []Point) (Bucket, bool) {
	if len(points) < MinPatternPoints {
		return Bucket{}, false
	}
	buckets := TimeOfDayPattern(points)
	if len(buckets) == 0 {
		return Bucket{}, false
	}
	return buckets[0], true
}

// WeekendEffect compares weekend and weekday averages of a metric.
type WeekendEffect struct {
	WeekdayAverage float64 `json:"weekday_average"`
	WeekendAverage float64 `json:"weekend_average"`
	DeltaPercent   float64 `json:"delta_percent"` // (weekend-weekday)/weekday*100
}

// ComputeWeekendEffect returns nil unless there are at least
// MinWeekendPoints points with at least one on each side of the week.
func ComputeWeekendEffect(points []Point) *WeekendEffect {
	if len(points) < MinWeekendPoints {
		return nil
	}
	var weekday, weekend []float64
	for _, p := range points {
		switch p.Time.Weekday() {
		case time.Saturday, time.Sunday:
			weekend = append(weekend, p.Value)
		default:
			weekday = append(weekday, p.Value)
		}
	}
	if len(weekday) == 0 || len(weekend) == 0 {
		return nil
	}
	eff := &WeekendEffect{
		WeekdayAverage: Mean(weekday),
		WeekendAverage: Mean(weekend),
	}
	if eff.WeekdayAverage != 0 {
		eff.DeltaPercent = (eff.WeekendAverage - eff.WeekdayAverage) / eff.WeekdayAverage * 100
	}
	return eff
}

func bucketize(points []Point, key func(time.Time) string) []Bucket {
	if len(points) == 0 {
		return nil
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	for _, p := range points {
		k := key(p.Time)
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		sums[k] += p.Value
		counts[k]++
	}

	out := make([]Bucket, 0, len(order))
	for _, k := range order {
		out = append(out, Bucket{
			Name:    k,
			Average: sums[k] / float64(counts[k]),
			Count:   counts[k],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Average > out[j].Average
	})
	return out
}
