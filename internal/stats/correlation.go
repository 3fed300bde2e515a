package stats

import "math"

// Correlation returns the Pearson correlation coefficient of xs and ys,
// paired by index up to the shorter length. It returns 0 when fewer than
// two pairs exist or when either series has zero variance.
func Correlation(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return 0
	}

	meanX := Mean(xs[:n])
	meanY := Mean(ys[:n])

	var num, denX, denY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}
	if denX == 0 || denY == 0 {
		return 0
	}

	r := num / math.Sqrt(denX*denY)
	// Clamp rounding noise.
	return math.Max(-1, math.Min(1, r))
}
