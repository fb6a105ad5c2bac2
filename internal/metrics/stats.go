package metrics

import (
	"math"
	"sort"
)

// Descriptive statistics over float64 samples. Every function returns 0 for
// an empty input instead of NaN so downstream JSON never carries non-finite
// values.

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// percentile computes the p-th percentile (0..100) with linear interpolation
// between closest ranks. Input must be sorted ascending.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func median(sorted []float64) float64 {
	return percentile(sorted, 50)
}

// trimmedMean discards the given fraction of samples from each tail before
// averaging, resisting the heavy right skew of response-time data.
func trimmedMean(sorted []float64, fraction float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	trim := int(float64(n) * fraction)
	if n-2*trim <= 0 {
		return mean(sorted)
	}
	return mean(sorted[trim : n-trim])
}

// stddev is the population standard deviation.
func stddev(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	m := mean(samples)
	var sumSq float64
	for _, s := range samples {
		d := s - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// skewness is the moment coefficient of skewness (m3 / m2^1.5). Zero for
// fewer than three samples or a zero-variance distribution.
func skewness(samples []float64) float64 {
	n := len(samples)
	if n < 3 {
		return 0
	}
	m := mean(samples)
	var m2, m3 float64
	for _, s := range samples {
		d := s - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// summarize computes the full distribution summary of unsorted samples.
func summarize(samples []float64, trimFraction float64) ResponseTimeStats {
	if len(samples) == 0 {
		return ResponseTimeStats{}
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	return ResponseTimeStats{
		Count:       len(sorted),
		Mean:        mean(sorted),
		Median:      median(sorted),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		TrimmedMean: trimmedMean(sorted, trimFraction),
		StdDev:      stddev(sorted),
		Q1:          q1,
		Q3:          q3,
		IQR:         q3 - q1,
		P75:         percentile(sorted, 75),
		P90:         percentile(sorted, 90),
		P95:         percentile(sorted, 95),
		Skewness:    skewness(sorted),
	}
}

// linearSlope fits y = a + b*x by least squares over points at x = 0..n-1
// and returns b. Zero for fewer than two points.
func linearSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}
