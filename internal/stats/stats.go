// Package stats holds the whole-column statistics used by the analyzer and the
// transformer. All functions take plain value slices (nulls already removed),
// never modify their input and return neutral values on empty input.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of vals, or 0 when vals is empty.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	// Welford keeps the running mean stable on wide-range columns.
	var mean float64
	for i, v := range vals {
		mean += (v - mean) / float64(i+1)
	}
	return mean
}

// Variance returns the variance of vals with ddof delta degrees of freedom
// (0 = population, 1 = sample). It returns 0 when fewer than ddof+1 values exist.
func Variance(vals []float64, ddof int) float64 {
	n := len(vals)
	if n <= ddof || n == 0 {
		return 0
	}
	var mean, m2 float64
	for i, v := range vals {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	out := m2 / float64(n-ddof)
	if out < 0 || math.IsNaN(out) {
		return 0
	}
	return out
}

// Std is the square root of Variance.
func Std(vals []float64, ddof int) float64 {
	return math.Sqrt(Variance(vals, ddof))
}

// MinMax returns the smallest and largest value. ok is false for empty input.
func MinMax(vals []float64) (lo, hi float64, ok bool) {
	if len(vals) == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, true
}

// Sorted returns a sorted copy of vals.
func Sorted(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// Quantile computes the q-th quantile of an already sorted slice using linear
// interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median returns the 0.5 quantile of vals.
func Median(vals []float64) float64 {
	return Quantile(Sorted(vals), 0.5)
}

// Fences are Tukey outlier bounds.
type Fences struct {
	Q1, Q3 float64
	Lower  float64
	Upper  float64
}

// Outside reports whether v lies strictly outside the fences.
func (f Fences) Outside(v float64) bool { return v < f.Lower || v > f.Upper }

// Clip winsorizes v into the fences.
func (f Fences) Clip(v float64) float64 {
	if v < f.Lower {
		return f.Lower
	}
	if v > f.Upper {
		return f.Upper
	}
	return v
}

// TukeyFences computes Q1 - k*IQR and Q3 + k*IQR. ok is false for empty input.
func TukeyFences(vals []float64, k float64) (Fences, bool) {
	if len(vals) == 0 {
		return Fences{}, false
	}
	s := Sorted(vals)
	q1 := Quantile(s, 0.25)
	q3 := Quantile(s, 0.75)
	iqr := q3 - q1
	return Fences{Q1: q1, Q3: q3, Lower: q1 - k*iqr, Upper: q3 + k*iqr}, true
}

// Mode returns the most frequent string. Ties resolve to the lexicographically
// smallest candidate so results do not depend on row order.
func Mode(vals []string) (string, bool) {
	if len(vals) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best, bestN := "", -1
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, true
}

// Pearson returns the correlation coefficient over the pairs where both sides
// are present. ok is false when fewer than two pairs exist or either side is
// constant.
func Pearson(x, y []float64, present func(i int) bool) (float64, bool) {
	var n, sumX, sumY, sumXX, sumYY, sumXY float64
	for i := 0; i < len(x) && i < len(y); i++ {
		if present != nil && !present(i) {
			continue
		}
		a, b := x[i], y[i]
		n++
		sumX += a
		sumY += b
		sumXX += a * a
		sumYY += b * b
		sumXY += a * b
	}
	if n < 2 {
		return 0, false
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	r := (n*sumXY - sumX*sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}
