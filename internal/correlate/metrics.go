package correlate

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mode selects how two histograms are aligned.
type Mode string

const (
	// Strict aligns on the intersection of the digest keys.
	Strict Mode = "strict"
	// Permissive aligns on the union, filling absent keys with zero.
	Permissive Mode = "permissive"
)

// Align returns the aligned count vectors of a and b and the number of
// keys they share. Keys are visited in sorted order.
func Align(a, b Histogram, mode Mode) (x, y []float64, shared int) {
	keys := make(map[string]struct{}, len(a))
	for k := range a {
		if _, ok := b[k]; ok {
			shared++
			keys[k] = struct{}{}
		} else if mode == Permissive {
			keys[k] = struct{}{}
		}
	}
	if mode == Permissive {
		for k := range b {
			keys[k] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	slices.Sort(sorted)

	x = make([]float64, len(sorted))
	y = make([]float64, len(sorted))
	for i, k := range sorted {
		x[i] = float64(a[k])
		y[i] = float64(b[k])
	}
	return x, y, shared
}

// Spearman returns the Spearman rank correlation of x and y: the Pearson
// correlation of their average ranks. It is undefined for fewer than two
// points or when either side has zero variance.
func Spearman(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}
	rx, ry := ranks(x), ranks(y)
	if constant(rx) || constant(ry) {
		return 0, false
	}
	r := stat.Correlation(rx, ry, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// ranks assigns 1-based ranks, giving tied values their average rank.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case v[a] < v[b]:
			return -1
		case v[a] > v[b]:
			return 1
		default:
			return 0
		}
	})

	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1 .. j
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

// smooth applies log1p and L1-normalizes. It returns false when the vector
// sums to zero.
func smooth(v []float64) ([]float64, bool) {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Log1p(x)
	}
	sum := floats.Sum(out)
	if sum == 0 {
		return nil, false
	}
	floats.Scale(1/sum, out)
	return out, true
}

// JensenShannon returns 1 minus the base-2 Jensen-Shannon divergence of the
// smoothed vectors, a similarity in [0, 1].
func JensenShannon(x, y []float64) (float64, bool) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, false
	}
	p, ok := smooth(x)
	if !ok {
		return 0, false
	}
	q, ok := smooth(y)
	if !ok {
		return 0, false
	}

	var jsd float64
	for i := range p {
		m := (p[i] + q[i]) / 2
		if p[i] > 0 {
			jsd += 0.5 * p[i] * math.Log2(p[i]/m)
		}
		if q[i] > 0 {
			jsd += 0.5 * q[i] * math.Log2(q[i]/m)
		}
	}
	return 1 - min(max(jsd, 0), 1), true
}

// Cosine returns the cosine similarity of the smoothed vectors.
func Cosine(x, y []float64) (float64, bool) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, false
	}
	p, ok := smooth(x)
	if !ok {
		return 0, false
	}
	q, ok := smooth(y)
	if !ok {
		return 0, false
	}
	den := floats.Norm(p, 2) * floats.Norm(q, 2)
	if den == 0 {
		return 0, false
	}
	return floats.Dot(p, q) / den, true
}
