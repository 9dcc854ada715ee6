package synthetic

import (
	"fmt"
	"math"
	"slices"
)

// DropoutMode selects which tail DropoutExtremePercentiles removes.
type DropoutMode string

const (
	DropoutUpper DropoutMode = "upper"
	DropoutLower DropoutMode = "lower"
	DropoutBoth  DropoutMode = "both"
)

// Percentile returns the p-th percentile (0..100) of x using linear
// interpolation between closest ranks, the same estimator as numpy's
// default. x need not be sorted. It returns NaN for an empty x.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := slices.Clone(x)
	slices.Sort(s)
	return sortedPercentile(s, p)
}

func sortedPercentile(s []float64, p float64) float64 {
	p = math.Min(math.Max(p, 0), 100)
	h := float64(len(s)-1) * p / 100
	lo := math.Floor(h)
	i := int(lo)
	if i >= len(s)-1 {
		return s[len(s)-1]
	}
	return s[i] + (h-lo)*(s[i+1]-s[i])
}

// DropoutExtremePercentiles removes the values of x beyond the p-th
// percentile tails selected by mode. The comparisons are strict, so values
// equal to a cut are dropped too. It returns the kept values and their
// indices in x.
func DropoutExtremePercentiles(x []float64, p float64, mode DropoutMode) (kept []float64, idx []int, err error) {
	if len(x) == 0 {
		return nil, nil, nil
	}
	s := slices.Clone(x)
	slices.Sort(s)
	lower, upper := math.Inf(-1), math.Inf(1)
	switch mode {
	case DropoutUpper:
		upper = sortedPercentile(s, 100-p)
	case DropoutLower:
		lower = sortedPercentile(s, p)
	case DropoutBoth:
		lower, upper = sortedPercentile(s, p), sortedPercentile(s, 100-p)
	default:
		return nil, nil, fmt.Errorf("%w: dropout mode %q", ErrUnknownMode, mode)
	}
	for i, v := range x {
		if v > lower && v < upper {
			kept = append(kept, v)
			idx = append(idx, i)
		}
	}
	return kept, idx, nil
}

// percentileRanks splits x into n equal-probability bins. bounds has n+1
// entries; bin k holds the indices with bounds[k] < x <= bounds[k+1].
func percentileRanks(x []float64, n int) (bounds []float64, members [][]int) {
	s := slices.Clone(x)
	slices.Sort(s)
	bounds = make([]float64, n+1)
	for k := range bounds {
		bounds[k] = sortedPercentile(s, 100*float64(k)/float64(n))
	}
	members = make([][]int, n)
	for i, v := range x {
		// first k with v <= bounds[k+1]
		k, _ := slices.BinarySearch(bounds[1:], v)
		if k < n && v > bounds[k] {
			members[k] = append(members[k], i)
		}
	}
	return bounds, members
}
