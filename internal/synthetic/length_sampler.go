package synthetic

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// CurveLengthSampler samples curve lengths from the empirical distribution
// of one band's lengths across a labeled set.
type CurveLengthSampler struct {
	band   string
	minLen int
	pmf    []float64
	cdf    []float64
}

// NewCurveLengthSampler counts the lengths of band over src. Every length
// in [min, max] receives its count plus offset, so a positive offset gives
// unobserved lengths some mass.
func NewCurveLengthSampler(src ObjectSource, band string, offset float64) (*CurveLengthSampler, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset %g", ErrInvalidArgument, offset)
	}
	var lengths []int
	for _, o := range src.Objects() {
		if c, ok := o.Band(band); ok {
			lengths = append(lengths, c.Len())
		}
	}
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoObservations, band)
	}
	lo, hi := slices.Min(lengths), slices.Max(lengths)
	pmf := make([]float64, hi-lo+1)
	for _, l := range lengths {
		pmf[l-lo]++
	}
	floats.AddConst(offset, pmf)
	total := floats.Sum(pmf)
	if !(total > 0) {
		return nil, fmt.Errorf("%w: zero-mass length distribution", ErrDegenerateFit)
	}
	floats.Scale(1/total, pmf)
	return &CurveLengthSampler{
		band:   band,
		minLen: lo,
		pmf:    pmf,
		cdf:    floats.CumSum(make([]float64, len(pmf)), pmf),
	}, nil
}

// MinLength is the shortest observed length, the value of PMF()[0].
func (s *CurveLengthSampler) MinLength() int { return s.minLen }

func (s *CurveLengthSampler) PMF() []float64 { return slices.Clone(s.pmf) }

func (s *CurveLengthSampler) CDF() []float64 { return slices.Clone(s.cdf) }

// Sample draws n lengths by inverse-CDF sampling. A negative n is
// ErrInvalidArgument; zero gives an empty slice.
func (s *CurveLengthSampler) Sample(rng *rand.Rand, n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: sample size %d", ErrInvalidArgument, n)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = s.minLen + s.index(rng.Float64())
	}
	return out, nil
}

// index is the first bin whose cumulative mass exceeds u.
func (s *CurveLengthSampler) index(u float64) int {
	k, found := slices.BinarySearch(s.cdf, u)
	if found {
		// cdf[k] == u; step past equal values to the first that exceeds u
		for k < len(s.cdf) && s.cdf[k] <= u {
			k++
		}
	}
	return min(k, len(s.cdf)-1)
}
