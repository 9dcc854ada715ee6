package lightcurve

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseMode selects the observation noise model.
type NoiseMode string

const NoiseNormal NoiseMode = "norm"

// WindowMode selects how DownsampleWindow picks the retained window.
type WindowMode string

const (
	WindowNone   WindowMode = "none"
	WindowLeft   WindowMode = "left"
	WindowRandom WindowMode = "random"
)

// ShiftDays adds deltas to days and reorders every per-point array so that
// days stay sorted. The curve is left unchanged if the shift would create
// two points on the same day.
func (c *Curve) ShiftDays(deltas []float64, recalculate bool) error {
	if len(deltas) != len(c.days) {
		return fmt.Errorf("%w: %d deltas for %d points", ErrLengthMismatch, len(deltas), len(c.days))
	}
	shifted := make([]float64, len(c.days))
	floats.AddTo(shifted, c.days, deltas)
	idx := make([]int, len(shifted))
	floats.ArgsortStable(shifted, idx)
	if err := checkIncreasing(shifted); err != nil {
		return err
	}

	c.days = shifted
	c.obs = take(c.obs, idx)
	c.obse = take(c.obse, idx)
	for k, v := range c.extras {
		c.extras[k] = take(v, idx)
	}
	c.refresh(recalculate, RequiredFields...)
	return nil
}

// AddUniformDayJitter shifts every point by an independent U[-h, h] hours
// offset.
func (c *Curve) AddUniformDayJitter(rng *rand.Rand, hoursNoise float64, recalculate bool) error {
	if hoursNoise == 0 {
		return nil
	}
	if hoursNoise < 0 || math.IsNaN(hoursNoise) {
		return fmt.Errorf("%w: hours noise %g", ErrInvalidArgument, hoursNoise)
	}
	u := distuv.Uniform{Min: -hoursNoise, Max: hoursNoise, Src: rng}
	deltas := make([]float64, len(c.days))
	for i := range deltas {
		deltas[i] = u.Rand() / 24
	}
	return c.ShiftDays(deltas, recalculate)
}

// ShiftObs adds deltas to obs. Only d_obs depends on obs.
func (c *Curve) ShiftObs(deltas []float64, recalculate bool) error {
	if len(deltas) != len(c.obs) {
		return fmt.Errorf("%w: %d deltas for %d points", ErrLengthMismatch, len(deltas), len(c.obs))
	}
	shifted := make([]float64, len(c.obs))
	floats.AddTo(shifted, c.obs, deltas)
	for i, v := range shifted {
		if !(v >= 0) {
			return fmt.Errorf("%w: obs[%d]=%g", ErrNegativeObs, i, v)
		}
	}
	c.obs = shifted
	c.refresh(recalculate, FieldObs)
	return nil
}

// AddGaussianObsNoise redraws every observation from N(obs, obse*stdScale)
// clipped below at obsMinLimit.
func (c *Curve) AddGaussianObsNoise(rng *rand.Rand, obsMinLimit, stdScale float64, mode NoiseMode, recalculate bool) error {
	if mode != NoiseNormal {
		return fmt.Errorf("%w: noise mode %q", ErrUnknownMode, mode)
	}
	if stdScale == 0 {
		return nil
	}
	if stdScale < 0 || math.IsNaN(stdScale) {
		return fmt.Errorf("%w: std scale %g", ErrInvalidArgument, stdScale)
	}
	for i, v := range c.obs {
		if v < obsMinLimit {
			return fmt.Errorf("%w: obs[%d]=%g below limit %g", ErrInvalidArgument, i, v, obsMinLimit)
		}
	}
	deltas := make([]float64, len(c.obs))
	for i, o := range c.obs {
		n := distuv.Normal{Mu: o, Sigma: c.obse[i] * stdScale, Src: rng}
		deltas[i] = math.Max(n.Rand(), obsMinLimit) - o
	}
	return c.ShiftObs(deltas, recalculate)
}

// DownsampleRandom drops each point with probability dropProb, applied to
// the whole curve with probability applyProb. At least minValidLength
// points are kept. It reports whether the curve was downsampled.
func (c *Curve) DownsampleRandom(rng *rand.Rand, dropProb, applyProb float64, minValidLength int, recalculate bool) (bool, error) {
	if !(dropProb >= 0 && dropProb <= 1) {
		return false, fmt.Errorf("%w: drop probability %g", ErrInvalidArgument, dropProb)
	}
	if !(applyProb >= 0 && applyProb <= 1) {
		return false, fmt.Errorf("%w: apply probability %g", ErrInvalidArgument, applyProb)
	}
	if minValidLength < 0 {
		return false, fmt.Errorf("%w: min valid length %d", ErrInvalidArgument, minValidLength)
	}
	if dropProb == 0 || applyProb == 0 || len(c.days) <= minValidLength {
		return false, nil
	}
	if applyProb <= rng.Float64() {
		return false, nil
	}

	keep := distuv.Bernoulli{P: 1 - dropProb, Src: rng}
	mask := make([]bool, len(c.days))
	kept := 0
	for i := range mask {
		mask[i] = keep.Rand() == 1
		if mask[i] {
			kept++
		}
	}
	if kept < minValidLength {
		mask = randomMask(rng, len(c.days), minValidLength)
	}
	c.applyMask(mask, recalculate)
	return true, nil
}

// DownsampleToLength keeps exactly k randomly chosen points, preserving
// their order. Curves already at or below k points are left unchanged.
func (c *Curve) DownsampleToLength(rng *rand.Rand, k int, recalculate bool) (bool, error) {
	if k < 0 {
		return false, fmt.Errorf("%w: target length %d", ErrInvalidArgument, k)
	}
	if len(c.days) <= k {
		return false, nil
	}
	c.applyMask(randomMask(rng, len(c.days), k), recalculate)
	return true, nil
}

// randomMask marks exactly k of n positions, uniformly at random.
func randomMask(rng *rand.Rand, n, k int) []bool {
	mask := make([]bool, n)
	for _, i := range rng.Perm(n)[:k] {
		mask[i] = true
	}
	return mask
}

// DownsampleWindow keeps a contiguous window of at least minValidLength
// points. WindowLeft keeps a prefix and WindowRandom a window at a random
// start; WindowNone succeeds without changing anything.
func (c *Curve) DownsampleWindow(rng *rand.Rand, mode WindowMode, minValidLength int, recalculate bool) (bool, error) {
	switch mode {
	case WindowNone, WindowLeft, WindowRandom:
	default:
		return false, fmt.Errorf("%w: window mode %q", ErrUnknownMode, mode)
	}
	if minValidLength < 0 {
		return false, fmt.Errorf("%w: min valid length %d", ErrInvalidArgument, minValidLength)
	}
	n := len(c.days)
	if n <= minValidLength {
		return false, nil
	}
	if mode == WindowNone {
		return true, nil
	}

	length := minValidLength + rng.IntN(n-minValidLength+1)
	start := 0
	if mode == WindowRandom {
		start = rng.IntN(n - length + 1)
	}
	idx := make([]int, length)
	for i := range idx {
		idx[i] = start + i
	}
	c.reindex(idx, recalculate)
	return true, nil
}

// SampleWindowMode draws a mode from a probability table. Weights need
// not be normalised.
func SampleWindowMode(rng *rand.Rand, table map[WindowMode]float64) (WindowMode, error) {
	if len(table) == 0 {
		return "", fmt.Errorf("%w: empty window mode table", ErrInvalidArgument)
	}
	modes := make([]WindowMode, 0, len(table))
	for m := range table {
		modes = append(modes, m)
	}
	slices.Sort(modes)
	weights := make([]float64, len(modes))
	for i, m := range modes {
		w := table[m]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return "", fmt.Errorf("%w: weight %g for window mode %q", ErrInvalidArgument, w, m)
		}
		weights[i] = w
	}
	if floats.Sum(weights) == 0 {
		return "", fmt.Errorf("%w: window mode weights sum to zero", ErrInvalidArgument)
	}
	cat := distuv.NewCategorical(weights, rng)
	return modes[int(cat.Rand())], nil
}

// DownsampleWindowFrom samples a mode from table and applies it.
func (c *Curve) DownsampleWindowFrom(rng *rand.Rand, table map[WindowMode]float64, minValidLength int, recalculate bool) (bool, error) {
	mode, err := SampleWindowMode(rng, table)
	if err != nil {
		return false, err
	}
	return c.DownsampleWindow(rng, mode, minValidLength, recalculate)
}

// ClipToMaxDay drops every point after maxDay, measured from the first day
// when removeOffset is set.
func (c *Curve) ClipToMaxDay(maxDay float64, removeOffset bool) {
	if len(c.days) == 0 {
		return
	}
	offset := 0.0
	if removeOffset {
		offset = c.days[0]
	}
	mask := make([]bool, len(c.days))
	for i, d := range c.days {
		mask[i] = d-offset <= maxDay
	}
	c.applyMask(mask, true)
}

// ClipToMaxDuration keeps the points within maxDuration of the first day.
func (c *Curve) ClipToMaxDuration(maxDuration float64) {
	c.ClipToMaxDay(maxDuration, true)
}
