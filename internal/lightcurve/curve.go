// Package lightcurve models single-band and multi-band astronomical light
// curves and the in-place augmentation operators applied to them when
// building synthetic training sets.
package lightcurve

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

const (
	// MinPointsDefinition is the shortest band still treated as a light curve.
	MinPointsDefinition = 5
	// CadenceThreshold is the default cadence-cleaning window in days.
	CadenceThreshold = 12.0 / 24.0
	// ObseStdScale is the default ratio between obse and the Gaussian
	// standard deviation used for observation noise.
	ObseStdScale = 1.0

	eps = 1e-5
)

// SyntheticMode records how a curve was generated. The empty mode marks a
// real, observed curve.
type SyntheticMode string

const (
	SyntheticNone      SyntheticMode = ""
	SyntheticAugmented SyntheticMode = "augmented"
)

// Curve is the time series of one photometric band of one object.
//
// days is strictly increasing, obs is non-negative and obse strictly
// positive; the three always have the same length. Series are only ever
// replaced as a whole so that the invariants are checked before anything
// is committed.
type Curve struct {
	days []float64
	obs  []float64
	obse []float64

	y         *int
	synthetic SyntheticMode

	derived [3]derivedSeries

	extras     map[string][]float64
	extraOrder []string
}

// NewCurve validates and copies the three series into a new real curve.
func NewCurve(days, obs, obse []float64, y *int) (*Curve, error) {
	if err := validateSeries(days, obs, obse); err != nil {
		return nil, err
	}
	return &Curve{
		days: slices.Clone(days),
		obs:  slices.Clone(obs),
		obse: slices.Clone(obse),
		y:    cloneInt(y),
	}, nil
}

func validateSeries(days, obs, obse []float64) error {
	if len(days) != len(obs) || len(obs) != len(obse) {
		return fmt.Errorf("%w: days=%d obs=%d obse=%d", ErrLengthMismatch, len(days), len(obs), len(obse))
	}
	if err := checkIncreasing(days); err != nil {
		return err
	}
	for i, v := range obs {
		if !(v >= 0) {
			return fmt.Errorf("%w: obs[%d]=%g", ErrNegativeObs, i, v)
		}
	}
	for i, v := range obse {
		if !(v > 0) {
			return fmt.Errorf("%w: obse[%d]=%g", ErrNonPositiveObse, i, v)
		}
	}
	return nil
}

func checkIncreasing(days []float64) error {
	for i, d := range days {
		if math.IsNaN(d) {
			return fmt.Errorf("%w: days[%d] is NaN", ErrDaysNotIncreasing, i)
		}
		if i > 0 && !(d > days[i-1]) {
			return fmt.Errorf("%w: days[%d]=%g after %g", ErrDaysNotIncreasing, i, d, days[i-1])
		}
	}
	return nil
}

// ReplaceSeries overwrites all three series at once. Extra arrays are kept
// only when the length is unchanged.
func (c *Curve) ReplaceSeries(days, obs, obse []float64) error {
	if err := validateSeries(days, obs, obse); err != nil {
		return err
	}
	if len(days) != len(c.days) {
		c.extras = nil
		c.extraOrder = nil
	}
	c.days = slices.Clone(days)
	c.obs = slices.Clone(obs)
	c.obse = slices.Clone(obse)
	c.refresh(true, RequiredFields...)
	return nil
}

// Len returns the number of points.
func (c *Curve) Len() int { return len(c.days) }

// Days returns a copy of the observation times.
func (c *Curve) Days() []float64 { return slices.Clone(c.days) }

// Obs returns a copy of the observed values.
func (c *Curve) Obs() []float64 { return slices.Clone(c.obs) }

// Obse returns a copy of the observation errors.
func (c *Curve) Obse() []float64 { return slices.Clone(c.obse) }

// DaysUpTo returns the series restricted to points with day <= maxDay.
func (c *Curve) DaysUpTo(maxDay float64) (days, obs, obse []float64) {
	for i, d := range c.days {
		if d <= maxDay {
			days = append(days, d)
			obs = append(obs, c.obs[i])
			obse = append(obse, c.obse[i])
		}
	}
	return days, obs, obse
}

// Y returns the class label, or nil when unlabelled.
func (c *Curve) Y() *int { return cloneInt(c.y) }

func (c *Curve) setY(y *int) { c.y = cloneInt(y) }

// SyntheticMode returns the provenance tag.
func (c *Curve) SyntheticMode() SyntheticMode { return c.synthetic }

// SetSyntheticMode tags the curve; SyntheticNone marks it as real.
func (c *Curve) SetSyntheticMode(m SyntheticMode) { c.synthetic = m }

// IsSynthetic reports whether the curve was generated rather than observed.
func (c *Curve) IsSynthetic() bool { return c.synthetic != SyntheticNone }

// FirstDay returns the earliest day; ok is false for an empty curve.
func (c *Curve) FirstDay() (day float64, ok bool) {
	if len(c.days) == 0 {
		return 0, false
	}
	return c.days[0], true
}

// LastDay returns the latest day; ok is false for an empty curve.
func (c *Curve) LastDay() (day float64, ok bool) {
	if len(c.days) == 0 {
		return 0, false
	}
	return c.days[len(c.days)-1], true
}

// Duration returns last minus first day; ok is false for an empty curve.
func (c *Curve) Duration() (float64, bool) {
	if len(c.days) == 0 {
		return 0, false
	}
	return c.days[len(c.days)-1] - c.days[0], true
}

// SNR returns mean(obs²/obse²), or -Inf for an empty curve.
func (c *Curve) SNR() float64 {
	if len(c.days) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for i, o := range c.obs {
		sum += (o * o) / (c.obse[i] * c.obse[i])
	}
	return sum / float64(len(c.obs))
}

// ComputeDerived computes the delta series f and keeps it up to date
// through later mutations.
func (c *Curve) ComputeDerived(f Field) error {
	i := derivedIndex(f)
	if i < 0 {
		return fmt.Errorf("%w: %q is not a derived field", ErrUnknownField, f)
	}
	c.derived[i] = derivedSeries{state: CacheValid, values: diff(c.base(f.Base()))}
	return nil
}

// RestoreDerived installs previously computed values for f as valid. It is
// used when loading persisted curves.
func (c *Curve) RestoreDerived(f Field, values []float64) error {
	i := derivedIndex(f)
	if i < 0 {
		return fmt.Errorf("%w: %q is not a derived field", ErrUnknownField, f)
	}
	if len(values) != len(c.days) {
		return fmt.Errorf("%w: %s has %d values for %d points", ErrLengthMismatch, f, len(values), len(c.days))
	}
	c.derived[i] = derivedSeries{state: CacheValid, values: slices.Clone(values)}
	return nil
}

// DerivedState reports the cache state of f.
func (c *Curve) DerivedState(f Field) CacheState {
	i := derivedIndex(f)
	if i < 0 {
		return CacheUncomputed
	}
	return c.derived[i].state
}

// Derived returns the delta series f, recomputing it if stale. ok is false
// when f has never been computed.
func (c *Curve) Derived(f Field) (values []float64, ok bool) {
	i := derivedIndex(f)
	if i < 0 {
		return nil, false
	}
	switch c.derived[i].state {
	case CacheUncomputed:
		return nil, false
	case CacheStale:
		c.derived[i] = derivedSeries{state: CacheValid, values: diff(c.base(f.Base()))}
	}
	return slices.Clone(c.derived[i].values), true
}

// SetExtra attaches an additional per-point array. It follows the curve
// through every reordering and filtering operation.
func (c *Curve) SetExtra(name string, values []float64) error {
	f := Field(name)
	if f.IsRequired() || f.IsDerived() || name == "" {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidArgument, name)
	}
	if len(values) != len(c.days) {
		return fmt.Errorf("%w: extra %q has %d values for %d points", ErrLengthMismatch, name, len(values), len(c.days))
	}
	if c.extras == nil {
		c.extras = make(map[string][]float64)
	}
	if _, ok := c.extras[name]; !ok {
		c.extraOrder = append(c.extraOrder, name)
	}
	c.extras[name] = slices.Clone(values)
	return nil
}

// Extra returns a copy of a registered extra array.
func (c *Curve) Extra(name string) ([]float64, bool) {
	v, ok := c.extras[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// ExtraNames lists registered extra arrays in registration order.
func (c *Curve) ExtraNames() []string { return slices.Clone(c.extraOrder) }

// Fields enumerates every populated per-point array: the required fields,
// derived fields that have been computed, then extras.
func (c *Curve) Fields() []Field {
	out := slices.Clone(RequiredFields)
	for i, f := range DerivedFields {
		if c.derived[i].state != CacheUncomputed {
			out = append(out, f)
		}
	}
	for _, name := range c.extraOrder {
		out = append(out, Field(name))
	}
	return out
}

// Field returns a copy of any per-point array by name.
func (c *Curve) Field(f Field) ([]float64, bool) {
	switch {
	case f.IsRequired():
		return slices.Clone(c.base(f)), true
	case f.IsDerived():
		return c.Derived(f)
	default:
		return c.Extra(string(f))
	}
}

// FeatureMatrix stacks the requested fields as columns of a Len()×k matrix.
func (c *Curve) FeatureMatrix(fields ...Field) (*mat.Dense, error) {
	if len(c.days) == 0 {
		return nil, ErrEmptyCurve
	}
	if len(fields) == 0 {
		fields = RequiredFields
	}
	m := mat.NewDense(len(c.days), len(fields), nil)
	for j, f := range fields {
		col, ok := c.Field(f)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
		m.SetCol(j, col)
	}
	return m, nil
}

// Copy returns an independent deep copy, including caches and extras.
func (c *Curve) Copy() *Curve {
	out := &Curve{
		days:      slices.Clone(c.days),
		obs:       slices.Clone(c.obs),
		obse:      slices.Clone(c.obse),
		y:         cloneInt(c.y),
		synthetic: c.synthetic,
	}
	for i, d := range c.derived {
		out.derived[i] = derivedSeries{state: d.state, values: slices.Clone(d.values)}
	}
	if c.extras != nil {
		out.extras = make(map[string][]float64, len(c.extras))
		for k, v := range c.extras {
			out.extras[k] = slices.Clone(v)
		}
		out.extraOrder = slices.Clone(c.extraOrder)
	}
	return out
}

func (c *Curve) String() string {
	return fmt.Sprintf("[d:%v, o:%v, oe:%v]", c.days, c.obs, c.obse)
}

func (c *Curve) base(f Field) []float64 {
	switch f {
	case FieldDays:
		return c.days
	case FieldObs:
		return c.obs
	case FieldObse:
		return c.obse
	}
	return nil
}

// refresh brings derived fields of the changed bases up to date: computed
// fields are recalculated now or marked stale for the next read.
func (c *Curve) refresh(recalculate bool, changed ...Field) {
	for i, f := range DerivedFields {
		if c.derived[i].state == CacheUncomputed || !slices.Contains(changed, f.Base()) {
			continue
		}
		if recalculate {
			c.derived[i] = derivedSeries{state: CacheValid, values: diff(c.base(f.Base()))}
		} else {
			c.derived[i] = derivedSeries{state: CacheStale}
		}
	}
}

// reindex keeps the points at idx, in that order, across every per-point
// array. Callers guarantee the resulting days are strictly increasing.
func (c *Curve) reindex(idx []int, recalculate bool) {
	c.days = take(c.days, idx)
	c.obs = take(c.obs, idx)
	c.obse = take(c.obse, idx)
	for k, v := range c.extras {
		c.extras[k] = take(v, idx)
	}
	c.refresh(recalculate, RequiredFields...)
}

func (c *Curve) applyMask(mask []bool, recalculate bool) {
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	c.reindex(idx, recalculate)
}

func take(x []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
