package lightcurve

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Combine returns the union of two curves sorted by day, labelled with a's
// label. A nil operand acts as the empty curve and yields a copy of the
// other. Two points sharing a day are rejected with ErrDaysNotIncreasing.
func Combine(a, b *Curve) (*Curve, error) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case b == nil:
		return a.Copy(), nil
	case a == nil:
		return b.Copy(), nil
	}

	days := slices.Concat(a.days, b.days)
	obs := slices.Concat(a.obs, b.obs)
	obse := slices.Concat(a.obse, b.obse)
	idx := make([]int, len(days))
	floats.ArgsortStable(days, idx)
	return NewCurve(days, take(obs, idx), take(obse, idx), a.y)
}

// Union is Combine(c, other).
func (c *Curve) Union(other *Curve) (*Curve, error) {
	return Combine(c, other)
}
