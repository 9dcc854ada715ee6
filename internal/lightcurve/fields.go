package lightcurve

import "gonum.org/v1/gonum/floats"

// Field names a per-point array held by a Curve.
type Field string

const (
	FieldDays Field = "days"
	FieldObs  Field = "obs"
	FieldObse Field = "obse"

	FieldDeltaDays Field = "d_days"
	FieldDeltaObs  Field = "d_obs"
	FieldDeltaObse Field = "d_obse"
)

// RequiredFields are present on every curve, in storage order.
var RequiredFields = []Field{FieldDays, FieldObs, FieldObse}

// DerivedFields are the cached first differences of the required fields.
var DerivedFields = []Field{FieldDeltaDays, FieldDeltaObs, FieldDeltaObse}

// IsRequired reports whether f is one of days, obs or obse.
func (f Field) IsRequired() bool {
	return f == FieldDays || f == FieldObs || f == FieldObse
}

// IsDerived reports whether f is a cached delta series.
func (f Field) IsDerived() bool {
	return derivedIndex(f) >= 0
}

// Base returns the required field a derived field is computed from, or f
// itself for any other field.
func (f Field) Base() Field {
	switch f {
	case FieldDeltaDays:
		return FieldDays
	case FieldDeltaObs:
		return FieldObs
	case FieldDeltaObse:
		return FieldObse
	}
	return f
}

func derivedIndex(f Field) int {
	for i, d := range DerivedFields {
		if d == f {
			return i
		}
	}
	return -1
}

// CacheState tracks a derived series relative to the base series it is
// computed from.
type CacheState int

const (
	CacheUncomputed CacheState = iota
	CacheStale
	CacheValid
)

func (s CacheState) String() string {
	switch s {
	case CacheUncomputed:
		return "uncomputed"
	case CacheStale:
		return "stale"
	case CacheValid:
		return "valid"
	default:
		return "unknown"
	}
}

type derivedSeries struct {
	state  CacheState
	values []float64
}

// diff returns the first difference of x with a leading zero, so the
// result has the same length as x.
func diff(x []float64) []float64 {
	d := make([]float64, len(x))
	if len(x) > 1 {
		floats.SubTo(d[1:], x[1:], x[:len(x)-1])
	}
	return d
}
