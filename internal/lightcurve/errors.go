package lightcurve

import (
	"errors"
	"fmt"
)

// ErrInvalidCurve is the parent of every invariant violation on a Curve.
var ErrInvalidCurve = errors.New("invalid light curve")

var (
	ErrLengthMismatch    = fmt.Errorf("%w: series length mismatch", ErrInvalidCurve)
	ErrDaysNotIncreasing = fmt.Errorf("%w: days are not strictly increasing", ErrInvalidCurve)
	ErrNegativeObs       = fmt.Errorf("%w: negative observation", ErrInvalidCurve)
	ErrNonPositiveObse   = fmt.Errorf("%w: non-positive observation error", ErrInvalidCurve)
)

var (
	ErrUnknownMode     = errors.New("unknown mode")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownField    = errors.New("unknown per-point field")
	ErrEmptyCurve      = errors.New("light curve is empty")
	ErrBandExists      = errors.New("band already attached")
	ErrUnknownBand     = errors.New("unknown band")
)
