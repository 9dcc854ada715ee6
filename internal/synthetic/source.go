// Package synthetic fits the empirical distributions used to generate
// synthetic light curves: observation errors conditioned on the observed
// value, and curve lengths.
package synthetic

import (
	"errors"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
)

var (
	ErrDegenerateFit   = errors.New("degenerate distribution fit")
	ErrNoObservations  = errors.New("no observations for band")
	ErrEmptyInput      = errors.New("empty input")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ObjectSource is anything that can enumerate the objects of a labeled set.
type ObjectSource interface {
	Objects() []*lightcurve.Object
}

// pool concatenates obs and obse of band across all objects carrying it.
func pool(src ObjectSource, band string) (obs, obse []float64) {
	for _, o := range src.Objects() {
		c, ok := o.Band(band)
		if !ok {
			continue
		}
		obs = append(obs, c.Obs()...)
		obse = append(obse, c.Obse()...)
	}
	return obs, obse
}
