package lightcurve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CadenceMode selects how a run of close observations collapses to one point.
type CadenceMode string

const (
	CadenceMean        CadenceMode = "mean"
	CadenceMinObse     CadenceMode = "min_obse"
	CadenceExpectation CadenceMode = "expectation"
)

func (m CadenceMode) valid() bool {
	return m == CadenceMean || m == CadenceMinObse || m == CadenceExpectation
}

// CleanSmallCadence groups the points falling in [day, day+dt) of the
// first ungrouped point and replaces each group with a single point.
func (c *Curve) CleanSmallCadence(dt float64, mode CadenceMode) error {
	days, obs, obse, err := c.cleanedSeries(dt, mode)
	if err != nil {
		return err
	}
	return c.ReplaceSeries(days, obs, obse)
}

func (c *Curve) cleanedSeries(dt float64, mode CadenceMode) (days, obs, obse []float64, err error) {
	if !mode.valid() {
		return nil, nil, nil, fmt.Errorf("%w: cadence mode %q", ErrUnknownMode, mode)
	}
	if !(dt > 0) {
		return nil, nil, nil, fmt.Errorf("%w: cadence window %g", ErrInvalidArgument, dt)
	}

	n := len(c.days)
	days = make([]float64, 0, n)
	obs = make([]float64, 0, n)
	obse = make([]float64, 0, n)
	for start := 0; start < n; {
		end := start + 1
		for end < n && c.days[end] < c.days[start]+dt {
			end++
		}
		d, o, e := c.days[start:end], c.obs[start:end], c.obse[start:end]

		switch mode {
		case CadenceMean:
			days = append(days, stat.Mean(d, nil))
			obs = append(obs, stat.Mean(o, nil))
			obse = append(obse, stat.Mean(e, nil))
		case CadenceMinObse:
			i := floats.MinIdx(e)
			days = append(days, d[i])
			obs = append(obs, o[i])
			obse = append(obse, e[i])
		case CadenceExpectation:
			w := make([]float64, len(e))
			for i, v := range e {
				w[i] = math.Exp(-math.Log(v + eps))
			}
			floats.Scale(1/floats.Sum(w), w)
			days = append(days, floats.Dot(d, w))
			obs = append(obs, floats.Dot(o, w))
			obse = append(obse, floats.Dot(e, w))
		}
		start = end
	}
	return days, obs, obse, nil
}
