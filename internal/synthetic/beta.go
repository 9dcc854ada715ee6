package synthetic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lightcurve.report/internal/monitoring"
)

// BetaParams are the shape parameters of a Beta distribution on [0, 1].
type BetaParams struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// FitBeta returns the maximum-likelihood Beta shape parameters for x with
// location 0 and scale 1. Every value must lie strictly inside (0, 1) and
// x must hold at least two distinct values.
func FitBeta(x []float64) (BetaParams, error) {
	if len(x) < 2 {
		return BetaParams{}, fmt.Errorf("%w: beta fit needs at least 2 values, got %d", ErrDegenerateFit, len(x))
	}
	var sumLog, sumLog1m float64
	distinct := false
	for _, v := range x {
		if !(v > 0 && v < 1) {
			return BetaParams{}, fmt.Errorf("%w: beta sample %g outside (0, 1)", ErrDegenerateFit, v)
		}
		if v != x[0] {
			distinct = true
		}
		sumLog += math.Log(v)
		sumLog1m += math.Log1p(-v)
	}
	if !distinct {
		return BetaParams{}, fmt.Errorf("%w: beta fit on constant data", ErrDegenerateFit)
	}
	n := float64(len(x))
	meanLog, meanLog1m := sumLog/n, sumLog1m/n

	// Optimise over log-shapes so both stay positive.
	nll := func(theta []float64) float64 {
		a, b := math.Exp(theta[0]), math.Exp(theta[1])
		return lbeta(a, b) - (a-1)*meanLog - (b-1)*meanLog1m
	}
	grad := func(g, theta []float64) {
		a, b := math.Exp(theta[0]), math.Exp(theta[1])
		ab := mathext.Digamma(a + b)
		g[0] = -a * (ab - mathext.Digamma(a) + meanLog)
		g[1] = -b * (ab - mathext.Digamma(b) + meanLog1m)
	}

	a0, b0 := betaMoments(x)
	start := []float64{math.Log(a0), math.Log(b0)}
	res, err := optimize.Minimize(optimize.Problem{Func: nll, Grad: grad}, start, nil, &optimize.BFGS{})
	if res == nil || !finite(res.F) || !finite(res.X[0]) || !finite(res.X[1]) {
		return BetaParams{}, fmt.Errorf("%w: beta optimisation failed: %v", ErrDegenerateFit, err)
	}
	if err != nil {
		if res.F > nll(start) {
			return BetaParams{}, fmt.Errorf("%w: beta optimisation failed: %v", ErrDegenerateFit, err)
		}
		monitoring.Debugf("beta fit stopped early (%v); keeping alpha=%.4g beta=%.4g", err, math.Exp(res.X[0]), math.Exp(res.X[1]))
	}
	return BetaParams{Alpha: math.Exp(res.X[0]), Beta: math.Exp(res.X[1])}, nil
}

// betaMoments is the method-of-moments estimate, used as the starting
// point of the likelihood search.
func betaMoments(x []float64) (a, b float64) {
	mean, variance := stat.MeanVariance(x, nil)
	common := mean*(1-mean)/variance - 1
	if !(common > 0) || !finite(common) {
		return 1, 1
	}
	return mean * common, (1 - mean) * common
}

func lbeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
