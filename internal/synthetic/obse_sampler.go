package synthetic

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/lightcurve.report/internal/monitoring"
)

const (
	anchorBins   = 6
	anchorMaxObs = 0.15
	anchorTail   = 15.0
	rankTail     = 6.0
)

// RankBin is one equal-probability obs bin (Lo, Hi] with the Beta
// distribution fitted to its rescaled, negated errors.
type RankBin struct {
	Lo     float64      `json:"lo"`
	Hi     float64      `json:"hi"`
	Count  int          `json:"count"`
	Params BetaParams   `json:"params"`
	scaler minMaxScaler
}

// ObsErrorSampler draws synthetic observation errors conditioned on the
// observed value. It is immutable once built and safe for concurrent use.
type ObsErrorSampler struct {
	band      string
	slope     float64
	intercept float64
	maxObs    float64
	rawCount  int
	kept      int
	bins      []RankBin
}

// NewObsErrorSampler fits the sampler to every (obs, obse) pair of band in
// src.
//
// An upper-envelope line obs = m*obse + n is fitted through the largest
// errors of six low-flux bins, and points to the right of it are discarded
// as outliers. The retained obs are split into nRankRanges percentile bins
// and a Beta distribution is fitted to each bin's min-max scaled -obse.
func NewObsErrorSampler(src ObjectSource, band string, nRankRanges int) (*ObsErrorSampler, error) {
	if nRankRanges < 1 {
		return nil, fmt.Errorf("%w: %d rank ranges", ErrInvalidArgument, nRankRanges)
	}
	rawObs, rawObse := pool(src, band)
	if len(rawObs) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoObservations, band)
	}

	m, n, err := fitEnvelope(rawObs, rawObse)
	if err != nil {
		return nil, fmt.Errorf("band %q: %w", band, err)
	}
	var obs, obse []float64
	for i, o := range rawObs {
		if o >= rawObse[i]*m+n {
			obs = append(obs, o)
			obse = append(obse, rawObse[i])
		}
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: band %q: no points above the error envelope", ErrDegenerateFit, band)
	}

	s := &ObsErrorSampler{
		band:      band,
		slope:     m,
		intercept: n,
		maxObs:    floats.Max(obs),
		rawCount:  len(rawObs),
		kept:      len(obs),
	}
	bounds, members := percentileRanks(obs, nRankRanges)
	s.bins = make([]RankBin, nRankRanges)
	for k := range s.bins {
		bin, err := fitRankBin(obse, members[k], k)
		if err != nil {
			return nil, fmt.Errorf("band %q rank bin %d (%g, %g]: %w", band, k, bounds[k], bounds[k+1], err)
		}
		bin.Lo, bin.Hi = bounds[k], bounds[k+1]
		s.bins[k] = bin
	}
	monitoring.Logf("obse sampler %q: envelope m=%.4g n=%.4g, kept %d/%d points in %d bins",
		band, m, n, s.kept, s.rawCount, nRankRanges)
	return s, nil
}

// fitEnvelope regresses obs on obse through one anchor per low-flux bin.
func fitEnvelope(obs, obse []float64) (m, n float64, err error) {
	grid := make([]float64, anchorBins+1)
	floats.Span(grid, 0, anchorMaxObs)

	var ax, ay []float64
	for k := range anchorBins {
		var subObs, subObse []float64
		for i, o := range obs {
			if o > grid[k] && o <= grid[k+1] {
				subObs = append(subObs, o)
				subObse = append(subObse, obse[i])
			}
		}
		if len(subObs) <= 1 {
			monitoring.Debugf("anchor bin %d (%g, %g]: %d points, skipped", k, grid[k], grid[k+1], len(subObs))
			continue
		}
		kept, idx, err := DropoutExtremePercentiles(subObse, math.Exp(-2*float64(k))*anchorTail, DropoutUpper)
		if err != nil {
			return 0, 0, err
		}
		if len(kept) == 0 {
			continue
		}
		i := floats.MaxIdx(kept)
		ax = append(ax, kept[i])
		ay = append(ay, subObs[idx[i]])
	}
	if len(ax) < 2 {
		return 0, 0, fmt.Errorf("%w: %d envelope anchors, need 2", ErrDegenerateFit, len(ax))
	}
	n, m = stat.LinearRegression(ax, ay, nil, false)
	if !finite(m) || !finite(n) {
		return 0, 0, fmt.Errorf("%w: envelope regression through %v, %v", ErrDegenerateFit, ax, ay)
	}
	return m, n, nil
}

func fitRankBin(obse []float64, members []int, k int) (RankBin, error) {
	values := make([]float64, len(members))
	for i, j := range members {
		values[i] = obse[j]
	}
	kept, _, err := DropoutExtremePercentiles(values, math.Exp(-2*float64(k))*rankTail, DropoutUpper)
	if err != nil {
		return RankBin{}, err
	}
	if len(kept) < 2 {
		return RankBin{}, fmt.Errorf("%w: %d errors after tail dropout", ErrDegenerateFit, len(kept))
	}
	neg := make([]float64, len(kept))
	floats.ScaleTo(neg, -1, kept)
	sc := fitMinMax(neg, scalerEps, 1-scalerEps)
	scaled := make([]float64, len(neg))
	for i, v := range neg {
		scaled[i] = sc.transform(v)
	}
	params, err := FitBeta(scaled)
	if err != nil {
		return RankBin{}, err
	}
	return RankBin{Count: len(members), Params: params, scaler: sc}, nil
}

// Band is the photometric band the sampler was fitted on.
func (s *ObsErrorSampler) Band() string { return s.band }

// Slope and Intercept describe the outlier envelope obs = Slope*obse + Intercept.
func (s *ObsErrorSampler) Slope() float64 { return s.slope }

func (s *ObsErrorSampler) Intercept() float64 { return s.intercept }

// Bins returns a copy of the fitted rank bins.
func (s *ObsErrorSampler) Bins() []RankBin { return slices.Clone(s.bins) }

// binFor returns the first bin whose upper bound reaches obs after
// clamping obs to the largest retained value. Values below the first
// bound land in bin 0.
func (s *ObsErrorSampler) binFor(obs float64) int {
	v := math.Min(obs, s.maxObs)
	k, _ := slices.BinarySearchFunc(s.bins, v, func(b RankBin, t float64) int {
		switch {
		case b.Hi < t:
			return -1
		case b.Hi > t:
			return 1
		}
		return 0
	})
	return min(k, len(s.bins)-1)
}

// Sample draws one synthetic error per observed value. Every result lies
// within the error range fitted for its bin and is therefore positive.
func (s *ObsErrorSampler) Sample(rng *rand.Rand, obs []float64) ([]float64, error) {
	if len(obs) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([]float64, len(obs))
	for i, o := range obs {
		if math.IsNaN(o) {
			return nil, fmt.Errorf("%w: obs[%d] is NaN", ErrInvalidArgument, i)
		}
		b := s.bins[s.binFor(o)]
		d := distuv.Beta{Alpha: b.Params.Alpha, Beta: b.Params.Beta, Src: rng}
		out[i] = -b.scaler.clip(b.scaler.inverse(d.Rand()))
	}
	return out, nil
}
