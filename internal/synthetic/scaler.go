package synthetic

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const scalerEps = 1e-3

// minMaxScaler maps the fitted data range linearly onto [lo, hi]. A zero
// data range is treated as 1 so constant data maps to lo.
type minMaxScaler struct {
	DataMin float64 `json:"data_min"`
	DataMax float64 `json:"data_max"`
	Lo      float64 `json:"lo"`
	Hi      float64 `json:"hi"`
}

func fitMinMax(x []float64, lo, hi float64) minMaxScaler {
	return minMaxScaler{DataMin: floats.Min(x), DataMax: floats.Max(x), Lo: lo, Hi: hi}
}

func (s minMaxScaler) dataRange() float64 {
	r := s.DataMax - s.DataMin
	if r == 0 {
		return 1
	}
	return r
}

func (s minMaxScaler) transform(v float64) float64 {
	return (v-s.DataMin)/s.dataRange()*(s.Hi-s.Lo) + s.Lo
}

func (s minMaxScaler) inverse(v float64) float64 {
	return (v-s.Lo)/(s.Hi-s.Lo)*s.dataRange() + s.DataMin
}

// clip limits v to the fitted data range.
func (s minMaxScaler) clip(v float64) float64 {
	return math.Min(math.Max(v, s.DataMin), s.DataMax)
}
