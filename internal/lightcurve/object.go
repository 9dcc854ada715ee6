package lightcurve

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Metadata holds the object-level attributes shared by every band.
type Metadata struct {
	IsFlux bool
	Y      *int
	// GlobalFirstDay records the day offset removed by NormalizeDayOffset.
	GlobalFirstDay float64
	RA             *float64
	Dec            *float64
	Redshift       *float64
}

// Object is a multi-band light curve of one astronomical object. Bands are
// append-only and every curve carries the object's label.
type Object struct {
	meta   Metadata
	bands  []string
	curves map[string]*Curve
}

// NewObject returns an object with no bands.
func NewObject(meta Metadata) *Object {
	return &Object{
		meta:   cloneMetadata(meta),
		curves: make(map[string]*Curve),
	}
}

// Metadata returns a copy of the object metadata.
func (o *Object) Metadata() Metadata { return cloneMetadata(o.meta) }

// Y returns the class label, or nil when unlabelled.
func (o *Object) Y() *int { return cloneInt(o.meta.Y) }

// SetY relabels the object and every attached curve.
func (o *Object) SetY(y *int) {
	o.meta.Y = cloneInt(y)
	for _, c := range o.curves {
		c.setY(y)
	}
}

// AttachBand builds a curve from the series and attaches it under band.
func (o *Object) AttachBand(band string, days, obs, obse []float64) error {
	if _, ok := o.curves[band]; ok {
		return fmt.Errorf("%w: %q", ErrBandExists, band)
	}
	c, err := NewCurve(days, obs, obse, o.meta.Y)
	if err != nil {
		return fmt.Errorf("band %q: %w", band, err)
	}
	return o.AttachCurve(band, c)
}

// AttachCurve attaches an existing curve under band. The object takes
// ownership of c and stamps it with the object label.
func (o *Object) AttachCurve(band string, c *Curve) error {
	if band == "" {
		return fmt.Errorf("%w: empty band name", ErrInvalidArgument)
	}
	if c == nil {
		return fmt.Errorf("%w: nil curve for band %q", ErrInvalidArgument, band)
	}
	if _, ok := o.curves[band]; ok {
		return fmt.Errorf("%w: %q", ErrBandExists, band)
	}
	c.setY(o.meta.Y)
	o.bands = append(o.bands, band)
	o.curves[band] = c
	return nil
}

// Band returns the curve attached under band.
func (o *Object) Band(band string) (*Curve, bool) {
	c, ok := o.curves[band]
	return c, ok
}

// Bands lists band names in attachment order.
func (o *Object) Bands() []string { return slices.Clone(o.bands) }

// LengthByBand maps every band to its number of points.
func (o *Object) LengthByBand() map[string]int {
	out := make(map[string]int, len(o.bands))
	for _, b := range o.bands {
		out[b] = o.curves[b].Len()
	}
	return out
}

// Len is the total number of points across bands.
func (o *Object) Len() int {
	n := 0
	for _, c := range o.curves {
		n += c.Len()
	}
	return n
}

// NormalizeDayOffset shifts every band so the earliest day across all
// non-empty bands becomes zero. When store is set the removed offset is
// recorded as GlobalFirstDay. applied is false if every band is empty.
func (o *Object) NormalizeDayOffset(store bool) (offset float64, applied bool) {
	offset = math.Inf(1)
	for _, b := range o.bands {
		if d, ok := o.curves[b].FirstDay(); ok {
			offset = math.Min(offset, d)
		}
	}
	if math.IsInf(offset, 1) {
		return 0, false
	}
	for _, b := range o.bands {
		c := o.curves[b]
		floats.AddConst(-offset, c.days)
		c.refresh(true, FieldDays)
	}
	if store {
		o.meta.GlobalFirstDay = offset
	}
	return offset, true
}

func (o *Object) resolveBands(bands []string) ([]string, error) {
	if len(bands) == 0 {
		return o.bands, nil
	}
	for _, b := range bands {
		if _, ok := o.curves[b]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBand, b)
		}
	}
	return bands, nil
}

// MergedDayOrderIndex concatenates the days of the given bands (all bands
// when none are named) and returns the stable permutation sorting them.
func (o *Object) MergedDayOrderIndex(bands ...string) ([]int, error) {
	bands, err := o.resolveBands(bands)
	if err != nil {
		return nil, err
	}
	var days []float64
	for _, b := range bands {
		days = append(days, o.curves[b].days...)
	}
	idx := make([]int, len(days))
	floats.ArgsortStable(days, idx)
	return idx, nil
}

// OneHotBandLabels marks, for each point in merged day order, the band it
// came from. Row i has exactly one true column.
func (o *Object) OneHotBandLabels(bands ...string) ([][]bool, error) {
	bands, err := o.resolveBands(bands)
	if err != nil {
		return nil, err
	}
	var owner []int
	for k, b := range bands {
		for range o.curves[b].Len() {
			owner = append(owner, k)
		}
	}
	idx, err := o.MergedDayOrderIndex(bands...)
	if err != nil {
		return nil, err
	}
	out := make([][]bool, len(idx))
	for i, j := range idx {
		out[i] = make([]bool, len(bands))
		out[i][owner[j]] = true
	}
	return out, nil
}

// MergedFeatureMatrix stacks fields of the given bands and reorders the
// rows by merged day order.
func (o *Object) MergedFeatureMatrix(fields []Field, bands ...string) (*mat.Dense, error) {
	bands, err := o.resolveBands(bands)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = RequiredFields
	}
	var rows [][]float64
	for _, b := range bands {
		c := o.curves[b]
		cols := make([][]float64, len(fields))
		for j, f := range fields {
			v, ok := c.Field(f)
			if !ok {
				return nil, fmt.Errorf("band %q: %w: %q", b, ErrUnknownField, f)
			}
			cols[j] = v
		}
		for i := range c.Len() {
			row := make([]float64, len(fields))
			for j := range fields {
				row[j] = cols[j][i]
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCurve
	}
	idx, err := o.MergedDayOrderIndex(bands...)
	if err != nil {
		return nil, err
	}
	m := mat.NewDense(len(rows), len(fields), nil)
	for i, j := range idx {
		m.SetRow(i, rows[j])
	}
	return m, nil
}

// MergedDays returns the days of the given bands in merged order.
func (o *Object) MergedDays(bands ...string) ([]float64, error) {
	m, err := o.MergedFeatureMatrix([]Field{FieldDays}, bands...)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, m), nil
}

// Duration is the span between the earliest and latest day across the
// given bands.
func (o *Object) Duration(bands ...string) (float64, error) {
	bands, err := o.resolveBands(bands)
	if err != nil {
		return 0, err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bands {
		c := o.curves[b]
		if first, ok := c.FirstDay(); ok {
			last, _ := c.LastDay()
			lo, hi = math.Min(lo, first), math.Max(hi, last)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, ErrEmptyCurve
	}
	return hi - lo, nil
}

// AnySynthetic reports whether any band is synthetic.
func (o *Object) AnySynthetic() bool {
	return slices.ContainsFunc(o.bands, func(b string) bool { return o.curves[b].IsSynthetic() })
}

// AllSynthetic reports whether every band is synthetic.
func (o *Object) AllSynthetic() bool { return !o.AnyReal() }

func (o *Object) AnyReal() bool {
	return slices.ContainsFunc(o.bands, func(b string) bool { return !o.curves[b].IsSynthetic() })
}

func (o *Object) AllReal() bool { return !o.AnySynthetic() }

// AnyBandAtLeast reports whether some band has at least n points.
func (o *Object) AnyBandAtLeast(n int) bool {
	return slices.ContainsFunc(o.bands, func(b string) bool { return o.curves[b].Len() >= n })
}

// CleanSmallCadence cleans every band. Either all bands are updated or,
// on error, none are.
func (o *Object) CleanSmallCadence(dt float64, mode CadenceMode) error {
	type series struct{ days, obs, obse []float64 }
	cleaned := make([]series, len(o.bands))
	for i, b := range o.bands {
		d, ob, oe, err := o.curves[b].cleanedSeries(dt, mode)
		if err != nil {
			return fmt.Errorf("band %q: %w", b, err)
		}
		if err := validateSeries(d, ob, oe); err != nil {
			return fmt.Errorf("band %q: %w", b, err)
		}
		cleaned[i] = series{d, ob, oe}
	}
	for i, b := range o.bands {
		s := cleaned[i]
		if err := o.curves[b].ReplaceSeries(s.days, s.obs, s.obse); err != nil {
			return fmt.Errorf("band %q: %w", b, err)
		}
	}
	return nil
}

// SNR is the largest per-band SNR, or -Inf without bands.
func (o *Object) SNR() float64 {
	snr := math.Inf(-1)
	for _, c := range o.curves {
		snr = math.Max(snr, c.SNR())
	}
	return snr
}

// ComputeDerived computes f on every band.
func (o *Object) ComputeDerived(f Field) error {
	for _, b := range o.bands {
		if err := o.curves[b].ComputeDerived(f); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a deep copy sharing no arrays with o.
func (o *Object) Copy() *Object {
	out := o.CopyMetadata()
	for _, b := range o.bands {
		out.bands = append(out.bands, b)
		out.curves[b] = o.curves[b].Copy()
	}
	return out
}

// CopyMetadata returns an object with the same metadata and no bands.
func (o *Object) CopyMetadata() *Object { return NewObject(o.meta) }

func (o *Object) String() string {
	var sb strings.Builder
	for _, b := range o.bands {
		c := o.curves[b]
		fmt.Fprintf(&sb, "(%s:%d) - %s\n", b, c.Len(), c)
	}
	return sb.String()
}

func cloneMetadata(m Metadata) Metadata {
	m.Y = cloneInt(m.Y)
	m.RA = cloneFloat(m.RA)
	m.Dec = cloneFloat(m.Dec)
	m.Redshift = cloneFloat(m.Redshift)
	return m
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
