// Package ingest reads raw photometry and labels from CSV and assembles
// them into a labeled set.
package ingest

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/metrics"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
)

var ErrNoRows = errors.New("ingest: no photometry rows")

// PhotometryRow is one observation: object,band,day,obs,obse.
type PhotometryRow struct {
	Object string  `csv:"object"`
	Band   string  `csv:"band"`
	Day    float64 `csv:"day"`
	Obs    float64 `csv:"obs"`
	Obse   float64 `csv:"obse"`
}

// LabelRow carries an object's class and optional sky position and
// redshift. Empty numeric cells mean unknown.
type LabelRow struct {
	Object   string `csv:"object"`
	Class    string `csv:"class"`
	RA       string `csv:"ra"`
	Dec      string `csv:"dec"`
	Redshift string `csv:"z"`
}

// ReadPhotometry decodes a photometry CSV with a header row.
func ReadPhotometry(r io.Reader) ([]PhotometryRow, error) {
	var rows []PhotometryRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read photometry: %w", err)
	}
	return rows, nil
}

// ReadLabels decodes a label CSV with a header row.
func ReadLabels(r io.Reader) ([]LabelRow, error) {
	var rows []LabelRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return rows, nil
}

// Options controls BuildSet.
type Options struct {
	Name   string
	Survey string
	IsFlux bool

	// Bands restricts and orders the bands kept. Empty keeps every band
	// seen, sorted by name.
	Bands []string
	// ClassNames fixes the label order. Empty uses the classes seen,
	// sorted by name.
	ClassNames []string

	// MinPoints drops bands with fewer points after cleaning.
	MinPoints int

	// CadenceDT > 0 merges observations closer than CadenceDT days.
	CadenceDT   float64
	CadenceMode lightcurve.CadenceMode

	// NormalizeDays shifts every object so its first day is zero and
	// stores the offset as GlobalFirstDay.
	NormalizeDays bool

	Metrics *metrics.Collector
}

// Report counts what BuildSet kept and discarded.
type Report struct {
	Rows             int
	RowsInvalid      int
	RowsDuplicate    int
	RowsOtherBand    int
	Objects          int
	ObjectsUnlabeled int
	ObjectsEmpty     int
	BandsDropped     int
}

func (r Report) String() string {
	return fmt.Sprintf("%d rows (%d invalid, %d duplicate days, %d other bands), %d objects (%d unlabeled, %d empty), %d bands dropped",
		r.Rows, r.RowsInvalid, r.RowsDuplicate, r.RowsOtherBand, r.Objects, r.ObjectsUnlabeled, r.ObjectsEmpty, r.BandsDropped)
}

type point struct{ day, obs, obse float64 }

// BuildSet groups rows by object and band, sorts each band by day and
// builds one Object per object name in first-appearance order. Rows that
// would break the curve invariants are discarded and counted; when two
// rows share a day the first one wins.
func BuildSet(rows []PhotometryRow, labels []LabelRow, opts Options) (*lcset.LabeledSet, Report, error) {
	var rep Report
	if len(rows) == 0 {
		return nil, rep, ErrNoRows
	}
	rep.Rows = len(rows)

	allowed := make(map[string]bool, len(opts.Bands))
	for _, b := range opts.Bands {
		allowed[b] = true
	}

	var order []string
	grouped := make(map[string]map[string][]point)
	seenBands := make(map[string]bool)
	for _, r := range rows {
		obj, band := strings.TrimSpace(r.Object), strings.TrimSpace(r.Band)
		if obj == "" || band == "" || !validPoint(r) {
			rep.RowsInvalid++
			continue
		}
		if len(allowed) > 0 && !allowed[band] {
			rep.RowsOtherBand++
			continue
		}
		if grouped[obj] == nil {
			grouped[obj] = make(map[string][]point)
			order = append(order, obj)
		}
		grouped[obj][band] = append(grouped[obj][band], point{r.Day, r.Obs, r.Obse})
		seenBands[band] = true
	}

	bands := slices.Clone(opts.Bands)
	if len(bands) == 0 {
		for b := range seenBands {
			bands = append(bands, b)
		}
		slices.Sort(bands)
	}

	byObject := make(map[string]LabelRow, len(labels))
	classNames := slices.Clone(opts.ClassNames)
	if len(classNames) == 0 {
		seen := make(map[string]bool)
		for _, l := range labels {
			if l.Class != "" && !seen[l.Class] {
				seen[l.Class] = true
				classNames = append(classNames, l.Class)
			}
		}
		slices.Sort(classNames)
	}
	for _, l := range labels {
		byObject[strings.TrimSpace(l.Object)] = l
	}

	set := lcset.NewLabeledSet(opts.Name, opts.Survey, classNames, bands)
	for _, name := range order {
		meta, labeled, err := metadataFor(byObject, name, classNames, opts.IsFlux)
		if err != nil {
			return nil, rep, err
		}
		obj := lightcurve.NewObject(meta)
		for _, b := range bands {
			pts, ok := grouped[name][b]
			if !ok {
				continue
			}
			days, obs, obse, dup := sortedSeries(pts)
			rep.RowsDuplicate += dup
			if err := obj.AttachBand(b, days, obs, obse); err != nil {
				return nil, rep, fmt.Errorf("object %q band %q: %w", name, b, err)
			}
		}
		if opts.CadenceDT > 0 {
			mode := cmp.Or(opts.CadenceMode, lightcurve.CadenceExpectation)
			if err := obj.CleanSmallCadence(opts.CadenceDT, mode); err != nil {
				return nil, rep, fmt.Errorf("object %q: %w", name, err)
			}
		}
		obj, dropped := keepLongBands(obj, opts.MinPoints)
		rep.BandsDropped += dropped
		if len(obj.Bands()) == 0 {
			rep.ObjectsEmpty++
			monitoring.Debugf("ingest: %s has no band with %d points", name, opts.MinPoints)
			continue
		}
		if opts.NormalizeDays {
			obj.NormalizeDayOffset(true)
		}
		if !labeled {
			rep.ObjectsUnlabeled++
		}
		if err := set.Add(name, obj); err != nil {
			return nil, rep, err
		}
	}
	rep.Objects = set.Len()

	kept := rep.Rows - rep.RowsInvalid - rep.RowsOtherBand - rep.RowsDuplicate
	opts.Metrics.RecordIngestRows("ok", kept)
	opts.Metrics.RecordIngestRows("invalid", rep.RowsInvalid)
	opts.Metrics.RecordIngestRows("duplicate", rep.RowsDuplicate)
	opts.Metrics.RecordIngestRows("other_band", rep.RowsOtherBand)
	opts.Metrics.RecordIngestObjects(rep.Objects)
	monitoring.Logf("ingest %q: %s", opts.Name, rep)
	return set, rep, nil
}

func validPoint(r PhotometryRow) bool {
	for _, v := range []float64{r.Day, r.Obs, r.Obse} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Obs >= 0 && r.Obse > 0
}

// sortedSeries orders pts by day and drops later points on an equal day.
func sortedSeries(pts []point) (days, obs, obse []float64, dup int) {
	slices.SortStableFunc(pts, func(a, b point) int { return cmp.Compare(a.day, b.day) })
	for i, p := range pts {
		if i > 0 && p.day == pts[i-1].day {
			dup++
			continue
		}
		days = append(days, p.day)
		obs = append(obs, p.obs)
		obse = append(obse, p.obse)
	}
	return days, obs, obse, dup
}

// keepLongBands rebuilds obj without the bands shorter than minPoints.
func keepLongBands(obj *lightcurve.Object, minPoints int) (*lightcurve.Object, int) {
	if minPoints <= 0 {
		return obj, 0
	}
	out := obj.CopyMetadata()
	dropped := 0
	for _, b := range obj.Bands() {
		c, _ := obj.Band(b)
		if c.Len() < minPoints {
			dropped++
			continue
		}
		// Bands are unique in obj, so attaching cannot fail.
		_ = out.AttachCurve(b, c)
	}
	return out, dropped
}

func metadataFor(labels map[string]LabelRow, name string, classNames []string, isFlux bool) (lightcurve.Metadata, bool, error) {
	meta := lightcurve.Metadata{IsFlux: isFlux}
	l, ok := labels[name]
	if !ok {
		return meta, false, nil
	}
	var err error
	if meta.RA, err = optionalFloat(l.RA); err != nil {
		return meta, false, fmt.Errorf("object %q ra: %w", name, err)
	}
	if meta.Dec, err = optionalFloat(l.Dec); err != nil {
		return meta, false, fmt.Errorf("object %q dec: %w", name, err)
	}
	if meta.Redshift, err = optionalFloat(l.Redshift); err != nil {
		return meta, false, fmt.Errorf("object %q z: %w", name, err)
	}
	if l.Class == "" {
		return meta, false, nil
	}
	y := slices.Index(classNames, l.Class)
	if y < 0 {
		return meta, false, fmt.Errorf("object %q: class %q not in %v", name, l.Class, classNames)
	}
	meta.Y = &y
	return meta, true, nil
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
