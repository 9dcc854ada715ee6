// Package lcstore persists light-curve datasets in sqlite.
//
// Every per-point array of a curve (days, obs, obse, computed delta fields
// and extras) is stored as a little-endian float64 blob, so a save/load
// round trip reproduces the arrays bit for bit.
package lcstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
)

// ErrCorrupt reports stored rows that do not form a valid curve.
var ErrCorrupt = errors.New("corrupt light-curve record")

// Store wraps a sqlite database holding labeled sets.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for ad-hoc queries.
func (s *Store) DB() *sqlx.DB { return s.db }

type setRow struct {
	Name       string `db:"set_name"`
	Survey     string `db:"survey"`
	ClassNames string `db:"class_names"`
	BandNames  string `db:"band_names"`
	Position   int    `db:"position"`
}

type objectRow struct {
	SetName        string          `db:"set_name"`
	ObjectName     string          `db:"object_name"`
	Position       int             `db:"position"`
	IsFlux         bool            `db:"is_flux"`
	Y              sql.NullInt64   `db:"y"`
	GlobalFirstDay float64         `db:"global_first_day"`
	RA             sql.NullFloat64 `db:"ra"`
	Dec            sql.NullFloat64 `db:"dec"`
	Redshift       sql.NullFloat64 `db:"redshift"`
}

type bandRow struct {
	SetName       string `db:"set_name"`
	ObjectName    string `db:"object_name"`
	Band          string `db:"band"`
	Position      int    `db:"position"`
	SyntheticMode string `db:"synthetic_mode"`
	NPoints       int    `db:"n_points"`
}

type arrayRow struct {
	SetName    string `db:"set_name"`
	ObjectName string `db:"object_name"`
	Band       string `db:"band"`
	Field      string `db:"field"`
	Kind       string `db:"kind"`
	Position   int    `db:"position"`
	Data       []byte `db:"data"`
}

const (
	kindRequired = "required"
	kindDerived  = "derived"
	kindExtra    = "extra"
)

// SaveSet writes set, replacing any stored set of the same name.
func (s *Store) SaveSet(ctx context.Context, set *lcset.LabeledSet) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var position int
	err = tx.GetContext(ctx, &position, `SELECT position FROM lc_sets WHERE set_name = ?`, set.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.GetContext(ctx, &position, `SELECT COALESCE(MAX(position) + 1, 0) FROM lc_sets`); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	if err := deleteSet(ctx, tx, set.Name); err != nil {
		return err
	}
	if err := insertSet(ctx, tx, set, position); err != nil {
		return fmt.Errorf("save set %q: %w", set.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	monitoring.Logf("lcstore: saved set %q (%d objects)", set.Name, set.Len())
	return nil
}

func insertSet(ctx context.Context, tx *sqlx.Tx, set *lcset.LabeledSet, position int) error {
	classes, err := json.Marshal(nonNil(set.ClassNames))
	if err != nil {
		return err
	}
	bands, err := json.Marshal(nonNil(set.BandNames))
	if err != nil {
		return err
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO lc_sets (set_name, survey, class_names, band_names, position)
		VALUES (:set_name, :survey, :class_names, :band_names, :position)`,
		setRow{Name: set.Name, Survey: set.Survey, ClassNames: string(classes), BandNames: string(bands), Position: position})
	if err != nil {
		return err
	}

	for i, name := range set.ObjectNames() {
		obj, _ := set.Get(name)
		if err := insertObject(ctx, tx, set.Name, name, i, obj); err != nil {
			return fmt.Errorf("object %q: %w", name, err)
		}
	}
	return nil
}

func insertObject(ctx context.Context, tx *sqlx.Tx, setName, name string, position int, obj *lightcurve.Object) error {
	meta := obj.Metadata()
	row := objectRow{
		SetName:        setName,
		ObjectName:     name,
		Position:       position,
		IsFlux:         meta.IsFlux,
		GlobalFirstDay: meta.GlobalFirstDay,
		RA:             nullFloat(meta.RA),
		Dec:            nullFloat(meta.Dec),
		Redshift:       nullFloat(meta.Redshift),
	}
	if meta.Y != nil {
		row.Y = sql.NullInt64{Int64: int64(*meta.Y), Valid: true}
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO lc_objects
		(set_name, object_name, position, is_flux, y, global_first_day, ra, dec, redshift)
		VALUES (:set_name, :object_name, :position, :is_flux, :y, :global_first_day, :ra, :dec, :redshift)`, row)
	if err != nil {
		return err
	}

	for bi, band := range obj.Bands() {
		c, _ := obj.Band(band)
		_, err := tx.NamedExecContext(ctx, `INSERT INTO lc_bands
			(set_name, object_name, band, position, synthetic_mode, n_points)
			VALUES (:set_name, :object_name, :band, :position, :synthetic_mode, :n_points)`,
			bandRow{SetName: setName, ObjectName: name, Band: band, Position: bi,
				SyntheticMode: string(c.SyntheticMode()), NPoints: c.Len()})
		if err != nil {
			return err
		}
		for fi, f := range c.Fields() {
			values, ok := c.Field(f)
			if !ok {
				continue
			}
			_, err := tx.NamedExecContext(ctx, `INSERT INTO lc_arrays
				(set_name, object_name, band, field, kind, position, data)
				VALUES (:set_name, :object_name, :band, :field, :kind, :position, :data)`,
				arrayRow{SetName: setName, ObjectName: name, Band: band, Field: string(f),
					Kind: fieldKind(f), Position: fi, Data: encodeFloats(values)})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldKind(f lightcurve.Field) string {
	switch {
	case f.IsRequired():
		return kindRequired
	case f.IsDerived():
		return kindDerived
	}
	return kindExtra
}

// deleteSet removes a set and its children explicitly, without relying on
// foreign key enforcement being enabled on the connection.
func deleteSet(ctx context.Context, tx *sqlx.Tx, name string) error {
	for _, table := range []string{"lc_arrays", "lc_bands", "lc_objects", "lc_sets"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE set_name = ?`, name); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

// DeleteSet removes a stored set. Deleting a missing set is not an error.
func (s *Store) DeleteSet(ctx context.Context, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := deleteSet(ctx, tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadSet reads the set stored under name.
func (s *Store) LoadSet(ctx context.Context, name string) (*lcset.LabeledSet, error) {
	var sr setRow
	err := s.db.GetContext(ctx, &sr, `SELECT set_name, survey, class_names, band_names, position
		FROM lc_sets WHERE set_name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", lcset.ErrSetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	var classes, bands []string
	if err := json.Unmarshal([]byte(sr.ClassNames), &classes); err != nil {
		return nil, fmt.Errorf("%w: set %q class names: %v", ErrCorrupt, name, err)
	}
	if err := json.Unmarshal([]byte(sr.BandNames), &bands); err != nil {
		return nil, fmt.Errorf("%w: set %q band names: %v", ErrCorrupt, name, err)
	}
	set := lcset.NewLabeledSet(sr.Name, sr.Survey, classes, bands)

	var objects []objectRow
	if err := s.db.SelectContext(ctx, &objects, `SELECT set_name, object_name, position, is_flux, y,
		global_first_day, ra, dec, redshift FROM lc_objects WHERE set_name = ? ORDER BY position`, name); err != nil {
		return nil, err
	}
	var bandRows []bandRow
	if err := s.db.SelectContext(ctx, &bandRows, `SELECT set_name, object_name, band, position, synthetic_mode, n_points
		FROM lc_bands WHERE set_name = ? ORDER BY object_name, position`, name); err != nil {
		return nil, err
	}
	var arrays []arrayRow
	if err := s.db.SelectContext(ctx, &arrays, `SELECT set_name, object_name, band, field, kind, position, data
		FROM lc_arrays WHERE set_name = ? ORDER BY object_name, band, position`, name); err != nil {
		return nil, err
	}

	bandsByObject := make(map[string][]bandRow)
	for _, b := range bandRows {
		bandsByObject[b.ObjectName] = append(bandsByObject[b.ObjectName], b)
	}
	type bandKey struct{ object, band string }
	arraysByBand := make(map[bandKey][]arrayRow)
	for _, a := range arrays {
		k := bandKey{a.ObjectName, a.Band}
		arraysByBand[k] = append(arraysByBand[k], a)
	}

	for _, or := range objects {
		meta := lightcurve.Metadata{
			IsFlux:         or.IsFlux,
			GlobalFirstDay: or.GlobalFirstDay,
			RA:             floatPtr(or.RA),
			Dec:            floatPtr(or.Dec),
			Redshift:       floatPtr(or.Redshift),
		}
		if or.Y.Valid {
			y := int(or.Y.Int64)
			meta.Y = &y
		}
		obj := lightcurve.NewObject(meta)
		for _, br := range bandsByObject[or.ObjectName] {
			c, err := buildCurve(br, arraysByBand[bandKey{or.ObjectName, br.Band}])
			if err != nil {
				return nil, fmt.Errorf("set %q object %q band %q: %w", name, or.ObjectName, br.Band, err)
			}
			if err := obj.AttachCurve(br.Band, c); err != nil {
				return nil, err
			}
		}
		if err := set.Add(or.ObjectName, obj); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func buildCurve(br bandRow, arrays []arrayRow) (*lightcurve.Curve, error) {
	values := make(map[string][]float64, len(arrays))
	for _, a := range arrays {
		v, err := decodeFloats(a.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrCorrupt, a.Field, err)
		}
		if len(v) != br.NPoints {
			return nil, fmt.Errorf("%w: field %q has %d values, band has %d points", ErrCorrupt, a.Field, len(v), br.NPoints)
		}
		values[a.Field] = v
	}
	for _, f := range lightcurve.RequiredFields {
		if _, ok := values[string(f)]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrCorrupt, f)
		}
	}
	c, err := lightcurve.NewCurve(values[string(lightcurve.FieldDays)], values[string(lightcurve.FieldObs)],
		values[string(lightcurve.FieldObse)], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	c.SetSyntheticMode(lightcurve.SyntheticMode(br.SyntheticMode))
	for _, a := range arrays {
		switch a.Kind {
		case kindDerived:
			err = c.RestoreDerived(lightcurve.Field(a.Field), values[a.Field])
		case kindExtra:
			err = c.SetExtra(a.Field, values[a.Field])
		}
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrCorrupt, a.Field, err)
		}
	}
	return c, nil
}

// SaveDataset saves every set of d.
func (s *Store) SaveDataset(ctx context.Context, d *lcset.Dataset) error {
	for _, name := range d.SetNames() {
		set, err := d.Set(name)
		if err != nil {
			return err
		}
		if err := s.SaveSet(ctx, set); err != nil {
			return err
		}
	}
	return nil
}

// LoadDataset loads every stored set in save order.
func (s *Store) LoadDataset(ctx context.Context) (*lcset.Dataset, error) {
	names, err := s.SetNames(ctx)
	if err != nil {
		return nil, err
	}
	d := lcset.NewDataset()
	for _, name := range names {
		set, err := s.LoadSet(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := d.AddSet(set); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SetNames lists stored set names in save order.
func (s *Store) SetNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `SELECT set_name FROM lc_sets ORDER BY position`)
	return names, err
}

// SetSummary describes one stored set.
type SetSummary struct {
	Name    string `db:"set_name" json:"name"`
	Survey  string `db:"survey" json:"survey"`
	Objects int    `db:"objects" json:"objects"`
	Points  int    `db:"points" json:"points"`
}

// Summaries counts objects and points for every stored set.
func (s *Store) Summaries(ctx context.Context) ([]SetSummary, error) {
	var out []SetSummary
	err := s.db.SelectContext(ctx, &out, `SELECT s.set_name, s.survey,
			(SELECT COUNT(*) FROM lc_objects o WHERE o.set_name = s.set_name) AS objects,
			(SELECT COALESCE(SUM(n_points), 0) FROM lc_bands b WHERE b.set_name = s.set_name) AS points
		FROM lc_sets s ORDER BY s.position`)
	return out, err
}

// AugmentRun records one execution of the augmentation pipeline.
type AugmentRun struct {
	RunID          string    `db:"run_id" json:"run_id"`
	SourceSet      string    `db:"source_set" json:"source_set"`
	OutputSet      string    `db:"output_set" json:"output_set"`
	Seed           int64     `db:"seed" json:"seed"`
	ConfigJSON     string    `db:"config_json" json:"config"`
	ObjectsIn      int       `db:"objects_in" json:"objects_in"`
	ObjectsOut     int       `db:"objects_out" json:"objects_out"`
	ObjectsSkipped int       `db:"objects_skipped" json:"objects_skipped"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	FinishedAt     time.Time `db:"finished_at" json:"finished_at"`
}

// RecordAugmentRun stores run.
func (s *Store) RecordAugmentRun(ctx context.Context, run AugmentRun) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO augment_runs
		(run_id, source_set, output_set, seed, config_json, objects_in, objects_out, objects_skipped, started_at, finished_at)
		VALUES (:run_id, :source_set, :output_set, :seed, :config_json, :objects_in, :objects_out, :objects_skipped, :started_at, :finished_at)`,
		run)
	return err
}

// AugmentRuns lists the runs that read sourceSet, newest first. An empty
// sourceSet lists every run.
func (s *Store) AugmentRuns(ctx context.Context, sourceSet string) ([]AugmentRun, error) {
	var out []AugmentRun
	q := `SELECT run_id, source_set, output_set, seed, config_json, objects_in, objects_out,
		objects_skipped, started_at, finished_at FROM augment_runs`
	var args []interface{}
	if sourceSet != "" {
		q += ` WHERE source_set = ?`
		args = append(args, sourceSet)
	}
	q += ` ORDER BY started_at DESC`
	err := s.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	x := v.Float64
	return &x
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
