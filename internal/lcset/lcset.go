// Package lcset groups light-curve objects into labeled sets and datasets.
package lcset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
)

var (
	ErrObjectExists = errors.New("object already in set")
	ErrSetNotFound  = errors.New("labeled set not found")
	ErrSetExists    = errors.New("labeled set already in dataset")
)

// LabeledSet is a named collection of objects sharing class and band
// definitions. Object names are unique within a set and iteration follows
// insertion order.
type LabeledSet struct {
	Name       string
	Survey     string
	ClassNames []string
	BandNames  []string

	names   []string
	objects map[string]*lightcurve.Object
}

// NewLabeledSet returns an empty set.
func NewLabeledSet(name, survey string, classNames, bandNames []string) *LabeledSet {
	return &LabeledSet{
		Name:       name,
		Survey:     survey,
		ClassNames: slices.Clone(classNames),
		BandNames:  slices.Clone(bandNames),
		objects:    make(map[string]*lightcurve.Object),
	}
}

// Add inserts obj under name.
func (s *LabeledSet) Add(name string, obj *lightcurve.Object) error {
	if name == "" || obj == nil {
		return fmt.Errorf("lcset %q: empty object name or nil object", s.Name)
	}
	if _, ok := s.objects[name]; ok {
		return fmt.Errorf("%w: %q in %q", ErrObjectExists, name, s.Name)
	}
	if s.objects == nil {
		s.objects = make(map[string]*lightcurve.Object)
	}
	s.names = append(s.names, name)
	s.objects[name] = obj
	return nil
}

func (s *LabeledSet) Get(name string) (*lightcurve.Object, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Objects returns the objects in insertion order.
func (s *LabeledSet) Objects() []*lightcurve.Object {
	out := make([]*lightcurve.Object, len(s.names))
	for i, n := range s.names {
		out[i] = s.objects[n]
	}
	return out
}

func (s *LabeledSet) ObjectNames() []string { return slices.Clone(s.names) }

func (s *LabeledSet) Len() int { return len(s.names) }

// ClassName maps a label to its class name. Unlabelled or out-of-range
// labels report false.
func (s *LabeledSet) ClassName(y *int) (string, bool) {
	if y == nil || *y < 0 || *y >= len(s.ClassNames) {
		return "", false
	}
	return s.ClassNames[*y], true
}

// ClassCounts counts objects per class name; unlabelled objects are
// counted under "".
func (s *LabeledSet) ClassCounts() map[string]int {
	out := make(map[string]int)
	for _, o := range s.objects {
		name, _ := s.ClassName(o.Y())
		out[name]++
	}
	return out
}

// Dataset maps set names to labeled sets, e.g. raw, train and test splits.
type Dataset struct {
	names []string
	sets  map[string]*LabeledSet
}

func NewDataset() *Dataset {
	return &Dataset{sets: make(map[string]*LabeledSet)}
}

// AddSet registers s under s.Name.
func (d *Dataset) AddSet(s *LabeledSet) error {
	if _, ok := d.sets[s.Name]; ok {
		return fmt.Errorf("%w: %q", ErrSetExists, s.Name)
	}
	d.names = append(d.names, s.Name)
	d.sets[s.Name] = s
	return nil
}

// Set returns the set registered under name.
func (d *Dataset) Set(name string) (*LabeledSet, error) {
	s, ok := d.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSetNotFound, name)
	}
	return s, nil
}

func (d *Dataset) SetNames() []string { return slices.Clone(d.names) }
