// Package augment builds synthetic training objects from a labeled set by
// applying the light-curve perturbations in a fixed order.
package augment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lightcurve.report/internal/config"
	"github.com/banshee-data/lightcurve.report/internal/lcset"
	"github.com/banshee-data/lightcurve.report/internal/lcstore"
	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
	"github.com/banshee-data/lightcurve.report/internal/metrics"
	"github.com/banshee-data/lightcurve.report/internal/monitoring"
	"github.com/banshee-data/lightcurve.report/internal/synthetic"
	"github.com/banshee-data/lightcurve.report/internal/timeutil"
)

// Object outcomes reported to metrics.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
)

var ErrEmptySet = errors.New("augment: source set has no objects")

// syntheticNamespace seeds the name-based UUIDs of synthetic objects.
var syntheticNamespace = uuid.MustParse("6f1c2a4e-3b9d-5e21-9a7f-0c4d8e5b1a36")

// Augmenter generates synthetic copies of every object in a set. Config
// may be nil to use defaults; Metrics may be nil.
type Augmenter struct {
	Config  *config.AugmentConfig
	Metrics *metrics.Collector

	// KeepOriginals adds a copy of each source object to the output set
	// ahead of its synthetic siblings.
	KeepOriginals bool

	// Clock stamps the run; nil uses the wall clock.
	Clock timeutil.Clock
}

// RunSummary describes one Run.
type RunSummary struct {
	RunID      string
	SourceSet  string
	OutputSet  string
	Seed       uint64
	ObjectsIn  int
	ObjectsOut int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Record converts the summary into the row stored by lcstore.
func (s RunSummary) Record(configJSON string) lcstore.AugmentRun {
	return lcstore.AugmentRun{
		RunID:          s.RunID,
		SourceSet:      s.SourceSet,
		OutputSet:      s.OutputSet,
		Seed:           int64(s.Seed),
		ConfigJSON:     configJSON,
		ObjectsIn:      s.ObjectsIn,
		ObjectsOut:     s.ObjectsOut,
		ObjectsSkipped: s.Skipped,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
	}
}

type named struct {
	name string
	obj  *lightcurve.Object
}

// Run augments every object of set into a new set called outName. Objects
// are processed concurrently, but each one draws from its own generator
// seeded by the run seed and its position in set, so the output does not
// depend on scheduling. A copy whose perturbation fails is skipped and
// counted; fitting and context errors abort the run.
func (a *Augmenter) Run(ctx context.Context, set *lcset.LabeledSet, outName string) (*lcset.LabeledSet, RunSummary, error) {
	cfg := a.Config
	if cfg == nil {
		cfg = config.EmptyAugmentConfig()
	}
	clock := a.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	summary := RunSummary{
		RunID:     uuid.NewString(),
		SourceSet: set.Name,
		OutputSet: outName,
		Seed:      cfg.GetSeed(),
		ObjectsIn: set.Len(),
		StartedAt: clock.Now(),
	}
	if set.Len() == 0 {
		return nil, summary, ErrEmptySet
	}

	samplers, err := a.fitSamplers(set, cfg)
	if err != nil {
		return nil, summary, err
	}

	names := set.ObjectNames()
	results := make([][]named, len(names))
	skipped := make([]int, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.GetWorkers())
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			obj, _ := set.Get(name)
			rng := rand.New(rand.NewPCG(cfg.GetSeed(), uint64(i)))
			if a.KeepOriginals {
				results[i] = append(results[i], named{name, obj.Copy()})
			}
			for k := range cfg.GetCopiesPerObject() {
				start := clock.Now()
				synth, err := augmentObject(rng, obj, cfg, samplers)
				if err != nil {
					monitoring.Logf("augment %s copy %d: %v", name, k, err)
					skipped[i]++
					a.Metrics.RecordAugmentObject(OutcomeSkipped, clock.Since(start))
					continue
				}
				a.Metrics.RecordAugmentObject(OutcomeOK, clock.Since(start))
				results[i] = append(results[i], named{SyntheticName(name, cfg.GetSeed(), k), synth})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, summary, fmt.Errorf("augment %q: %w", set.Name, err)
	}

	out := lcset.NewLabeledSet(outName, set.Survey, set.ClassNames, set.BandNames)
	for i := range results {
		summary.Skipped += skipped[i]
		for _, r := range results[i] {
			if err := out.Add(r.name, r.obj); err != nil {
				return nil, summary, err
			}
		}
	}
	summary.ObjectsOut = out.Len()
	summary.FinishedAt = clock.Now()
	a.Metrics.RecordAugmentRun(summary.FinishedAt.Sub(summary.StartedAt))
	monitoring.Logf("augment %q -> %q: %d objects in, %d out, %d copies skipped",
		set.Name, outName, summary.ObjectsIn, summary.ObjectsOut, summary.Skipped)
	return out, summary, nil
}

// SyntheticName is the deterministic name of copy k of object name.
func SyntheticName(name string, seed uint64, k int) string {
	id := uuid.NewSHA1(syntheticNamespace, fmt.Appendf(nil, "%s/%d/%d", name, seed, k))
	return fmt.Sprintf("%s.synth-%s", name, id.String()[:8])
}

// augmentObject returns a perturbed deep copy of obj with every band
// tagged as augmented.
func augmentObject(rng *rand.Rand, obj *lightcurve.Object, cfg *config.AugmentConfig, s samplerSet) (*lightcurve.Object, error) {
	out := obj.Copy()
	minLen := cfg.GetMinValidLength()
	maxDuration, clip := cfg.GetMaxDuration()

	for _, band := range out.Bands() {
		c, _ := out.Band(band)
		if c.Len() == 0 {
			c.SetSyntheticMode(lightcurve.SyntheticAugmented)
			continue
		}
		if ls := s.length[band]; ls != nil {
			lengths, err := ls.Sample(rng, 1)
			if err != nil {
				return nil, fmt.Errorf("band %s: %w", band, err)
			}
			k := max(lengths[0], minLen)
			if _, err := c.DownsampleToLength(rng, k, false); err != nil {
				return nil, fmt.Errorf("band %s: %w", band, err)
			}
		}
		if es := s.obse[band]; es != nil {
			obse, err := es.Sample(rng, c.Obs())
			if err != nil {
				return nil, fmt.Errorf("band %s: %w", band, err)
			}
			if err := c.ReplaceSeries(c.Days(), c.Obs(), obse); err != nil {
				return nil, fmt.Errorf("band %s: %w", band, err)
			}
		}
		if err := c.AddUniformDayJitter(rng, cfg.GetHoursNoise(), false); err != nil {
			return nil, fmt.Errorf("band %s: %w", band, err)
		}
		if err := c.AddGaussianObsNoise(rng, cfg.GetObsMinLimit(), cfg.GetObsStdScale(), lightcurve.NoiseNormal, false); err != nil {
			return nil, fmt.Errorf("band %s: %w", band, err)
		}
		if _, err := c.DownsampleRandom(rng, cfg.GetDropProb(), cfg.GetApplyProb(), minLen, false); err != nil {
			return nil, fmt.Errorf("band %s: %w", band, err)
		}
		if _, err := c.DownsampleWindowFrom(rng, cfg.GetWindowModes(), minLen, false); err != nil {
			return nil, fmt.Errorf("band %s: %w", band, err)
		}
		if clip {
			c.ClipToMaxDuration(maxDuration)
		}
		c.SetSyntheticMode(lightcurve.SyntheticAugmented)
	}
	return out, nil
}

type samplerSet struct {
	obse   map[string]*synthetic.ObsErrorSampler
	length map[string]*synthetic.CurveLengthSampler
}

// fitSamplers fits the enabled samplers on every band of set. A band whose
// data cannot support a fit keeps its original errors or lengths.
func (a *Augmenter) fitSamplers(set *lcset.LabeledSet, cfg *config.AugmentConfig) (samplerSet, error) {
	s := samplerSet{
		obse:   make(map[string]*synthetic.ObsErrorSampler),
		length: make(map[string]*synthetic.CurveLengthSampler),
	}
	for _, band := range set.BandNames {
		if cfg.GetResampleErrors() {
			es, err := synthetic.NewObsErrorSampler(set, band, cfg.GetRankRanges())
			a.Metrics.RecordSamplerFit("obse", err)
			switch {
			case err == nil:
				s.obse[band] = es
			case errors.Is(err, synthetic.ErrDegenerateFit), errors.Is(err, synthetic.ErrNoObservations):
				monitoring.Logf("augment: obse sampler for band %s not fitted: %v", band, err)
			default:
				return s, fmt.Errorf("obse sampler band %s: %w", band, err)
			}
		}
		if cfg.GetResampleLengths() {
			ls, err := synthetic.NewCurveLengthSampler(set, band, cfg.GetLengthOffset())
			a.Metrics.RecordSamplerFit("length", err)
			switch {
			case err == nil:
				s.length[band] = ls
			case errors.Is(err, synthetic.ErrDegenerateFit), errors.Is(err, synthetic.ErrNoObservations):
				monitoring.Logf("augment: length sampler for band %s not fitted: %v", band, err)
			default:
				return s, fmt.Errorf("length sampler band %s: %w", band, err)
			}
		}
	}
	return s, nil
}
