package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lightcurve.report/internal/lightcurve"
)

// DefaultConfigPath is the path to the canonical augmentation defaults file.
const DefaultConfigPath = "config/augment.defaults.json"

// AugmentConfig holds the parameters of the synthetic augmentation
// pipeline. Every field is optional; the Get* methods supply defaults.
type AugmentConfig struct {
	// Day jitter, in hours either side
	HoursNoise *float64 `json:"hours_noise,omitempty"`

	// Gaussian observation noise
	ObsStdScale *float64 `json:"obs_std_scale,omitempty"`
	ObsMinLimit *float64 `json:"obs_min_limit,omitempty"`

	// Random downsampling
	DropProb       *float64 `json:"drop_prob,omitempty"`
	ApplyProb      *float64 `json:"apply_prob,omitempty"`
	MinValidLength *int     `json:"min_valid_length,omitempty"`

	// Window downsampling: mode name to probability
	WindowModes map[string]float64 `json:"window_modes,omitempty"`

	// Cadence cleaning applied on import
	CadenceDT   *float64 `json:"cadence_dt,omitempty"` // days
	CadenceMode *string  `json:"cadence_mode,omitempty"`

	// Distribution samplers
	ResampleErrors  *bool    `json:"resample_errors,omitempty"`
	ResampleLengths *bool    `json:"resample_lengths,omitempty"`
	RankRanges      *int     `json:"rank_ranges,omitempty"`
	LengthOffset    *float64 `json:"length_offset,omitempty"`

	// Pipeline
	CopiesPerObject *int     `json:"copies_per_object,omitempty"`
	Workers         *int     `json:"workers,omitempty"`
	Seed            *uint64  `json:"seed,omitempty"`
	MaxDuration     *float64 `json:"max_duration,omitempty"` // days; unset keeps everything
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyAugmentConfig returns an AugmentConfig with all fields set to nil.
func EmptyAugmentConfig() *AugmentConfig {
	return &AugmentConfig{}
}

// DefaultAugmentConfig returns a config with every field set to its default.
func DefaultAugmentConfig() *AugmentConfig {
	return &AugmentConfig{
		HoursNoise:      ptrFloat64(6),
		ObsStdScale:     ptrFloat64(lightcurve.ObseStdScale),
		ObsMinLimit:     ptrFloat64(0),
		DropProb:        ptrFloat64(0.5),
		ApplyProb:       ptrFloat64(1),
		MinValidLength:  ptrInt(lightcurve.MinPointsDefinition),
		WindowModes:     defaultWindowModes(),
		CadenceDT:       ptrFloat64(lightcurve.CadenceThreshold),
		CadenceMode:     ptrString(string(lightcurve.CadenceExpectation)),
		ResampleErrors:  ptrBool(false),
		ResampleLengths: ptrBool(false),
		RankRanges:      ptrInt(100),
		LengthOffset:    ptrFloat64(0),
		CopiesPerObject: ptrInt(4),
		Workers:         ptrInt(4),
		Seed:            ptrUint64(0),
	}
}

func defaultWindowModes() map[string]float64 {
	return map[string]float64{
		string(lightcurve.WindowNone):   0.5,
		string(lightcurve.WindowLeft):   0.25,
		string(lightcurve.WindowRandom): 0.25,
	}
}

// LoadAugmentConfig loads an AugmentConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadAugmentConfig(path string) (*AugmentConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAugmentConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AugmentConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAugmentConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AugmentConfig) Validate() error {
	if c.HoursNoise != nil && *c.HoursNoise < 0 {
		return fmt.Errorf("hours_noise must be non-negative, got %f", *c.HoursNoise)
	}
	if c.ObsStdScale != nil && *c.ObsStdScale < 0 {
		return fmt.Errorf("obs_std_scale must be non-negative, got %f", *c.ObsStdScale)
	}
	for name, p := range map[string]*float64{"drop_prob": c.DropProb, "apply_prob": c.ApplyProb} {
		if p != nil && (*p < 0 || *p > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *p)
		}
	}
	if c.MinValidLength != nil && *c.MinValidLength < 0 {
		return fmt.Errorf("min_valid_length must be non-negative, got %d", *c.MinValidLength)
	}
	if c.WindowModes != nil {
		var sum float64
		for mode, p := range c.WindowModes {
			switch lightcurve.WindowMode(mode) {
			case lightcurve.WindowNone, lightcurve.WindowLeft, lightcurve.WindowRandom:
			default:
				return fmt.Errorf("unknown window mode %q", mode)
			}
			if p < 0 {
				return fmt.Errorf("window mode %q has negative probability %f", mode, p)
			}
			sum += p
		}
		if sum <= 0 {
			return fmt.Errorf("window_modes probabilities must not all be zero")
		}
	}
	if c.CadenceDT != nil && *c.CadenceDT <= 0 {
		return fmt.Errorf("cadence_dt must be positive, got %f", *c.CadenceDT)
	}
	if c.CadenceMode != nil {
		switch lightcurve.CadenceMode(*c.CadenceMode) {
		case lightcurve.CadenceMean, lightcurve.CadenceMinObse, lightcurve.CadenceExpectation:
		default:
			return fmt.Errorf("unknown cadence_mode %q", *c.CadenceMode)
		}
	}
	if c.RankRanges != nil && *c.RankRanges < 1 {
		return fmt.Errorf("rank_ranges must be at least 1, got %d", *c.RankRanges)
	}
	if c.LengthOffset != nil && *c.LengthOffset < 0 {
		return fmt.Errorf("length_offset must be non-negative, got %f", *c.LengthOffset)
	}
	if c.CopiesPerObject != nil && *c.CopiesPerObject < 0 {
		return fmt.Errorf("copies_per_object must be non-negative, got %d", *c.CopiesPerObject)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.MaxDuration != nil && *c.MaxDuration <= 0 {
		return fmt.Errorf("max_duration must be positive, got %f", *c.MaxDuration)
	}
	return nil
}

// GetHoursNoise returns the hours_noise value or the default.
func (c *AugmentConfig) GetHoursNoise() float64 {
	if c.HoursNoise == nil {
		return 6 // default
	}
	return *c.HoursNoise
}

func (c *AugmentConfig) GetObsStdScale() float64 {
	if c.ObsStdScale == nil {
		return lightcurve.ObseStdScale
	}
	return *c.ObsStdScale
}

func (c *AugmentConfig) GetObsMinLimit() float64 {
	if c.ObsMinLimit == nil {
		return 0
	}
	return *c.ObsMinLimit
}

func (c *AugmentConfig) GetDropProb() float64 {
	if c.DropProb == nil {
		return 0.5
	}
	return *c.DropProb
}

func (c *AugmentConfig) GetApplyProb() float64 {
	if c.ApplyProb == nil {
		return 1
	}
	return *c.ApplyProb
}

func (c *AugmentConfig) GetMinValidLength() int {
	if c.MinValidLength == nil {
		return lightcurve.MinPointsDefinition
	}
	return *c.MinValidLength
}

// GetWindowModes returns the window mode table as typed modes.
func (c *AugmentConfig) GetWindowModes() map[lightcurve.WindowMode]float64 {
	src := c.WindowModes
	if src == nil {
		src = defaultWindowModes()
	}
	out := make(map[lightcurve.WindowMode]float64, len(src))
	for k, v := range src {
		out[lightcurve.WindowMode(k)] = v
	}
	return out
}

func (c *AugmentConfig) GetCadenceDT() float64 {
	if c.CadenceDT == nil {
		return lightcurve.CadenceThreshold
	}
	return *c.CadenceDT
}

func (c *AugmentConfig) GetCadenceMode() lightcurve.CadenceMode {
	if c.CadenceMode == nil {
		return lightcurve.CadenceExpectation
	}
	return lightcurve.CadenceMode(*c.CadenceMode)
}

func (c *AugmentConfig) GetResampleErrors() bool {
	return c.ResampleErrors != nil && *c.ResampleErrors
}

func (c *AugmentConfig) GetResampleLengths() bool {
	return c.ResampleLengths != nil && *c.ResampleLengths
}

func (c *AugmentConfig) GetRankRanges() int {
	if c.RankRanges == nil {
		return 100
	}
	return *c.RankRanges
}

func (c *AugmentConfig) GetLengthOffset() float64 {
	if c.LengthOffset == nil {
		return 0
	}
	return *c.LengthOffset
}

func (c *AugmentConfig) GetCopiesPerObject() int {
	if c.CopiesPerObject == nil {
		return 4
	}
	return *c.CopiesPerObject
}

func (c *AugmentConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

func (c *AugmentConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetMaxDuration returns the clip duration in days; ok is false when unset.
func (c *AugmentConfig) GetMaxDuration() (days float64, ok bool) {
	if c.MaxDuration == nil {
		return 0, false
	}
	return *c.MaxDuration, true
}
