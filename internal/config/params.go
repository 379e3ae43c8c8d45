// Package config holds the parameter store for the hotspot engine: the five
// tunable scalars, their JSON form and file load/save.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// maxParamsFileSize bounds parameter files read from disk.
const maxParamsFileSize = 1 * 1024 * 1024 // 1MB

// EngineParams is the serialised form of the engine configuration. Fields
// omitted from the JSON keep their defaults, so partial files are safe.
// Values are stored as given; nothing is range checked.
type EngineParams struct {
	Eps                *float64 `json:"eps,omitempty"`
	MinSamples         *int     `json:"min_samples,omitempty"`
	TimeDecayFactor    *float64 `json:"time_decay_factor,omitempty"`
	MaxRadius          *float64 `json:"max_radius,omitempty"` // km
	MaxClustersPerType *int     `json:"max_clusters_per_type,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// FromConfig returns params with every field set from cfg.
func FromConfig(cfg hotspot.Config) *EngineParams {
	return &EngineParams{
		Eps:                ptrFloat64(cfg.Eps),
		MinSamples:         ptrInt(cfg.MinSamples),
		TimeDecayFactor:    ptrFloat64(cfg.DecayFactor),
		MaxRadius:          ptrFloat64(cfg.MaxRadius),
		MaxClustersPerType: ptrInt(cfg.MaxClustersPerType),
	}
}

// DefaultParams returns params holding the engine defaults.
func DefaultParams() *EngineParams {
	return FromConfig(hotspot.DefaultConfig())
}

// GetEps returns eps or the default.
func (p *EngineParams) GetEps() float64 {
	if p.Eps == nil {
		return hotspot.DefaultEps
	}
	return *p.Eps
}

// GetMinSamples returns min_samples or the default.
func (p *EngineParams) GetMinSamples() int {
	if p.MinSamples == nil {
		return hotspot.DefaultMinSamples
	}
	return *p.MinSamples
}

// GetTimeDecayFactor returns time_decay_factor or the default.
func (p *EngineParams) GetTimeDecayFactor() float64 {
	if p.TimeDecayFactor == nil {
		return hotspot.DefaultDecayFactor
	}
	return *p.TimeDecayFactor
}

// GetMaxRadius returns max_radius or the default.
func (p *EngineParams) GetMaxRadius() float64 {
	if p.MaxRadius == nil {
		return hotspot.DefaultMaxRadiusKm
	}
	return *p.MaxRadius
}

// GetMaxClustersPerType returns max_clusters_per_type or the default.
func (p *EngineParams) GetMaxClustersPerType() int {
	if p.MaxClustersPerType == nil {
		return hotspot.DefaultMaxClustersPerType
	}
	return *p.MaxClustersPerType
}

// EngineConfig resolves the params into an engine configuration.
func (p *EngineParams) EngineConfig() hotspot.Config {
	return hotspot.Config{
		Eps:                p.GetEps(),
		MinSamples:         p.GetMinSamples(),
		DecayFactor:        p.GetTimeDecayFactor(),
		MaxRadius:          p.GetMaxRadius(),
		MaxClustersPerType: p.GetMaxClustersPerType(),
	}
}

// Marshal encodes cfg as an indented parameter blob with every key present.
func Marshal(cfg hotspot.Config) ([]byte, error) {
	return json.MarshalIndent(FromConfig(cfg), "", "  ")
}

// Unmarshal decodes a parameter blob. Missing keys resolve to defaults.
func Unmarshal(data []byte) (*EngineParams, error) {
	p := &EngineParams{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse params JSON: %w", err)
	}
	return p, nil
}

// LoadParams loads a parameter file. The file must have a .json extension
// and be under 1MB.
func LoadParams(fsys fsutil.FileSystem, path string) (*EngineParams, error) {
	cleanPath := filepath.Clean(path)
	if err := checkExt(cleanPath); err != nil {
		return nil, err
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat params file: %w", err)
	}
	if info.Size() > maxParamsFileSize {
		return nil, fmt.Errorf("params file too large: %d bytes (max %d)", info.Size(), maxParamsFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	return Unmarshal(data)
}

// SaveParams writes cfg to path as a parameter file.
func SaveParams(fsys fsutil.FileSystem, path string, cfg hotspot.Config) error {
	cleanPath := filepath.Clean(path)
	if err := checkExt(cleanPath); err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	if err := fsys.WriteFile(cleanPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write params file: %w", err)
	}
	return nil
}

func checkExt(path string) error {
	if ext := filepath.Ext(path); ext != ".json" {
		return fmt.Errorf("params file must have .json extension, got %q", ext)
	}
	return nil
}
