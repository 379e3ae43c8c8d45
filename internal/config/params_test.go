package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	if p.Eps == nil || *p.Eps != 0.009 {
		t.Errorf("Expected Eps 0.009, got %v", p.Eps)
	}
	if p.MinSamples == nil || *p.MinSamples != 2 {
		t.Errorf("Expected MinSamples 2, got %v", p.MinSamples)
	}
	if diff := cmp.Diff(hotspot.DefaultConfig(), p.EngineConfig()); diff != "" {
		t.Errorf("EngineConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyParamsUseDefaults(t *testing.T) {
	p := &EngineParams{}

	assert.Equal(t, 0.009, p.GetEps())
	assert.Equal(t, 2, p.GetMinSamples())
	assert.Equal(t, 0.8, p.GetTimeDecayFactor())
	assert.Equal(t, 1.0, p.GetMaxRadius())
	assert.Equal(t, 2, p.GetMaxClustersPerType())
}

func TestMarshalUnmarshal(t *testing.T) {
	cfg := hotspot.Config{Eps: 0.005, MinSamples: 3, DecayFactor: 0.5, MaxRadius: 2.5, MaxClustersPerType: 4}

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"eps": 0.005,
		"min_samples": 3,
		"time_decay_factor": 0.5,
		"max_radius": 2.5,
		"max_clusters_per_type": 4
	}`, string(data))

	p, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, p.EngineConfig())
}

func TestUnmarshalPartial(t *testing.T) {
	p, err := Unmarshal([]byte(`{"max_radius": 0.5}`))
	require.NoError(t, err)

	want := hotspot.DefaultConfig()
	want.MaxRadius = 0.5
	assert.Equal(t, want, p.EngineConfig())
}

func TestUnmarshalNoValidation(t *testing.T) {
	p, err := Unmarshal([]byte(`{"eps": -1, "max_clusters_per_type": 0}`))
	require.NoError(t, err)
	assert.Equal(t, -1.0, p.GetEps())
	assert.Equal(t, 0, p.GetMaxClustersPerType())
}

func TestUnmarshalInvalid(t *testing.T) {
	_, err := Unmarshal([]byte(`{"eps": "wide"}`))
	assert.Error(t, err)
}

func TestSaveLoadParams(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	cfg := hotspot.DefaultConfig()
	cfg.MaxClustersPerType = 5

	require.NoError(t, SaveParams(fsys, "/etc/hotspot/params.json", cfg))

	p, err := LoadParams(fsys, "/etc/hotspot/params.json")
	require.NoError(t, err)
	assert.Equal(t, cfg, p.EngineConfig())
}

func TestSaveLoadParamsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, SaveParams(fsutil.OSFileSystem{}, path, hotspot.DefaultConfig()))

	p, err := LoadParams(fsutil.OSFileSystem{}, path)
	require.NoError(t, err)
	assert.Equal(t, hotspot.DefaultConfig(), p.EngineConfig())
}

func TestLoadParamsErrors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("params.yaml", []byte("eps: 1"), 0o644))
	require.NoError(t, fsys.WriteFile("big.json", []byte(strings.Repeat(" ", maxParamsFileSize+1)), 0o644))
	require.NoError(t, fsys.WriteFile("bad.json", []byte("{"), 0o644))

	_, err := LoadParams(fsys, "params.yaml")
	assert.ErrorContains(t, err, ".json extension")

	_, err = LoadParams(fsys, "missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = LoadParams(fsys, "big.json")
	assert.ErrorContains(t, err, "too large")

	_, err = LoadParams(fsys, "bad.json")
	assert.ErrorContains(t, err, "failed to parse")

	err = SaveParams(fsys, "out.txt", hotspot.DefaultConfig())
	assert.ErrorContains(t, err, ".json extension")
}
