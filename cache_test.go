package proximity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineRoundTrip(t *testing.T) {
	toy := newToyScenario(t)
	fname := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, SaveBaseline(toy.base, fname))

	loaded, err := LoadBaseline(fname)
	require.NoError(t, err)
	assert.Equal(t, toy.base.Categories.Names(), loaded.Categories.Names())
	assert.Equal(t, toy.base.Scalers, loaded.Scalers)
	assert.Equal(t, toy.base.Budget, loaded.Budget)
	assert.Equal(t, toy.base.SampleAccess, loaded.SampleAccess)
	assert.Equal(t, toy.base.GridAccess, loaded.GridAccess)
	assert.Equal(t, toy.base.AffectedSamples, loaded.AffectedSamples)
	assert.Equal(t, toy.base.AffectedGrid, loaded.AffectedGrid)
	assert.Equal(t, toy.base.SampleLocations, loaded.SampleLocations)

	cfg := &Configuration{Cells: []Cell{{Name: "Park"}, {}, {}, {Name: "Residential"}}}
	fromBuilt, err := ApplyConfiguration(toy.base, toy.catalogue, cfg, UpdateOptions{})
	require.NoError(t, err)
	fromLoaded, err := ApplyConfiguration(loaded, toy.catalogue, cfg, UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, fromBuilt.SampleAccess, fromLoaded.SampleAccess)
	assert.Equal(t, fromBuilt.Indicators, fromLoaded.Indicators)
}

func TestBaselineFileLayout(t *testing.T) {
	toy := newToyScenario(t)
	fname := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, SaveBaseline(toy.base, fname))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	raw := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"all_poi_types", "scalers", "radius",
		"sample_nodes_acc_base", "grid_nodes_acc_base",
		"affected_sample_nodes", "affected_grid_nodes",
		"sample_lons", "sample_lats",
	} {
		assert.Contains(t, raw, key)
	}
	grid := map[string]map[string]float64{}
	require.NoError(t, json.Unmarshal(raw["grid_nodes_acc_base"], &grid))
	assert.Equal(t, 5.0, grid["0"]["parks"])
}

func TestLoadBaselineInconsistent(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		doc  string
	}{
		{"bad json", `{`},
		{"no categories", `{"all_poi_types": [], "scalers": {}}`},
		{"missing scaler", `{"all_poi_types": ["parks"], "scalers": {}}`},
		{"lon lat mismatch", `{"all_poi_types": ["parks"], "scalers": {"parks": 1}, "sample_lons": [1], "sample_lats": []}`},
		{"affected out of range", `{"all_poi_types": ["parks"], "scalers": {"parks": 1},
			"grid_nodes_acc_base": {"0": {"parks": 1}},
			"affected_sample_nodes": {"0": [3]}, "affected_grid_nodes": {"0": [0]}}`},
		{"bad key", `{"all_poi_types": ["parks"], "scalers": {"parks": 1},
			"grid_nodes_acc_base": {"x": {"parks": 1}},
			"affected_sample_nodes": {"0": []}, "affected_grid_nodes": {"0": [0]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fname := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(fname, []byte(tt.doc), 0o644))
			_, err := LoadBaseline(fname)
			assert.Error(t, err)
		})
	}
}

func TestSaveBaselineKeepsPreviousOnFailure(t *testing.T) {
	toy := newToyScenario(t)
	dir := t.TempDir()
	fname := filepath.Join(dir, "baseline.json")
	require.NoError(t, SaveBaseline(toy.base, fname))
	_, err := os.Stat(fname + ".tmp")
	assert.True(t, os.IsNotExist(err))

	// Temporary file can't be created
	require.NoError(t, os.Mkdir(fname+".tmp", 0o755))
	assert.Error(t, SaveBaseline(toy.base, fname))
	loaded, err := LoadBaseline(fname)
	require.NoError(t, err)
	assert.Equal(t, toy.base.SampleAccess, loaded.SampleAccess)

	assert.Error(t, SaveBaseline(toy.base, filepath.Join(dir, "missing", "baseline.json")))
}
