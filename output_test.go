package proximity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotFeatureCollection(t *testing.T) {
	toy := newToyScenario(t)
	cfg := &Configuration{Cells: []Cell{{Name: "Park", Height: 10}}}
	snap, err := ApplyConfiguration(toy.base, toy.catalogue, cfg, UpdateOptions{})
	require.NoError(t, err)

	fc := snap.FeatureCollection()
	require.Len(t, fc.Features, 2)
	assert.Equal(t, []float64{0, 5}, fc.Features[0].Geometry.Point)
	// Raw ratio is 2.5
	assert.Equal(t, 25.0, snap.SampleAccess[0][0])
	parks, err := fc.Features[0].PropertyFloat64("parks")
	require.NoError(t, err)
	assert.Equal(t, 1.0, parks)
	parks, err = fc.Features[1].PropertyFloat64("parks")
	require.NoError(t, err)
	assert.Equal(t, 0.0, parks)

	data, err := snap.MarshalGeoJSON()
	require.NoError(t, err)
	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, decoded.Features, 2)
	for _, feature := range decoded.Features {
		for _, name := range toy.categories.Names() {
			score, err := feature.PropertyFloat64(name)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}

	// Below scaler values pass through unchanged
	snap, err = ApplyConfiguration(toy.base, toy.catalogue, &Configuration{}, UpdateOptions{})
	require.NoError(t, err)
	parks, err = snap.FeatureCollection().Features[0].PropertyFloat64("parks")
	require.NoError(t, err)
	assert.Equal(t, 0.5, parks)
}

func TestFilePublisher(t *testing.T) {
	toy := newToyScenario(t)
	snap, err := ApplyConfiguration(toy.base, toy.catalogue, &Configuration{Cells: []Cell{{Name: "Residential"}}}, UpdateOptions{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	pub, err := NewFilePublisher(dir)
	require.NoError(t, err)
	require.NoError(t, MultiPublisher{pub, LogPublisher{}}.Publish(context.Background(), snap))

	data, err := os.ReadFile(filepath.Join(dir, "indicators.json"))
	require.NoError(t, err)
	indicators := []map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &indicators))
	require.Len(t, indicators, 2)
	assert.Equal(t, "Access to parks", indicators[0]["name"])
	assert.Contains(t, indicators[0], "raw_value")
	assert.Contains(t, indicators[0], "units")

	_, err = os.Stat(filepath.Join(dir, "access.geojson"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "access.geojson.tmp"))
	assert.True(t, os.IsNotExist(err))
}
