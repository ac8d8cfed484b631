package proximity

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o644))
	return fname
}

func TestLoadNetworkCSV(t *testing.T) {
	dir := t.TempDir()
	nodesFile := writeFile(t, dir, "nodes.csv", "id_int,x,y,extra\n1,0.5,1.5,a\n2, 10 ,20,b\n")
	edgesFile := writeFile(t, dir, "edges.csv", "from_int;to_int;weight\n1;2;3.5\n2;1;4\n")

	nodes, err := LoadNodesCSV(nodesFile, DefaultNetworkColumns(), NO_PROJECTION)
	require.NoError(t, err)
	assert.Equal(t, []RealNodeRecord{
		{ID: "1", Point: orb.Point{0.5, 1.5}},
		{ID: "2", Point: orb.Point{10, 20}},
	}, nodes)

	edges, err := LoadEdgesCSV(edgesFile, DefaultNetworkColumns())
	require.NoError(t, err)
	assert.Equal(t, []RealEdgeRecord{
		{From: "1", To: "2", Weight: 3.5},
		{From: "2", To: "1", Weight: 4},
	}, edges)

	columns := DefaultNetworkColumns()
	columns.NodeID = "osmid"
	_, err = LoadNodesCSV(nodesFile, columns, NO_PROJECTION)
	assert.Error(t, err)
	badFile := writeFile(t, dir, "bad.csv", "id_int,x,y\n1,abc,2\n")
	_, err = LoadNodesCSV(badFile, DefaultNetworkColumns(), NO_PROJECTION)
	assert.Error(t, err)
}

func TestLoadNetworkCSVMercator(t *testing.T) {
	dir := t.TempDir()
	nodesFile := writeFile(t, dir, "nodes.csv", "id_int,x,y\n1,-83.07,42.33\n")
	nodes, err := LoadNodesCSV(nodesFile, DefaultNetworkColumns(), MERCATOR_PROJECTION)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	back := MERCATOR_PROJECTION.ToGeographic(nodes[0].Point)
	assert.InDelta(t, -83.07, back.Lon(), 1e-9)
	assert.InDelta(t, 42.33, back.Lat(), 1e-9)
	assert.Greater(t, -nodes[0].Point.X(), 1e6)
}

func TestExportedNetworkIsReadable(t *testing.T) {
	toy := newToyScenario(t)
	dir := t.TempDir()
	require.NoError(t, toy.net.ExportToCSV(filepath.Join(dir, "net.csv")))
	_, err := os.Stat(filepath.Join(dir, "net_nodes.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "net_edges.csv"))
	require.NoError(t, err)
}

const gridGeoJSON = `{
  "type": "FeatureCollection",
  "properties": {"header": {"nrows": 1, "ncols": 2, "cellSize": 10}},
  "features": [
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"interactive": false},
     "geometry": {"type": "Polygon", "coordinates": [[[10,0],[20,0],[20,10],[10,10],[10,0]]]}}
  ]
}`

func TestParseGridGeoJSON(t *testing.T) {
	grid, err := ParseGridGeoJSON([]byte(gridGeoJSON), NO_PROJECTION)
	require.NoError(t, err)
	assert.Equal(t, GridHeader{Rows: 1, Cols: 2, CellSize: 10}, grid.Header)
	require.Len(t, grid.Cells, 2)
	assert.InDelta(t, 5, grid.Cells[0].Centroid.X(), 1e-9)
	assert.InDelta(t, 5, grid.Cells[0].Centroid.Y(), 1e-9)
	assert.InDelta(t, 15, grid.Cells[1].Centroid.X(), 1e-9)
	assert.True(t, grid.Cells[0].Interactive)
	assert.False(t, grid.Cells[1].Interactive)

	_, err = ParseGridGeoJSON([]byte(`{"type": "FeatureCollection", "properties": {"header": {"nrows": 2, "ncols": 2, "cellSize": 10}}, "features": []}`), NO_PROJECTION)
	assert.Error(t, err)
}

func TestLoadZonesGeoJSON(t *testing.T) {
	dir := t.TempDir()
	fname := writeFile(t, dir, "zones.geojson", `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"GEOID": "A", "jobs": 12, "centroid": [1, 2]},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"GEOID": "B", "jobs": "n/a"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]}}
  ]
}`)
	zones, err := LoadZonesGeoJSON(fname, "GEOID", ZoneAttributes{"employment": "jobs"}, NO_PROJECTION)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "A", zones[0].ID)
	assert.Equal(t, orb.Point{1, 2}, zones[0].Point)
	assert.Equal(t, map[string]float64{"employment": 12}, zones[0].Values)
	assert.Equal(t, "B", zones[1].ID)
	assert.InDelta(t, 2, zones[1].Point.X(), 1e-9)
	assert.InDelta(t, 2, zones[1].Point.Y(), 1e-9)
	assert.Empty(t, zones[1].Values)
}

func TestLoadZonesShapefile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "tracts.shp")
	writer, err := shp.Create(fname, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, writer.SetFields([]shp.Field{
		shp.StringField("GEOID", 12),
		shp.FloatField("JOBS", 12, 2),
	}))
	square := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}}))
	n := writer.Write(&square)
	require.NoError(t, writer.WriteAttribute(int(n), 0, "T1"))
	require.NoError(t, writer.WriteAttribute(int(n), 1, 42.5))
	writer.Close()

	zones, err := LoadZonesShapefile(fname, "GEOID", ZoneAttributes{"employment": "jobs"}, NO_PROJECTION)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "T1", zones[0].ID)
	assert.InDelta(t, 5, zones[0].Point.X(), 1e-9)
	assert.InDelta(t, 5, zones[0].Point.Y(), 1e-9)
	assert.InDelta(t, 42.5, zones[0].Values["employment"], 1e-9)

	_, err = LoadZonesShapefile(fname, "GEOID", ZoneAttributes{"employment": "MISSING"}, NO_PROJECTION)
	assert.Error(t, err)
}

const amenitiesOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="0.0001" lon="0.0001" version="1">
    <tag k="amenity" v="restaurant"/>
  </node>
  <node id="2" lat="0.0002" lon="0.0002" version="1"/>
  <node id="3" lat="0.0003" lon="0.0003" version="1">
    <tag k="shop" v="bakery"/>
    <tag k="amenity" v="bar"/>
  </node>
  <node id="4" lat="0.0004" lon="0.0004" version="1">
    <tag k="amenity" v="bench"/>
  </node>
  <way id="10" version="1">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="leisure" v="park"/>
  </way>
</osm>`

func TestLoadAmenitiesOSM(t *testing.T) {
	fname := writeFile(t, t.TempDir(), "area.osm", amenitiesOSM)
	tags, err := ParseAmenityTags(map[string][]string{
		"food":      {"amenity=restaurant", "amenity=cafe"},
		"nightlife": {"amenity=bar"},
		"shopping":  {"shop=*"},
		"parks":     {"leisure=park"},
	})
	require.NoError(t, err)

	amenities, err := LoadAmenitiesOSM(context.Background(), fname, tags, NO_PROJECTION)
	require.NoError(t, err)
	sort.Slice(amenities, func(i, j int) bool {
		if amenities[i].Category == amenities[j].Category {
			return amenities[i].Point.X() < amenities[j].Point.X()
		}
		return amenities[i].Category < amenities[j].Category
	})
	assert.Equal(t, []Amenity{
		{Category: "food", Point: orb.Point{0.0001, 0.0001}},
		{Category: "nightlife", Point: orb.Point{0.0003, 0.0003}},
		{Category: "parks", Point: orb.Point{0.0002, 0.0002}},
		{Category: "shopping", Point: orb.Point{0.0003, 0.0003}},
	}, amenities)

	_, err = LoadAmenitiesOSM(context.Background(), writeFile(t, t.TempDir(), "area.txt", ""), tags, NO_PROJECTION)
	assert.Error(t, err)
}

func TestTagPattern(t *testing.T) {
	p, err := ParseTagPattern("shop")
	require.NoError(t, err)
	assert.Equal(t, TagPattern{Key: "shop", Value: "*"}, p)
	p, err = ParseTagPattern(" amenity = cafe ")
	require.NoError(t, err)
	assert.Equal(t, TagPattern{Key: "amenity", Value: "cafe"}, p)
	_, err = ParseTagPattern("=cafe")
	assert.Error(t, err)

	tags := osm.Tags{{Key: "amenity", Value: "cafe"}}
	assert.True(t, p.Match(tags))
	assert.False(t, TagPattern{Key: "amenity", Value: "bar"}.Match(tags))
	assert.True(t, TagPattern{Key: "amenity", Value: "*"}.Match(tags))
	assert.False(t, TagPattern{Key: "shop", Value: "*"}.Match(tags))
}

func TestParseProjection(t *testing.T) {
	p, err := ParseProjection("")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{1, 2}, p.ToPlanar(orb.Point{1, 2}))
	assert.Equal(t, orb.Point{1, 2}, p.ToGeographic(orb.Point{1, 2}))
	p, err = ParseProjection("Mercator")
	require.NoError(t, err)
	assert.Equal(t, "mercator", p.Name)
	_, err = ParseProjection("utm")
	assert.Error(t, err)
}

func TestNewOSMScannerByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"area.osm", "area.xml", "area.pbf", "area.osm.pbf"} {
		fname := writeFile(t, dir, name, "")
		file, err := os.Open(fname)
		require.NoError(t, err)
		scanner, err := newOSMScanner(context.Background(), fname, file)
		require.NoError(t, err, name)
		scanner.Close()
		file.Close()
	}
	file, err := os.Open(writeFile(t, dir, "area.geojson", ""))
	require.NoError(t, err)
	defer file.Close()
	_, err = newOSMScanner(context.Background(), "area.geojson", file)
	assert.Error(t, err)
}
