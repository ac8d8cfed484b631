package proximity

import (
	"encoding/json"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// LoadGridGeoJSON reads GEOGRID: FeatureCollection with properties.header {nrows, ncols, cellSize}
// and one polygon (or point) feature per cell in row-major order.
//
// Optional 'interactive' feature property marks cells which can be configured (bool or non-empty string).
// Cells without the property are interactive.
func LoadGridGeoJSON(fname string, projection Projection) (*Grid, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read grid file")
	}
	return ParseGridGeoJSON(data, projection)
}

// ParseGridGeoJSON is LoadGridGeoJSON for in-memory data
func ParseGridGeoJSON(data []byte, projection Projection) (*Grid, error) {
	var meta struct {
		Properties struct {
			Header GridHeader `json:"header"`
		} `json:"properties"`
	}
	err := json.Unmarshal(data, &meta)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse grid header")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse grid features")
	}
	grid := &Grid{
		Header: meta.Properties.Header,
		Cells:  make([]GridCell, 0, len(fc.Features)),
	}
	for i, feature := range fc.Features {
		geom, err := orbGeometry(feature.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "Cell %d", i)
		}
		centroid, _ := planar.CentroidArea(projection.PlanarGeometry(geom))
		grid.Cells = append(grid.Cells, GridCell{
			Index:       i,
			Centroid:    centroid,
			Interactive: interactiveProperty(feature.Properties),
		})
	}
	err = grid.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "Bad grid")
	}
	return grid, nil
}

func interactiveProperty(props map[string]interface{}) bool {
	v, ok := props["interactive"]
	if !ok || v == nil {
		return true
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	case float64:
		return t != 0
	}
	return true
}

// orbGeometry converts supported go.geojson geometries into orb
func orbGeometry(g *geojson.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, errors.New("Feature has no geometry")
	}
	switch g.Type {
	case geojson.GeometryPoint:
		return toPoint(g.Point), nil
	case geojson.GeometryPolygon:
		return toPolygon(g.Polygon), nil
	case geojson.GeometryMultiPolygon:
		mp := make(orb.MultiPolygon, len(g.MultiPolygon))
		for i := range g.MultiPolygon {
			mp[i] = toPolygon(g.MultiPolygon[i])
		}
		return mp, nil
	default:
		return nil, errors.Errorf("Unsupported geometry type '%s'", g.Type)
	}
}

func toPoint(coords []float64) orb.Point {
	if len(coords) < 2 {
		return orb.Point{}
	}
	return orb.Point{coords[0], coords[1]}
}

func toPolygon(rings [][][]float64) orb.Polygon {
	poly := make(orb.Polygon, len(rings))
	for i, ring := range rings {
		poly[i] = make(orb.Ring, len(ring))
		for j := range ring {
			poly[i][j] = toPoint(ring[j])
		}
	}
	return poly
}
