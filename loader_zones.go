package proximity

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ZoneAttributes maps category to attribute (property or shapefile field) holding its value
type ZoneAttributes map[string]string

// LoadZonesGeoJSON reads zonal POI sources. Zone point is 'centroid' property ([x, y]) when present,
// otherwise planar centroid of geometry.
func LoadZonesGeoJSON(fname string, idProperty string, attributes ZoneAttributes, projection Projection) ([]Zone, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read zones file")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse zones")
	}
	zones := make([]Zone, 0, len(fc.Features))
	for i, feature := range fc.Features {
		zone := Zone{
			ID:     strconv.Itoa(i),
			Values: make(map[string]float64, len(attributes)),
		}
		if idProperty != "" {
			if v, ok := feature.Properties[idProperty]; ok {
				zone.ID = propertyString(v)
			}
		}
		if centroid, ok := centroidProperty(feature.Properties); ok {
			zone.Point = projection.ToPlanar(centroid)
		} else {
			geom, err := orbGeometry(feature.Geometry)
			if err != nil {
				return nil, errors.Wrapf(err, "Zone '%s'", zone.ID)
			}
			zone.Point, _ = planar.CentroidArea(projection.PlanarGeometry(geom))
		}
		for category, attribute := range attributes {
			v, err := feature.PropertyFloat64(attribute)
			if err != nil {
				zap.L().Debug("zone has no numeric attribute", zap.String("zone", zone.ID), zap.String("attribute", attribute))
				continue
			}
			zone.Values[category] = v
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

func centroidProperty(props map[string]interface{}) (orb.Point, bool) {
	raw, ok := props["centroid"].([]interface{})
	if !ok || len(raw) < 2 {
		return orb.Point{}, false
	}
	x, okX := raw[0].(float64)
	y, okY := raw[1].(float64)
	if !okX || !okY {
		return orb.Point{}, false
	}
	return orb.Point{x, y}, true
}

func propertyString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// LoadZonesShapefile reads zonal POI sources from ESRI shapefile. Zone point is planar centroid of polygon.
func LoadZonesShapefile(fname string, idField string, attributes ZoneAttributes, projection Projection) ([]Zone, error) {
	reader, err := shp.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open shapefile")
	}
	defer reader.Close()

	idIdx := fieldIndex(reader, idField)
	attrIdx := make(map[string]int, len(attributes))
	for category, attribute := range attributes {
		idx := fieldIndex(reader, attribute)
		if idx < 0 {
			return nil, errors.Errorf("Field '%s' not found in shapefile", attribute)
		}
		attrIdx[category] = idx
	}

	zones := make([]Zone, 0)
	for reader.Next() {
		n, shape := reader.Shape()
		if shape == nil {
			continue
		}
		geom := shapeToOrb(shape)
		if geom == nil {
			continue
		}
		zone := Zone{
			ID:     strconv.Itoa(n),
			Values: make(map[string]float64, len(attrIdx)),
		}
		if idIdx >= 0 {
			zone.ID = strings.TrimSpace(reader.Attribute(idIdx))
		}
		zone.Point, _ = planar.CentroidArea(projection.PlanarGeometry(geom))
		for category, idx := range attrIdx {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				zap.L().Debug("zone has no numeric attribute", zap.String("zone", zone.ID), zap.String("value", raw))
				continue
			}
			zone.Values[category] = v
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// shapeToOrb converts shapefile shape to orb geometry. Clockwise rings start new polygons, others are holes.
func shapeToOrb(s shp.Shape) orb.Geometry {
	switch shape := s.(type) {
	case *shp.Point:
		return orb.Point{shape.X, shape.Y}
	case *shp.Polygon:
		if shape.NumParts == 0 || len(shape.Points) == 0 {
			return nil
		}
		mp := make(orb.MultiPolygon, 0, 1)
		for i := int32(0); i < shape.NumParts; i++ {
			start := shape.Parts[i]
			end := int32(len(shape.Points))
			if i+1 < shape.NumParts {
				end = shape.Parts[i+1]
			}
			ring := make(orb.Ring, 0, end-start)
			for j := start; j < end; j++ {
				ring = append(ring, orb.Point{shape.Points[j].X, shape.Points[j].Y})
			}
			if len(mp) == 0 || ring.Orientation() == orb.CW {
				mp = append(mp, orb.Polygon{ring})
				continue
			}
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
		}
		if len(mp) == 1 {
			return mp[0]
		}
		return mp
	default:
		return nil
	}
}
