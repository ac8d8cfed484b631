package proximity

import (
	"encoding/json"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// FeatureCollection returns one Point feature per sample with category -> score properties,
// score is count/scaler clamped to [0, 1].
func (snap *Snapshot) FeatureCollection() *geojson.FeatureCollection {
	base := snap.Base
	names := base.Categories.Names()
	fc := geojson.NewFeatureCollection()
	for i, pt := range base.SampleLocations {
		feature := geojson.NewPointFeature([]float64{pt.Lon(), pt.Lat()})
		for c, name := range names {
			feature.SetProperty(name, snap.Score(i, Category(c)))
		}
		fc.AddFeature(feature)
	}
	return fc
}

// MarshalGeoJSON returns accessibility FeatureCollection as bytes
func (snap *Snapshot) MarshalGeoJSON() ([]byte, error) {
	b, err := snap.FeatureCollection().MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal accessibility to GeoJSON")
	}
	return b, nil
}

// MarshalIndicators returns indicators list as bytes
func (snap *Snapshot) MarshalIndicators() ([]byte, error) {
	indicators := snap.Indicators
	if indicators == nil {
		indicators = []Indicator{}
	}
	b, err := json.Marshal(indicators)
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal indicators")
	}
	return b, nil
}
