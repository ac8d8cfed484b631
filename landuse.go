package proximity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LandUseType describes how much POI a unit of given land use generates
type LandUseType struct {
	// POIs is quantity per unit of height for each category
	POIs         map[string]float64 `yaml:"pois" json:"pois"`
	SqmPerPerson float64            `yaml:"sqm_per_person,omitempty" json:"sqm_per_person,omitempty"`
}

// DefaultLandUseTypes returns generation table used by CityScope Corktown table
func DefaultLandUseTypes() map[string]LandUseType {
	return map[string]LandUseType{
		"Residential":  {POIs: map[string]float64{"housing": 200}},
		"Office Tower": {POIs: map[string]float64{"employment": 200}},
		"Plaza":        {POIs: map[string]float64{"parks": 1}},
		"Park":         {POIs: map[string]float64{"parks": 1}},
		"Mix-use":      {POIs: map[string]float64{"food": 1, "shopping": 1, "nightlife": 1, "groceries": 1}},
		"Service":      {POIs: map[string]float64{"parking": 100}},
	}
}

// Catalogue is land-use generation table resolved against category set
type Catalogue struct {
	categories *CategorySet
	types      map[string]LandUseType
	quantities map[string]Counts
}

// NewCatalogue resolves generation table. Categories which are not in the set are dropped.
func NewCatalogue(categories *CategorySet, types map[string]LandUseType) *Catalogue {
	catalogue := &Catalogue{
		categories: categories,
		types:      make(map[string]LandUseType, len(types)),
		quantities: make(map[string]Counts, len(types)),
	}
	for name, lu := range types {
		catalogue.types[name] = lu
		quantities := categories.NewCounts()
		for poi, qty := range lu.POIs {
			category, ok := categories.Lookup(poi)
			if !ok {
				zap.L().Debug("land use generates POI out of category set", zap.String("land_use", name), zap.String("category", poi))
				continue
			}
			quantities[category] = qty
		}
		catalogue.quantities[name] = quantities
	}
	return catalogue
}

// LoadCatalogue reads YAML generation table:
//
//	types:
//	  Residential:
//	    pois: {housing: 200}
func LoadCatalogue(fname string, categories *CategorySet) (*Catalogue, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read land use catalogue")
	}
	var doc struct {
		Types map[string]LandUseType `yaml:"types"`
	}
	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse land use catalogue")
	}
	if len(doc.Types) == 0 {
		return nil, fmt.Errorf("Land use catalogue '%s' has no types", fname)
	}
	return NewCatalogue(categories, doc.Types), nil
}

// Categories returns category set quantities are indexed by
func (catalogue *Catalogue) Categories() *CategorySet {
	return catalogue.categories
}

// Quantities returns per-unit quantities for land use type
func (catalogue *Catalogue) Quantities(name string) (Counts, bool) {
	q, ok := catalogue.quantities[name]
	return q, ok
}

// Names returns sorted names of known land use types
func (catalogue *Catalogue) Names() []string {
	names := make([]string, 0, len(catalogue.types))
	for name := range catalogue.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types returns raw generation table
func (catalogue *Catalogue) Types() map[string]LandUseType {
	out := make(map[string]LandUseType, len(catalogue.types))
	for k, v := range catalogue.types {
		out[k] = v
	}
	return out
}

// Height is intensity of land use. In the feed it is either a number or a list ending in a number.
type Height float64

// UnmarshalJSON implements json.Unmarshaler
func (h *Height) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*h = 0
		return nil
	}
	if data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return errors.Wrap(err, "Can't parse height list")
		}
		if len(list) == 0 {
			*h = 0
			return nil
		}
		return h.UnmarshalJSON(list[len(list)-1])
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "Can't parse height")
	}
	*h = Height(v)
	return nil
}

// Intensity returns multiplier for per-unit quantities. Missing or non-positive height counts as single unit.
func (h Height) Intensity() float64 {
	if h <= 0 {
		return 1
	}
	return float64(h)
}

// Cell is land use configured for a grid cell
type Cell struct {
	Name   string `json:"name"`
	Height Height `json:"height"`
}

// Configuration is ordered list of cells: i-th entry describes i-th grid cell
type Configuration struct {
	Cells []Cell
}

// ParseConfiguration parses configuration feed: JSON array of {name, height}
func ParseConfiguration(data []byte) (*Configuration, error) {
	cells := []Cell{}
	err := json.Unmarshal(data, &cells)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse land use configuration")
	}
	return &Configuration{Cells: cells}, nil
}

// MarshalJSON implements json.Marshaler
func (cfg *Configuration) MarshalJSON() ([]byte, error) {
	if cfg.Cells == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(cfg.Cells)
}

// Hash returns digest of configuration content
func (cfg *Configuration) Hash() string {
	data, _ := cfg.MarshalJSON()
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
