package proximity

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// baselineFile is on-disk layout of Baseline. Node indices are stringified keys.
type baselineFile struct {
	AllPOITypes         []string                      `json:"all_poi_types"`
	Scalers             map[string]float64            `json:"scalers"`
	Radius              float64                       `json:"radius"`
	SampleNodesAccBase  map[string]map[string]float64 `json:"sample_nodes_acc_base"`
	GridNodesAccBase    map[string]map[string]float64 `json:"grid_nodes_acc_base"`
	AffectedSampleNodes map[string][]int              `json:"affected_sample_nodes"`
	AffectedGridNodes   map[string][]int              `json:"affected_grid_nodes"`
	SampleLons          []float64                     `json:"sample_lons"`
	SampleLats          []float64                     `json:"sample_lats"`
}

// SaveBaseline writes baseline to JSON file. File is replaced atomically: a failed save keeps previous cache.
func SaveBaseline(base *Baseline, fname string) error {
	categories := base.Categories
	doc := baselineFile{
		AllPOITypes:         categories.Names(),
		Scalers:             categories.ToMap(base.Scalers),
		Radius:              base.Budget,
		SampleNodesAccBase:  make(map[string]map[string]float64, len(base.SampleAccess)),
		GridNodesAccBase:    make(map[string]map[string]float64, len(base.GridAccess)),
		AffectedSampleNodes: make(map[string][]int, len(base.AffectedSamples)),
		AffectedGridNodes:   make(map[string][]int, len(base.AffectedGrid)),
		SampleLons:          make([]float64, len(base.SampleLocations)),
		SampleLats:          make([]float64, len(base.SampleLocations)),
	}
	for i, counts := range base.SampleAccess {
		doc.SampleNodesAccBase[strconv.Itoa(i)] = categories.ToMap(counts)
	}
	for i, counts := range base.GridAccess {
		doc.GridNodesAccBase[strconv.Itoa(i)] = categories.ToMap(counts)
	}
	for i := range base.AffectedSamples {
		doc.AffectedSampleNodes[strconv.Itoa(i)] = base.AffectedSamples[i]
		doc.AffectedGridNodes[strconv.Itoa(i)] = base.AffectedGrid[i]
	}
	for i, pt := range base.SampleLocations {
		doc.SampleLons[i] = pt.Lon()
		doc.SampleLats[i] = pt.Lat()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "Can't encode baseline")
	}
	err = writeFileAtomic(fname, data)
	if err != nil {
		return errors.Wrap(err, "Can't write baseline file")
	}
	return nil
}

// LoadBaseline reads baseline previously written by SaveBaseline
func LoadBaseline(fname string) (*Baseline, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open baseline file")
	}
	defer file.Close()

	doc := baselineFile{}
	err = json.NewDecoder(file).Decode(&doc)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode baseline")
	}

	categories, err := NewCategorySet(doc.AllPOITypes...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't restore categories")
	}
	scalers, err := categories.ResolveScalers(doc.Scalers)
	if err != nil {
		return nil, errors.Wrap(err, "Can't restore scalers")
	}
	if len(doc.SampleLons) != len(doc.SampleLats) {
		return nil, fmt.Errorf("Got %d sample longitudes and %d latitudes", len(doc.SampleLons), len(doc.SampleLats))
	}

	base := &Baseline{
		Categories:      categories,
		Scalers:         scalers,
		Budget:          doc.Radius,
		SampleLocations: make([]orb.Point, len(doc.SampleLons)),
	}
	for i := range doc.SampleLons {
		base.SampleLocations[i] = orb.Point{doc.SampleLons[i], doc.SampleLats[i]}
	}
	base.SampleAccess, err = decodeAccess(categories, doc.SampleNodesAccBase)
	if err != nil {
		return nil, errors.Wrap(err, "Can't restore sample accessibility")
	}
	base.GridAccess, err = decodeAccess(categories, doc.GridNodesAccBase)
	if err != nil {
		return nil, errors.Wrap(err, "Can't restore grid accessibility")
	}
	base.AffectedSamples, err = decodeAffected(doc.AffectedSampleNodes, len(base.GridAccess))
	if err != nil {
		return nil, errors.Wrap(err, "Can't restore affected samples")
	}
	base.AffectedGrid, err = decodeAffected(doc.AffectedGridNodes, len(base.GridAccess))
	if err != nil {
		return nil, errors.Wrap(err, "Can't restore affected grid nodes")
	}
	if err = base.Validate(); err != nil {
		return nil, errors.Wrap(err, "Inconsistent baseline")
	}
	return base, nil
}

func decodeAccess(categories *CategorySet, raw map[string]map[string]float64) ([]Counts, error) {
	out := make([]Counts, len(raw))
	for key, values := range raw {
		idx, err := parseIndexKey(key, len(raw))
		if err != nil {
			return nil, err
		}
		out[idx], err = categories.FromMap(values)
		if err != nil {
			return nil, errors.Wrapf(err, "Node %d", idx)
		}
	}
	return out, nil
}

func decodeAffected(raw map[string][]int, cellsNum int) ([][]int, error) {
	if len(raw) != cellsNum {
		return nil, fmt.Errorf("Got %d entries for %d cells", len(raw), cellsNum)
	}
	out := make([][]int, cellsNum)
	for key, list := range raw {
		idx, err := parseIndexKey(key, cellsNum)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []int{}
		}
		out[idx] = list
	}
	return out, nil
}

func parseIndexKey(key string, size int) (int, error) {
	idx, err := strconv.Atoi(key)
	if err != nil {
		return 0, errors.Wrapf(err, "Bad node key '%s'", key)
	}
	if idx < 0 || idx >= size {
		return 0, errors.Wrapf(ErrUnknownNode, "Node key %d out of [0, %d)", idx, size)
	}
	return idx, nil
}
