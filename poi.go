package proximity

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DEFAULT_AMENITY_THRESHOLD is max distance between amenity and its nearest real node
	DEFAULT_AMENITY_THRESHOLD = DEFAULT_GRID_SNAP_THRESHOLD
	// DEFAULT_ZONE_THRESHOLD is max distance for coarse zones (e.g. census tracts)
	DEFAULT_ZONE_THRESHOLD = 1000.0
	// DEFAULT_PARCEL_THRESHOLD is max distance for fine parcels
	DEFAULT_PARCEL_THRESHOLD = 500.0
)

// Amenity is single occurrence of POI
type Amenity struct {
	Category string
	Point    orb.Point
}

// Zone is areal source of POI (census tract, parcel) collapsed to representative point
type Zone struct {
	ID     string
	Point  orb.Point
	Values map[string]float64
}

// AssignmentReport summarizes single assignment pass
type AssignmentReport struct {
	Assigned int
	// Dropped is number of sources beyond threshold
	Dropped int
	// Ignored is number of sources (or zone attributes) with category out of configured set
	Ignored int
}

// POITable holds per-node category counts for real and grid nodes
type POITable struct {
	categories *CategorySet
	counts     []Counts
}

// NewPOITable returns zeroed table for every real and grid node of the network
func NewPOITable(net *Network, categories *CategorySet) *POITable {
	table := &POITable{
		categories: categories,
		counts:     make([]Counts, net.NodesNum()),
	}
	for i := 0; i < net.NodesNum(); i++ {
		if net.Node(NodeID(i)).HoldsPOI() {
			table.counts[i] = categories.NewCounts()
		}
	}
	return table
}

// Categories returns category set of the table
func (table *POITable) Categories() *CategorySet {
	return table.categories
}

// Counts returns counts of given node or nil if node does not hold POI
func (table *POITable) Counts(id NodeID) Counts {
	if id < 0 || int(id) >= len(table.counts) {
		return nil
	}
	return table.counts[id]
}

// Add increments count of node in category
func (table *POITable) Add(id NodeID, category Category, value float64) error {
	counts := table.Counts(id)
	if counts == nil {
		return errors.Wrapf(ErrUnknownNode, "Node %d can't hold POI", id)
	}
	counts[category] += value
	return nil
}

// AssignAmenities adds 1 to nearest real node for each amenity within threshold
func (table *POITable) AssignAmenities(index *SpatialIndex, amenities []Amenity, threshold float64) AssignmentReport {
	report := AssignmentReport{}
	for _, amenity := range amenities {
		category, ok := table.categories.Lookup(amenity.Category)
		if !ok {
			report.Ignored++
			continue
		}
		nearest, ok := index.Nearest(amenity.Point)
		if !ok || nearest.Distance > threshold {
			report.Dropped++
			continue
		}
		if err := table.Add(nearest.ID, category, 1); err != nil {
			report.Dropped++
			continue
		}
		report.Assigned++
	}
	zap.L().Debug("amenities assigned",
		zap.Int("assigned", report.Assigned),
		zap.Int("dropped", report.Dropped),
		zap.Int("ignored", report.Ignored),
	)
	return report
}

// AssignZones adds zone attribute values to nearest real node when it is closer than threshold
func (table *POITable) AssignZones(index *SpatialIndex, zones []Zone, threshold float64) AssignmentReport {
	report := AssignmentReport{}
	for _, zone := range zones {
		nearest, ok := index.Nearest(zone.Point)
		if !ok || !(nearest.Distance < threshold) {
			report.Dropped++
			continue
		}
		for name, value := range zone.Values {
			category, ok := table.categories.Lookup(name)
			if !ok {
				report.Ignored++
				continue
			}
			if err := table.Add(nearest.ID, category, value); err != nil {
				report.Dropped++
				continue
			}
		}
		report.Assigned++
	}
	zap.L().Debug("zones assigned",
		zap.Int("assigned", report.Assigned),
		zap.Int("dropped", report.Dropped),
		zap.Int("ignored", report.Ignored),
	)
	return report
}
