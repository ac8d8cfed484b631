package proximity

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignAmenitiesThreshold(t *testing.T) {
	toy := newToyScenario(t)
	parks, _ := toy.categories.Lookup("parks")
	pois := NewPOITable(toy.net, toy.categories)

	report := pois.AssignAmenities(toy.realIndex, []Amenity{
		{Category: "parks", Point: orb.Point{10, 50}},
		{Category: "parks", Point: orb.Point{2000, 2000}},
		{Category: "bars", Point: orb.Point{10, 0}},
	}, DEFAULT_AMENITY_THRESHOLD)
	assert.Equal(t, AssignmentReport{Assigned: 1, Dropped: 1, Ignored: 1}, report)

	r, ok := toy.net.RealNode("r")
	require.True(t, ok)
	total := 0.0
	for id := 0; id < toy.net.NodesNum(); id++ {
		if counts := pois.Counts(NodeID(id)); counts != nil {
			total += counts[parks]
		}
	}
	assert.Equal(t, 1.0, total)
	assert.Equal(t, 1.0, pois.Counts(r)[parks])
}

func TestAssignZones(t *testing.T) {
	toy := newToyScenario(t)
	housing, _ := toy.categories.Lookup("housing")
	pois := NewPOITable(toy.net, toy.categories)

	report := pois.AssignZones(toy.realIndex, []Zone{
		{ID: "near", Point: orb.Point{500, 0}, Values: map[string]float64{"housing": 120, "jobs": 3}},
		{ID: "edge", Point: orb.Point{1010, 0}, Values: map[string]float64{"housing": 7}},
		{ID: "far", Point: orb.Point{2600, 5000}, Values: map[string]float64{"housing": 1}},
	}, DEFAULT_ZONE_THRESHOLD)
	assert.Equal(t, AssignmentReport{Assigned: 1, Dropped: 2, Ignored: 1}, report)
	r, _ := toy.net.RealNode("r")
	assert.Equal(t, 120.0, pois.Counts(r)[housing])
}

func TestPOITableSamplesHoldNothing(t *testing.T) {
	toy := newToyScenario(t)
	s0, _ := toy.net.SampleNode(0)
	assert.Nil(t, toy.pois.Counts(s0))
	assert.ErrorIs(t, toy.pois.Add(s0, 0, 1), ErrUnknownNode)
	assert.Nil(t, toy.pois.Counts(NodeID(-1)))
	g0, _ := toy.net.GridNode(0)
	assert.NotNil(t, toy.pois.Counts(g0))
}
