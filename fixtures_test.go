package proximity

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

// toyScenario is 2x2 grid with cellSize=100 and speed=100 (one time unit per lattice hop),
// real node 'r' near cell 0 holding 5 parks, sample s0 next to cell 0 and isolated sample s1.
type toyScenario struct {
	net        *Network
	realIndex  *SpatialIndex
	categories *CategorySet
	pois       *POITable
	base       *Baseline
	catalogue  *Catalogue
}

func newToyScenario(t *testing.T) *toyScenario {
	t.Helper()
	categories, err := NewCategorySet("parks", "housing")
	require.NoError(t, err)

	grid := NewRegularGrid(orb.Point{0, 0}, 2, 2, 100)
	nodes := []RealNodeRecord{
		{ID: "r", Point: orb.Point{10, 0}},
		{ID: "far", Point: orb.Point{5000, 0}},
	}
	builder := NewNetworkBuilder(WithSpeed(100))
	net, realIndex, err := builder.Build(nodes, nil, grid)
	require.NoError(t, err)
	err = builder.AddSamplePoints(net, []orb.Point{{0, 5}, {1000, 1000}})
	require.NoError(t, err)

	pois := NewPOITable(net, categories)
	report := pois.AssignAmenities(realIndex, []Amenity{
		{Category: "parks", Point: orb.Point{10, 1}},
		{Category: "parks", Point: orb.Point{10, 1}},
		{Category: "parks", Point: orb.Point{11, 0}},
		{Category: "parks", Point: orb.Point{9, 0}},
		{Category: "parks", Point: orb.Point{10, -1}},
	}, DEFAULT_AMENITY_THRESHOLD)
	require.Equal(t, 5, report.Assigned)

	scalers, err := categories.ResolveScalers(map[string]float64{"parks": 10, "housing": 100})
	require.NoError(t, err)
	base, err := BuildBaseline(context.Background(), net, pois, scalers, 10, WithWorkers(2))
	require.NoError(t, err)

	catalogue := NewCatalogue(categories, map[string]LandUseType{
		"Park":        {POIs: map[string]float64{"parks": 2}},
		"Residential": {POIs: map[string]float64{"housing": 200}},
		"Shed":        {POIs: map[string]float64{"parks": 0.5}},
	})
	return &toyScenario{
		net:        net,
		realIndex:  realIndex,
		categories: categories,
		pois:       pois,
		base:       base,
		catalogue:  catalogue,
	}
}

// randomNetwork returns small network with every node kind and random directed edges
func randomNetwork(t *testing.T, seed uint64, realNum, gridNum, sampleNum, edgesNum int) *Network {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	net := NewNetwork()
	for i := 0; i < realNum; i++ {
		_, err := net.AddRealNode(string(rune('a'+i)), orb.Point{rng.Float64() * 100, rng.Float64() * 100})
		require.NoError(t, err)
	}
	for i := 0; i < gridNum; i++ {
		net.AddGridNode(orb.Point{rng.Float64() * 100, rng.Float64() * 100})
	}
	for i := 0; i < sampleNum; i++ {
		net.AddSampleNode(orb.Point{rng.Float64() * 100, rng.Float64() * 100})
	}
	n := net.NodesNum()
	for i := 0; i < edgesNum; i++ {
		source := NodeID(rng.IntN(n))
		target := NodeID(rng.IntN(n))
		if source == target {
			continue
		}
		require.NoError(t, net.AddEdge(source, target, float64(rng.IntN(6))))
	}
	return net
}

// bellmanFord returns exact shortest costs from source, +Inf for unreachable nodes
func bellmanFord(net *Network, source NodeID) []float64 {
	dist := make([]float64, net.NodesNum())
	for i := range dist {
		dist[i] = inf
	}
	dist[source] = 0
	for iter := 0; iter < net.NodesNum(); iter++ {
		changed := false
		for i := 0; i < net.NodesNum(); i++ {
			if dist[i] == inf {
				continue
			}
			for _, e := range net.Outgoing(NodeID(i)) {
				if dist[i]+e.Weight < dist[e.Target] {
					dist[e.Target] = dist[i] + e.Weight
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return dist
}
