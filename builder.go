package proximity

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DEFAULT_SPEED is walking speed for synthetic links: 2 km/h in meters per minute
	DEFAULT_SPEED = 2 * 1000.0 / 60.0
	// DEFAULT_GRID_SNAP_THRESHOLD is max distance between cell centroid and real node to link them
	DEFAULT_GRID_SNAP_THRESHOLD = 100.0
	// DEFAULT_SAMPLE_SNAP_THRESHOLD is max distance between sample point and network node to link them
	DEFAULT_SAMPLE_SNAP_THRESHOLD = 30.0
	// DEFAULT_SAMPLE_SNAP_K is number of nearest network nodes considered for each sample point
	DEFAULT_SAMPLE_SNAP_K = 5
)

// RealNodeRecord is a row of real network nodes table
type RealNodeRecord struct {
	ID    string
	Point orb.Point
}

// RealEdgeRecord is a row of real network edges table
type RealEdgeRecord struct {
	From   string
	To     string
	Weight float64
}

// NetworkBuilder combines real network, interactive grid lattice and sample points into single Network
type NetworkBuilder struct {
	speed               float64
	gridSnapThreshold   float64
	sampleSnapThreshold float64
	sampleSnapK         int
}

func (builder *NetworkBuilder) String() string {
	return fmt.Sprintf(`
Network builder parameters:
	speed: %f
	grid_snap_threshold: %f
	sample_snap_threshold: %f
	sample_snap_k: %d
	`,
		builder.speed,
		builder.gridSnapThreshold,
		builder.sampleSnapThreshold,
		builder.sampleSnapK,
	)
}

// NewNetworkBuilder returns builder with defaults applied before options
func NewNetworkBuilder(options ...func(*NetworkBuilder)) *NetworkBuilder {
	builder := &NetworkBuilder{
		speed:               DEFAULT_SPEED,
		gridSnapThreshold:   DEFAULT_GRID_SNAP_THRESHOLD,
		sampleSnapThreshold: DEFAULT_SAMPLE_SNAP_THRESHOLD,
		sampleSnapK:         DEFAULT_SAMPLE_SNAP_K,
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

func WithSpeed(speed float64) func(*NetworkBuilder) {
	return func(builder *NetworkBuilder) {
		builder.speed = speed
	}
}

func WithGridSnapThreshold(threshold float64) func(*NetworkBuilder) {
	return func(builder *NetworkBuilder) {
		builder.gridSnapThreshold = threshold
	}
}

func WithSampleSnap(k int, threshold float64) func(*NetworkBuilder) {
	return func(builder *NetworkBuilder) {
		builder.sampleSnapK = k
		builder.sampleSnapThreshold = threshold
	}
}

// Build creates network from real nodes and edges plus grid cells.
//
// Returned SpatialIndex holds real nodes only: it is the one to use for POI assignment.
func (builder *NetworkBuilder) Build(nodes []RealNodeRecord, edges []RealEdgeRecord, grid *Grid) (*Network, *SpatialIndex, error) {
	if !(builder.speed > 0) {
		return nil, nil, fmt.Errorf("Speed must be positive, got %f", builder.speed)
	}
	err := grid.Validate()
	if err != nil {
		return nil, nil, errors.Wrap(err, "Bad grid")
	}

	net := NewNetwork()
	for _, record := range nodes {
		_, err := net.AddRealNode(record.ID, record.Point)
		if err != nil {
			return nil, nil, err
		}
	}
	for _, record := range edges {
		source, ok := net.RealNode(record.From)
		if !ok {
			return nil, nil, errors.Wrapf(ErrUnknownNode, "Edge source '%s'", record.From)
		}
		target, ok := net.RealNode(record.To)
		if !ok {
			return nil, nil, errors.Wrapf(ErrUnknownNode, "Edge target '%s'", record.To)
		}
		err := net.AddEdge(source, target, record.Weight)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't add real edge")
		}
	}

	realIndex, err := NetworkIndex(net, REAL_NODE)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't index real nodes")
	}

	for _, cell := range grid.Cells {
		net.AddGridNode(cell.Centroid)
	}
	linked, err := builder.linkGrid(net, grid, realIndex)
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("network built",
		zap.Int("real_nodes", len(nodes)),
		zap.Int("real_edges", len(edges)),
		zap.Int("grid_cells", grid.CellsNum()),
		zap.Int("grid_links_to_real", linked),
		zap.Int("edges", net.EdgesNum()),
	)
	return net, realIndex, nil
}

// linkGrid adds lattice edges and grid-to-real snap edges for interactive cells
func (builder *NetworkBuilder) linkGrid(net *Network, grid *Grid, realIndex *SpatialIndex) (int, error) {
	rows, cols := grid.Header.Rows, grid.Header.Cols
	latticeWeight := grid.Header.CellSize / builder.speed
	linked := 0
	for _, cell := range grid.Cells {
		if !cell.Interactive {
			continue
		}
		r, c := grid.RowCol(cell.Index)
		from := net.gridNodes[cell.Index]

		nearest, ok := realIndex.Nearest(cell.Centroid)
		if ok && nearest.Distance < builder.gridSnapThreshold {
			err := net.addBidirectional(from, nearest.ID, nearest.Distance/builder.speed)
			if err != nil {
				return linked, errors.Wrap(err, "Can't link cell to real network")
			}
			linked++
		}
		if c != cols-1 {
			err := net.addBidirectional(from, net.gridNodes[r*cols+c+1], latticeWeight)
			if err != nil {
				return linked, errors.Wrap(err, "Can't add horizontal lattice link")
			}
		}
		if r != rows-1 {
			err := net.addBidirectional(from, net.gridNodes[(r+1)*cols+c], latticeWeight)
			if err != nil {
				return linked, errors.Wrap(err, "Can't add vertical lattice link")
			}
		}
	}
	return linked, nil
}

// AddSamplePoints injects sample nodes. Every sample gets directed links to its k nearest real or grid nodes within threshold.
func (builder *NetworkBuilder) AddSamplePoints(net *Network, points []orb.Point) error {
	if len(net.SampleNodes()) != 0 {
		return fmt.Errorf("Network already has %d sample nodes", len(net.SampleNodes()))
	}
	index, err := NetworkIndex(net, REAL_NODE, GRID_NODE)
	if err != nil {
		return errors.Wrap(err, "Can't index network nodes")
	}
	isolated := 0
	for _, pt := range points {
		sample := net.AddSampleNode(pt)
		linked := false
		for _, candidate := range index.KNearest(pt, builder.sampleSnapK) {
			if candidate.Distance >= builder.sampleSnapThreshold {
				continue
			}
			err := net.AddEdge(sample, candidate.ID, candidate.Distance/builder.speed)
			if err != nil {
				return errors.Wrap(err, "Can't link sample point")
			}
			linked = true
		}
		if !linked {
			isolated++
		}
	}
	zap.L().Info("sample points added",
		zap.Int("samples", len(points)),
		zap.Int("isolated_samples", isolated),
	)
	return nil
}
