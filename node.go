package proximity

import (
	"fmt"

	"github.com/paulmach/orb"
)

// NodeID is dense index of node in Network
type NodeID int32

type NodeKind uint8

const (
	REAL_NODE = NodeKind(iota + 1)
	GRID_NODE
	SAMPLE_NODE
)

func (iotaIdx NodeKind) String() string {
	return [...]string{"real", "grid", "sample"}[iotaIdx-1]
}

// Node is a vertex of combined network.
//
// Label is external network ID for real nodes, 'g<i>' for grid cells and 's<i>' for sample points.
// Index is position of node among nodes of the same kind (cell index, sample index, row of real nodes table)
type Node struct {
	ID    NodeID
	Kind  NodeKind
	Label string
	Index int
	Point orb.Point
}

// HoldsPOI reports whether node could carry POI counts. Sample nodes never do.
func (node Node) HoldsPOI() bool {
	return node.Kind == REAL_NODE || node.Kind == GRID_NODE
}

func gridLabel(cell int) string {
	return fmt.Sprintf("g%d", cell)
}

func sampleLabel(sample int) string {
	return fmt.Sprintf("s%d", sample)
}
