package proximity

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"
)

// IndexItem is a point stored in SpatialIndex
type IndexItem struct {
	ID       NodeID
	Location orb.Point
}

// Point implements orb.Pointer
func (item IndexItem) Point() orb.Point {
	return item.Location
}

// Neighbour is a result of nearest neighbour query
type Neighbour struct {
	ID       NodeID
	Distance float64
}

// SpatialIndex is static nearest neighbour structure over planar points. There is no mutation: rebuild it when node set changes.
type SpatialIndex struct {
	tree *quadtree.Quadtree
	size int
}

// NewSpatialIndex builds index for given items
func NewSpatialIndex(items []IndexItem) (*SpatialIndex, error) {
	idx := &SpatialIndex{size: len(items)}
	if len(items) == 0 {
		return idx, nil
	}
	bound := orb.Bound{Min: items[0].Location, Max: items[0].Location}
	for _, item := range items[1:] {
		bound = bound.Extend(item.Location)
	}
	// Degenerated bounds (single point, points on a line) are not handled well by quadtree
	bound = bound.Pad(1)
	idx.tree = quadtree.New(bound)
	for _, item := range items {
		err := idx.tree.Add(item)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't index node %d", item.ID)
		}
	}
	return idx, nil
}

// NetworkIndex builds index over network nodes of given kinds
func NetworkIndex(net *Network, kinds ...NodeKind) (*SpatialIndex, error) {
	wanted := make(map[NodeKind]struct{}, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = struct{}{}
	}
	items := make([]IndexItem, 0, net.NodesNum())
	for i := 0; i < net.NodesNum(); i++ {
		node := net.Node(NodeID(i))
		if _, ok := wanted[node.Kind]; !ok {
			continue
		}
		items = append(items, IndexItem{ID: node.ID, Location: node.Point})
	}
	return NewSpatialIndex(items)
}

// Len returns number of indexed points
func (idx *SpatialIndex) Len() int {
	return idx.size
}

// KNearest returns up to k nearest items sorted by ascending distance. Ties are ordered by ID.
func (idx *SpatialIndex) KNearest(pt orb.Point, k int) []Neighbour {
	if idx.tree == nil || k <= 0 {
		return nil
	}
	found := idx.tree.KNearest(make([]orb.Pointer, 0, k), pt, k)
	result := make([]Neighbour, 0, len(found))
	for _, p := range found {
		item := p.(IndexItem)
		result = append(result, Neighbour{ID: item.ID, Distance: planar.Distance(pt, item.Location)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Distance == result[j].Distance {
			return result[i].ID < result[j].ID
		}
		return result[i].Distance < result[j].Distance
	})
	return result
}

// Nearest returns single nearest item
func (idx *SpatialIndex) Nearest(pt orb.Point) (Neighbour, bool) {
	found := idx.KNearest(pt, 1)
	if len(found) == 0 {
		return Neighbour{}, false
	}
	return found[0], true
}
