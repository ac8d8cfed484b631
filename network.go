package proximity

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// Network is directed weighted graph holding real, grid and sample nodes together
type Network struct {
	nodes    []Node
	outgoing [][]Edge
	edgesNum int

	realByLabel map[string]NodeID
	realNodes   []NodeID
	gridNodes   []NodeID
	sampleNodes []NodeID
}

// NewNetwork returns empty network
func NewNetwork() *Network {
	return &Network{
		nodes:       make([]Node, 0),
		outgoing:    make([][]Edge, 0),
		realByLabel: make(map[string]NodeID),
		realNodes:   make([]NodeID, 0),
		gridNodes:   make([]NodeID, 0),
		sampleNodes: make([]NodeID, 0),
	}
}

func (net *Network) addNode(kind NodeKind, label string, index int, pt orb.Point) NodeID {
	id := NodeID(len(net.nodes))
	net.nodes = append(net.nodes, Node{
		ID:    id,
		Kind:  kind,
		Label: label,
		Index: index,
		Point: pt,
	})
	net.outgoing = append(net.outgoing, nil)
	return id
}

// AddRealNode adds node of real transportation network
func (net *Network) AddRealNode(label string, pt orb.Point) (NodeID, error) {
	if _, ok := net.realByLabel[label]; ok {
		return -1, fmt.Errorf("Duplicated real node '%s'", label)
	}
	id := net.addNode(REAL_NODE, label, len(net.realNodes), pt)
	net.realByLabel[label] = id
	net.realNodes = append(net.realNodes, id)
	return id, nil
}

// AddGridNode adds node for next grid cell. Cells must be added in index order.
func (net *Network) AddGridNode(pt orb.Point) NodeID {
	cell := len(net.gridNodes)
	id := net.addNode(GRID_NODE, gridLabel(cell), cell, pt)
	net.gridNodes = append(net.gridNodes, id)
	return id
}

// AddSampleNode adds node for next sample point
func (net *Network) AddSampleNode(pt orb.Point) NodeID {
	sample := len(net.sampleNodes)
	id := net.addNode(SAMPLE_NODE, sampleLabel(sample), sample, pt)
	net.sampleNodes = append(net.sampleNodes, id)
	return id
}

// AddEdge adds directed edge. Weight must be non-negative and not greater than MAX_EDGE_WEIGHT.
func (net *Network) AddEdge(source, target NodeID, weight float64) error {
	if !net.contains(source) {
		return errors.Wrapf(ErrUnknownNode, "Source %d", source)
	}
	if !net.contains(target) {
		return errors.Wrapf(ErrUnknownNode, "Target %d", target)
	}
	if weight < 0 || math.IsNaN(weight) || weight > MAX_EDGE_WEIGHT {
		return fmt.Errorf("Bad weight %f for edge %d->%d", weight, source, target)
	}
	net.outgoing[source] = append(net.outgoing[source], Edge{Source: source, Target: target, Weight: weight, ticks: toTicks(weight)})
	net.edgesNum++
	return nil
}

func (net *Network) addBidirectional(a, b NodeID, weight float64) error {
	if err := net.AddEdge(a, b, weight); err != nil {
		return err
	}
	return net.AddEdge(b, a, weight)
}

func (net *Network) contains(id NodeID) bool {
	return id >= 0 && int(id) < len(net.nodes)
}

// Node returns node by its ID
func (net *Network) Node(id NodeID) Node {
	return net.nodes[id]
}

// NodesNum returns number of nodes
func (net *Network) NodesNum() int {
	return len(net.nodes)
}

// EdgesNum returns number of directed edges
func (net *Network) EdgesNum() int {
	return net.edgesNum
}

// Outgoing returns edges leaving given node. Returned slice must not be modified.
func (net *Network) Outgoing(id NodeID) []Edge {
	return net.outgoing[id]
}

// RealNode returns real node by external label
func (net *Network) RealNode(label string) (NodeID, bool) {
	id, ok := net.realByLabel[label]
	return id, ok
}

// Resolve returns node by its label: external ID of real node, 'g<i>' for grid cell or 's<i>' for sample point.
// Real node labels take precedence.
func (net *Network) Resolve(label string) (NodeID, bool) {
	if id, ok := net.realByLabel[label]; ok {
		return id, true
	}
	if len(label) < 2 {
		return -1, false
	}
	idx, err := strconv.Atoi(label[1:])
	if err != nil {
		return -1, false
	}
	switch label[0] {
	case 'g':
		return net.GridNode(idx)
	case 's':
		return net.SampleNode(idx)
	}
	return -1, false
}

// GridNode returns node of given cell
func (net *Network) GridNode(cell int) (NodeID, bool) {
	if cell < 0 || cell >= len(net.gridNodes) {
		return -1, false
	}
	return net.gridNodes[cell], true
}

// SampleNode returns node of given sample point
func (net *Network) SampleNode(sample int) (NodeID, bool) {
	if sample < 0 || sample >= len(net.sampleNodes) {
		return -1, false
	}
	return net.sampleNodes[sample], true
}

// RealNodes returns real nodes IDs. Returned slice must not be modified.
func (net *Network) RealNodes() []NodeID {
	return net.realNodes
}

// GridNodes returns grid nodes IDs ordered by cell index. Returned slice must not be modified.
func (net *Network) GridNodes() []NodeID {
	return net.gridNodes
}

// SampleNodes returns sample nodes IDs ordered by sample index. Returned slice must not be modified.
func (net *Network) SampleNodes() []NodeID {
	return net.sampleNodes
}

// Reverse returns copy of network with every edge flipped
func (net *Network) Reverse() *Network {
	rev := &Network{
		nodes:       net.nodes,
		outgoing:    make([][]Edge, len(net.outgoing)),
		edgesNum:    net.edgesNum,
		realByLabel: net.realByLabel,
		realNodes:   net.realNodes,
		gridNodes:   net.gridNodes,
		sampleNodes: net.sampleNodes,
	}
	for _, edges := range net.outgoing {
		for _, e := range edges {
			rev.outgoing[e.Target] = append(rev.outgoing[e.Target], Edge{Source: e.Target, Target: e.Source, Weight: e.Weight, ticks: e.ticks})
		}
	}
	return rev
}

// ExportToCSV writes nodes and edges of the network. For 'net.csv' files 'net_nodes.csv' and 'net_edges.csv' are produced.
func (net *Network) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameNodes := fnameParts[0] + "_nodes.csv"
	fnameEdges := fnameParts[0] + "_edges.csv"

	err := net.exportNodesToCSV(fnameNodes)
	if err != nil {
		return errors.Wrap(err, "Can't export nodes")
	}
	err = net.exportEdgesToCSV(fnameEdges)
	if err != nil {
		return errors.Wrap(err, "Can't export edges")
	}
	return nil
}

func (net *Network) exportNodesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "label", "kind", "kind_index", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, node := range net.nodes {
		err = writer.Write([]string{
			fmt.Sprintf("%d", node.ID),
			node.Label,
			node.Kind.String(),
			fmt.Sprintf("%d", node.Index),
			wkt.MarshalString(node.Point),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write node")
		}
	}
	return nil
}

func (net *Network) exportEdgesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"source", "target", "source_label", "target_label", "weight", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, edges := range net.outgoing {
		for _, e := range edges {
			source := net.nodes[e.Source]
			target := net.nodes[e.Target]
			err = writer.Write([]string{
				fmt.Sprintf("%d", e.Source),
				fmt.Sprintf("%d", e.Target),
				source.Label,
				target.Label,
				fmt.Sprintf("%f", e.Weight),
				wkt.MarshalString(orb.LineString{source.Point, target.Point}),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write edge")
			}
		}
	}
	return nil
}
