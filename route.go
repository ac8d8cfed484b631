package proximity

import (
	"math"
	"time"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Router answers point-to-point travel time queries over combined network with contraction hierarchies.
// Vertex labels of the hierarchy are NodeID values.
type Router struct {
	net   *Network
	graph *ch.Graph
}

// NewRouter prepares contraction hierarchies for network
func NewRouter(net *Network) (*Router, error) {
	graph := ch.Graph{}
	for i := 0; i < net.NodesNum(); i++ {
		err := graph.CreateVertex(int64(i))
		if err != nil {
			return nil, errors.Wrap(err, "Can't create vertex")
		}
	}
	for i := 0; i < net.NodesNum(); i++ {
		for _, e := range net.Outgoing(NodeID(i)) {
			err := graph.AddEdge(int64(e.Source), int64(e.Target), e.Weight)
			if err != nil {
				return nil, errors.Wrap(err, "Can't add edge")
			}
		}
	}
	st := time.Now()
	graph.PrepareContractionHierarchies()
	zap.L().Info("contraction hierarchies prepared",
		zap.Int("nodes", net.NodesNum()),
		zap.Int("edges", net.EdgesNum()),
		zap.Duration("took", time.Since(st)),
	)
	return &Router{net: net, graph: &graph}, nil
}

// TravelTime returns shortest travel time and path between nodes. Unreachable target gives +Inf and nil path.
func (router *Router) TravelTime(from, to NodeID) (float64, []NodeID, error) {
	if !router.net.contains(from) {
		return 0, nil, errors.Wrapf(ErrUnknownNode, "Source %d", from)
	}
	if !router.net.contains(to) {
		return 0, nil, errors.Wrapf(ErrUnknownNode, "Target %d", to)
	}
	if from == to {
		return 0, []NodeID{from}, nil
	}
	cost, path := router.graph.ShortestPath(int64(from), int64(to))
	if cost < 0 || len(path) == 0 {
		return math.Inf(1), nil, nil
	}
	out := make([]NodeID, len(path))
	for i, v := range path {
		out[i] = NodeID(v)
	}
	return cost, out, nil
}
