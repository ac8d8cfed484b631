package proximity

import (
	"container/heap"
	"math"
)

// Isochrone returns every node reachable from source via directed edges with cumulative weight <= budget.
// Source itself is included when budget is non-negative.
func Isochrone(net *Network, source NodeID, budget float64) []NodeID {
	ws := newIsochroneWorkspace(net.NodesNum())
	result := make([]NodeID, 0)
	ws.run(net, source, budget, func(id NodeID, _ float64) {
		result = append(result, id)
	})
	return result
}

// IsochroneCosts is the same as Isochrone but also returns shortest travel cost for every reached node
func IsochroneCosts(net *Network, source NodeID, budget float64) map[NodeID]float64 {
	ws := newIsochroneWorkspace(net.NodesNum())
	result := make(map[NodeID]float64)
	ws.run(net, source, budget, func(id NodeID, cost float64) {
		result[id] = cost
	})
	return result
}

// isochroneWorkspace holds Dijkstra state. It is reused across searches by single goroutine.
// Costs are kept in ticks (see TICKS_PER_UNIT).
type isochroneWorkspace struct {
	cost    []int64
	done    []bool
	touched []NodeID
	queue   costQueue
}

func newIsochroneWorkspace(n int) *isochroneWorkspace {
	ws := &isochroneWorkspace{
		cost:    make([]int64, n),
		done:    make([]bool, n),
		touched: make([]NodeID, 0),
		queue:   make(costQueue, 0),
	}
	for i := range ws.cost {
		ws.cost[i] = math.MaxInt64
	}
	return ws
}

func (ws *isochroneWorkspace) reset() {
	for _, id := range ws.touched {
		ws.cost[id] = math.MaxInt64
		ws.done[id] = false
	}
	ws.touched = ws.touched[:0]
	ws.queue = ws.queue[:0]
}

// run is bounded Dijkstra: visit is called once per finalized node in ascending cost order.
// Expansion stops as soon as the cheapest frontier entry exceeds budget.
func (ws *isochroneWorkspace) run(net *Network, source NodeID, budget float64, visit func(NodeID, float64)) {
	defer ws.reset()
	if !net.contains(source) || budget < 0 || math.IsNaN(budget) {
		return
	}
	limit := budgetTicks(budget)
	ws.cost[source] = 0
	ws.touched = append(ws.touched, source)
	heap.Push(&ws.queue, &pqItem{node: source, cost: 0})
	for ws.queue.Len() > 0 {
		item := heap.Pop(&ws.queue).(*pqItem)
		if item.cost > limit {
			break
		}
		if ws.done[item.node] || item.cost > ws.cost[item.node] {
			continue
		}
		ws.done[item.node] = true
		visit(item.node, fromTicks(item.cost))
		for _, e := range net.outgoing[item.node] {
			if ws.done[e.Target] {
				continue
			}
			// Same as item.cost+e.ticks > limit without overflow
			if e.ticks > limit-item.cost {
				continue
			}
			tentative := item.cost + e.ticks
			if tentative >= ws.cost[e.Target] {
				continue
			}
			if ws.cost[e.Target] == math.MaxInt64 {
				ws.touched = append(ws.touched, e.Target)
			}
			ws.cost[e.Target] = tentative
			heap.Push(&ws.queue, &pqItem{node: e.Target, cost: tentative})
		}
	}
}

type pqItem struct {
	node NodeID
	cost int64
}

type costQueue []*pqItem

func (pq costQueue) Len() int           { return len(pq) }
func (pq costQueue) Less(i, j int) bool { return pq[i].cost < pq[j].cost }
func (pq costQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *costQueue) Push(x interface{}) {
	item := x.(*pqItem)
	*pq = append(*pq, item)
}

func (pq *costQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[0 : n-1]
	return item
}
