package proximity

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DEFAULT_BUDGET is travel-time radius of isochrones (minutes)
const DEFAULT_BUDGET = 15.0

// Baseline is immutable result of build phase: accessibility of every sample and grid node before any
// land-use change plus affected-node index for every grid cell.
//
// Nothing mutates Baseline after BuildBaseline or LoadBaseline returns: updates work on copies.
type Baseline struct {
	Categories *CategorySet
	Scalers    Counts
	Budget     float64

	// SampleAccess[i] is accessibility of sample point i
	SampleAccess []Counts
	// GridAccess[i] is accessibility of grid cell i
	GridAccess []Counts

	// AffectedSamples[cell] are sample indices whose isochrone contains the cell
	AffectedSamples [][]int
	// AffectedGrid[cell] are cell indices whose isochrone contains the cell
	AffectedGrid [][]int

	// SampleLocations are output coordinates of sample points (lon/lat when projection is set)
	SampleLocations []orb.Point
}

// CellsNum returns number of grid cells covered by baseline
func (base *Baseline) CellsNum() int {
	return len(base.GridAccess)
}

// SamplesNum returns number of sample points covered by baseline
func (base *Baseline) SamplesNum() int {
	return len(base.SampleAccess)
}

// Validate checks internal consistency of baseline (useful after loading from disk)
func (base *Baseline) Validate() error {
	if base.Categories == nil {
		return fmt.Errorf("Baseline has no categories")
	}
	n := base.Categories.Len()
	if len(base.Scalers) != n {
		return fmt.Errorf("Baseline has %d scalers for %d categories", len(base.Scalers), n)
	}
	if len(base.SampleLocations) != len(base.SampleAccess) {
		return fmt.Errorf("Baseline has %d sample locations for %d samples", len(base.SampleLocations), len(base.SampleAccess))
	}
	if len(base.AffectedSamples) != len(base.GridAccess) || len(base.AffectedGrid) != len(base.GridAccess) {
		return fmt.Errorf("Affected-node index does not match %d grid cells", len(base.GridAccess))
	}
	for i, counts := range base.SampleAccess {
		if len(counts) != n {
			return fmt.Errorf("Sample %d has %d counts for %d categories", i, len(counts), n)
		}
	}
	for i, counts := range base.GridAccess {
		if len(counts) != n {
			return fmt.Errorf("Cell %d has %d counts for %d categories", i, len(counts), n)
		}
	}
	for cell := range base.AffectedSamples {
		for _, s := range base.AffectedSamples[cell] {
			if s < 0 || s >= len(base.SampleAccess) {
				return errors.Wrapf(ErrUnknownNode, "Cell %d affects sample %d", cell, s)
			}
		}
		for _, g := range base.AffectedGrid[cell] {
			if g < 0 || g >= len(base.GridAccess) {
				return errors.Wrapf(ErrUnknownNode, "Cell %d affects cell %d", cell, g)
			}
		}
	}
	return nil
}

// Matches checks that baseline was built for given categories, scalers and budget.
// A cached baseline that does not match must be rebuilt.
func (base *Baseline) Matches(categories *CategorySet, scalers Counts, budget float64) error {
	if !base.Categories.Equal(categories) {
		return errors.Wrapf(ErrCategoryMismatch, "Baseline categories %v, wanted %v", base.Categories.Names(), categories.Names())
	}
	if len(scalers) != len(base.Scalers) {
		return fmt.Errorf("Baseline has %d scalers, wanted %d", len(base.Scalers), len(scalers))
	}
	for i := range scalers {
		if scalers[i] != base.Scalers[i] {
			return fmt.Errorf("Scaler for '%s' is %f in baseline, wanted %f", categories.Name(Category(i)), base.Scalers[i], scalers[i])
		}
	}
	if budget != base.Budget {
		return fmt.Errorf("Baseline budget is %f, wanted %f", base.Budget, budget)
	}
	return nil
}

// BaselineOptions tunes build phase
type BaselineOptions struct {
	workers       int
	progressEvery int
	projection    orb.Projection
	metrics       *Metrics
}

// WithWorkers sets number of goroutines computing isochrones. Zero means GOMAXPROCS.
func WithWorkers(workers int) func(*BaselineOptions) {
	return func(opts *BaselineOptions) {
		opts.workers = workers
	}
}

// WithProgressEvery sets how often (in sources) build progress is logged
func WithProgressEvery(n int) func(*BaselineOptions) {
	return func(opts *BaselineOptions) {
		opts.progressEvery = n
	}
}

// WithOutputProjection sets projection applied to sample points for output (e.g. Mercator to WGS84)
func WithOutputProjection(projection orb.Projection) func(*BaselineOptions) {
	return func(opts *BaselineOptions) {
		opts.projection = projection
	}
}

// WithMetrics attaches metrics collector to build phase
func WithMetrics(metrics *Metrics) func(*BaselineOptions) {
	return func(opts *BaselineOptions) {
		opts.metrics = metrics
	}
}

// BuildBaseline runs forward isochrones from every sample and grid node to sum reachable POI
// and reverse isochrones from every grid node to build the affected-node index.
func BuildBaseline(ctx context.Context, net *Network, pois *POITable, scalers Counts, budget float64, options ...func(*BaselineOptions)) (*Baseline, error) {
	opts := BaselineOptions{
		progressEvery: 200,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.workers <= 0 {
		opts.workers = runtime.GOMAXPROCS(0)
	}
	categories := pois.Categories()
	if len(scalers) != categories.Len() {
		return nil, fmt.Errorf("Got %d scalers for %d categories", len(scalers), categories.Len())
	}
	if budget < 0 {
		return nil, fmt.Errorf("Budget must be non-negative, got %f", budget)
	}

	base := &Baseline{
		Categories:      categories,
		Scalers:         scalers.Clone(),
		Budget:          budget,
		SampleAccess:    make([]Counts, len(net.SampleNodes())),
		GridAccess:      make([]Counts, len(net.GridNodes())),
		AffectedSamples: make([][]int, len(net.GridNodes())),
		AffectedGrid:    make([][]int, len(net.GridNodes())),
		SampleLocations: make([]orb.Point, len(net.SampleNodes())),
	}
	for i, id := range net.SampleNodes() {
		pt := net.Node(id).Point
		if opts.projection != nil {
			pt = opts.projection(pt)
		}
		base.SampleLocations[i] = pt
	}

	st := time.Now()
	sources := make([]NodeID, 0, len(net.SampleNodes())+len(net.GridNodes()))
	sources = append(sources, net.SampleNodes()...)
	sources = append(sources, net.GridNodes()...)
	samplesNum := len(net.SampleNodes())
	err := forEachSource(ctx, net, sources, opts, "forward", func(ws *isochroneWorkspace, i int, source NodeID) {
		counts := categories.NewCounts()
		ws.run(net, source, budget, func(id NodeID, _ float64) {
			if reached := pois.Counts(id); reached != nil {
				counts.Add(reached)
			}
		})
		if i < samplesNum {
			base.SampleAccess[i] = counts
		} else {
			base.GridAccess[i-samplesNum] = counts
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't estimate baseline accessibility")
	}
	opts.metrics.ObserveBuildPhase("forward", time.Since(st))
	opts.metrics.AddIsochrones("forward", len(sources))

	st = time.Now()
	rev := net.Reverse()
	err = forEachSource(ctx, rev, net.GridNodes(), opts, "reverse", func(ws *isochroneWorkspace, cell int, source NodeID) {
		samples := make([]int, 0)
		cells := make([]int, 0)
		ws.run(rev, source, budget, func(id NodeID, _ float64) {
			node := rev.Node(id)
			switch node.Kind {
			case SAMPLE_NODE:
				samples = append(samples, node.Index)
			case GRID_NODE:
				cells = append(cells, node.Index)
			}
		})
		sort.Ints(samples)
		sort.Ints(cells)
		base.AffectedSamples[cell] = samples
		base.AffectedGrid[cell] = cells
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare affected-node index")
	}
	opts.metrics.ObserveBuildPhase("reverse", time.Since(st))
	opts.metrics.AddIsochrones("reverse", len(net.GridNodes()))

	return base, nil
}

// forEachSource calls fn for every source on a pool of workers. Each worker owns its Dijkstra workspace,
// fn must only write to the slot of its own source index.
func forEachSource(ctx context.Context, net *Network, sources []NodeID, opts BaselineOptions, mode string, fn func(ws *isochroneWorkspace, i int, source NodeID)) error {
	total := len(sources)
	if total == 0 {
		return nil
	}
	workers := opts.workers
	if workers > total {
		workers = total
	}
	zap.L().Info("computing isochrones",
		zap.String("mode", mode),
		zap.Int("sources", total),
		zap.Int("workers", workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var next, done atomic.Int64
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			ws := newIsochroneWorkspace(net.NodesNum())
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= total {
					return nil
				}
				fn(ws, i, sources[i])
				finished := done.Add(1)
				if opts.progressEvery > 0 && finished%int64(opts.progressEvery) == 0 {
					zap.L().Info("isochrones progress",
						zap.String("mode", mode),
						zap.Int64("done", finished),
						zap.Int("total", total),
					)
				}
			}
		})
	}
	return g.Wait()
}
