package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LdDl/proximity"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// engine is everything built from configuration before updates start
type engine struct {
	net        *proximity.Network
	base       *proximity.Baseline
	catalogue  *proximity.Catalogue
	categories *proximity.CategorySet
}

// prepareNetwork loads network, grid and sample points
func prepareNetwork(cfg *Config) (*proximity.Network, *proximity.SpatialIndex, proximity.Projection, error) {
	projection, err := proximity.ParseProjection(cfg.Network.Projection)
	if err != nil {
		return nil, nil, projection, err
	}
	nodes, err := proximity.LoadNodesCSV(cfg.Network.Nodes, cfg.Network.Columns, projection)
	if err != nil {
		return nil, nil, projection, errors.Wrap(err, "Can't load nodes")
	}
	edges, err := proximity.LoadEdgesCSV(cfg.Network.Edges, cfg.Network.Columns)
	if err != nil {
		return nil, nil, projection, errors.Wrap(err, "Can't load edges")
	}
	grid, err := proximity.LoadGridGeoJSON(cfg.Grid.File, projection)
	if err != nil {
		return nil, nil, projection, errors.Wrap(err, "Can't load grid")
	}

	builder := proximity.NewNetworkBuilder(
		proximity.WithSpeed(cfg.Network.Speed),
		proximity.WithGridSnapThreshold(cfg.Network.GridSnapThreshold),
		proximity.WithSampleSnap(cfg.Network.SampleSnapK, cfg.Network.SampleSnapThreshold),
	)
	zap.L().Debug(builder.String())
	net, realIndex, err := builder.Build(nodes, edges, grid)
	if err != nil {
		return nil, nil, projection, errors.Wrap(err, "Can't build network")
	}
	if cfg.Sampling.Stride > 0 {
		points, err := cfg.Sampling.Points(grid)
		if err != nil {
			return nil, nil, projection, errors.Wrap(err, "Can't prepare sample points")
		}
		err = builder.AddSamplePoints(net, points)
		if err != nil {
			return nil, nil, projection, errors.Wrap(err, "Can't add sample points")
		}
	}
	return net, realIndex, projection, nil
}

// assignPOIs fills POI table from OSM amenities and zonal sources
func assignPOIs(ctx context.Context, cfg *Config, net *proximity.Network, realIndex *proximity.SpatialIndex, categories *proximity.CategorySet, projection proximity.Projection) (*proximity.POITable, error) {
	pois := proximity.NewPOITable(net, categories)
	if cfg.POIs.OSM.File != "" {
		tags, err := proximity.ParseAmenityTags(cfg.POIs.OSM.Tags)
		if err != nil {
			return nil, err
		}
		amenities, err := proximity.LoadAmenitiesOSM(ctx, cfg.POIs.OSM.File, tags, projection)
		if err != nil {
			return nil, errors.Wrap(err, "Can't load amenities")
		}
		report := pois.AssignAmenities(realIndex, amenities, cfg.POIs.AmenityThreshold)
		zap.L().Info("amenities assigned", zap.Int("assigned", report.Assigned), zap.Int("dropped", report.Dropped), zap.Int("ignored", report.Ignored))
	}
	for _, zc := range cfg.POIs.Zones {
		var zones []proximity.Zone
		var err error
		switch strings.ToLower(zc.Format) {
		case "geojson":
			zones, err = proximity.LoadZonesGeoJSON(zc.File, zc.ID, zc.Attributes, projection)
		case "shapefile", "shp":
			zones, err = proximity.LoadZonesShapefile(zc.File, zc.ID, zc.Attributes, projection)
		default:
			err = fmt.Errorf("Unknown zones format '%s'", zc.Format)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Can't load zones '%s'", zc.File)
		}
		report := pois.AssignZones(realIndex, zones, zc.Threshold)
		zap.L().Info("zones assigned", zap.String("file", zc.File), zap.Int("assigned", report.Assigned), zap.Int("dropped", report.Dropped), zap.Int("ignored", report.Ignored))
	}
	return pois, nil
}

// prepareEngine builds (or loads from cache) everything needed for updates
func prepareEngine(ctx context.Context, cfg *Config, metrics *proximity.Metrics) (*engine, error) {
	categories, err := proximity.NewCategorySet(cfg.Categories...)
	if err != nil {
		return nil, errors.Wrap(err, "Bad categories")
	}
	catalogue := proximity.NewCatalogue(categories, proximity.DefaultLandUseTypes())
	if cfg.LandUse.Catalogue != "" {
		catalogue, err = proximity.LoadCatalogue(cfg.LandUse.Catalogue, categories)
		if err != nil {
			return nil, err
		}
	}
	eng := &engine{
		catalogue:  catalogue,
		categories: categories,
	}

	if base := loadCachedBaseline(cfg, categories); base != nil {
		eng.base = base
		return eng, nil
	}

	base, net, err := buildBaseline(ctx, cfg, categories, metrics)
	if err != nil {
		return nil, err
	}
	eng.base = base
	eng.net = net
	return eng, nil
}

// loadCachedBaseline returns cached baseline when it exists and was built for the configured
// categories, scalers and budget. Nil means baseline has to be rebuilt.
func loadCachedBaseline(cfg *Config, categories *proximity.CategorySet) *proximity.Baseline {
	if cfg.Build.Cache == "" {
		return nil
	}
	if _, err := os.Stat(cfg.Build.Cache); err != nil {
		return nil
	}
	base, err := proximity.LoadBaseline(cfg.Build.Cache)
	if err != nil {
		zap.L().Warn("can't use cached baseline, rebuilding", zap.Error(err))
		return nil
	}
	scalers, err := categories.ResolveScalers(cfg.Scalers)
	if err != nil {
		zap.L().Warn("can't check cached baseline, rebuilding", zap.Error(err))
		return nil
	}
	if err := base.Matches(categories, scalers, cfg.Budget); err != nil {
		zap.L().Warn("cached baseline is stale, rebuilding", zap.String("file", cfg.Build.Cache), zap.Error(err))
		return nil
	}
	zap.L().Info("baseline loaded from cache", zap.String("file", cfg.Build.Cache))
	return base
}

func buildBaseline(ctx context.Context, cfg *Config, categories *proximity.CategorySet, metrics *proximity.Metrics) (*proximity.Baseline, *proximity.Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	scalers, err := categories.ResolveScalers(cfg.Scalers)
	if err != nil {
		return nil, nil, err
	}
	st := time.Now()
	net, realIndex, projection, err := prepareNetwork(cfg)
	if err != nil {
		return nil, nil, err
	}
	metrics.ObserveBuildPhase("network", time.Since(st))
	if cfg.Build.ExportCSV != "" {
		if err := net.ExportToCSV(cfg.Build.ExportCSV); err != nil {
			return nil, nil, errors.Wrap(err, "Can't export network")
		}
	}

	st = time.Now()
	pois, err := assignPOIs(ctx, cfg, net, realIndex, categories, projection)
	if err != nil {
		return nil, nil, err
	}
	metrics.ObserveBuildPhase("pois", time.Since(st))

	base, err := proximity.BuildBaseline(ctx, net, pois, scalers, cfg.Budget,
		proximity.WithWorkers(cfg.Build.Workers),
		proximity.WithProgressEvery(cfg.Build.ProgressEvery),
		proximity.WithOutputProjection(projection.Inverse),
		proximity.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Build.Cache != "" {
		if err := proximity.SaveBaseline(base, cfg.Build.Cache); err != nil {
			return nil, nil, err
		}
		zap.L().Info("baseline saved", zap.String("file", cfg.Build.Cache))
	}
	return base, net, nil
}

func updateOptions(cfg *Config, metrics *proximity.Metrics) (proximity.UpdateOptions, error) {
	rounding, err := proximity.ParseRoundingPolicy(cfg.Update.Rounding)
	if err != nil {
		return proximity.UpdateOptions{}, err
	}
	return proximity.UpdateOptions{
		Rounding:   rounding,
		Seed:       cfg.Update.Seed,
		Indicators: cfg.Indicators,
		Metrics:    metrics,
	}, nil
}
