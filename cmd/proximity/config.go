package main

import (
	"strings"
	"time"

	"github.com/LdDl/proximity"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig                 `yaml:"log" mapstructure:"log"`
	Network    NetworkConfig             `yaml:"network" mapstructure:"network"`
	Grid       GridConfig                `yaml:"grid" mapstructure:"grid"`
	Sampling   proximity.SamplingLattice `yaml:"sampling" mapstructure:"sampling"`
	Categories []string                  `yaml:"categories" mapstructure:"categories"`
	Scalers    map[string]float64        `yaml:"scalers" mapstructure:"scalers"`
	Budget     float64                   `yaml:"budget" mapstructure:"budget"`
	POIs       POIConfig                 `yaml:"pois" mapstructure:"pois"`
	LandUse    LandUseConfig             `yaml:"landuse" mapstructure:"landuse"`
	Indicators []proximity.IndicatorSpec `yaml:"indicators" mapstructure:"indicators"`
	Build      BuildConfig               `yaml:"build" mapstructure:"build"`
	Update     UpdateConfig              `yaml:"update" mapstructure:"update"`
	Source     SourceConfig              `yaml:"source" mapstructure:"source"`
	Output     OutputConfig              `yaml:"output" mapstructure:"output"`
	Server     ServerConfig              `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// NetworkConfig points to real network tables and sets snapping parameters.
type NetworkConfig struct {
	Nodes               string                   `yaml:"nodes" mapstructure:"nodes"`
	Edges               string                   `yaml:"edges" mapstructure:"edges"`
	Columns             proximity.NetworkColumns `yaml:"columns" mapstructure:"columns"`
	Projection          string                   `yaml:"projection" mapstructure:"projection"`
	Speed               float64                  `yaml:"speed" mapstructure:"speed"`
	GridSnapThreshold   float64                  `yaml:"grid_snap_threshold" mapstructure:"grid_snap_threshold"`
	SampleSnapThreshold float64                  `yaml:"sample_snap_threshold" mapstructure:"sample_snap_threshold"`
	SampleSnapK         int                      `yaml:"sample_snap_k" mapstructure:"sample_snap_k"`
}

// GridConfig points to GEOGRID file.
type GridConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// POIConfig lists POI sources.
type POIConfig struct {
	AmenityThreshold float64      `yaml:"amenity_threshold" mapstructure:"amenity_threshold"`
	OSM              OSMConfig    `yaml:"osm" mapstructure:"osm"`
	Zones            []ZoneConfig `yaml:"zones" mapstructure:"zones"`
}

// OSMConfig configures amenity extraction from OSM file.
type OSMConfig struct {
	File string              `yaml:"file" mapstructure:"file"`
	Tags map[string][]string `yaml:"tags" mapstructure:"tags"`
}

// ZoneConfig configures single zonal POI source.
type ZoneConfig struct {
	File       string            `yaml:"file" mapstructure:"file"`
	Format     string            `yaml:"format" mapstructure:"format"`
	ID         string            `yaml:"id" mapstructure:"id"`
	Threshold  float64           `yaml:"threshold" mapstructure:"threshold"`
	Attributes map[string]string `yaml:"attributes" mapstructure:"attributes"`
}

// LandUseConfig points to land-use catalogue. Empty file means built-in table.
type LandUseConfig struct {
	Catalogue string `yaml:"catalogue" mapstructure:"catalogue"`
}

// BuildConfig tunes build phase.
type BuildConfig struct {
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	ProgressEvery int    `yaml:"progress_every" mapstructure:"progress_every"`
	Cache         string `yaml:"cache" mapstructure:"cache"`
	ExportCSV     string `yaml:"export_csv" mapstructure:"export_csv"`
}

// UpdateConfig tunes update phase.
type UpdateConfig struct {
	Rounding string `yaml:"rounding" mapstructure:"rounding"`
	Seed     uint64 `yaml:"seed" mapstructure:"seed"`
}

// SourceConfig selects configuration feed.
type SourceConfig struct {
	Kind     string        `yaml:"kind" mapstructure:"kind"`
	File     string        `yaml:"file" mapstructure:"file"`
	TableURL string        `yaml:"table_url" mapstructure:"table_url"`
	HashURL  string        `yaml:"hash_url" mapstructure:"hash_url"`
	DataURL  string        `yaml:"data_url" mapstructure:"data_url"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Attempts uint          `yaml:"attempts" mapstructure:"attempts"`
}

// OutputConfig sets where snapshots are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures HTTP server of listen command. Empty address disables it.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Load reads configuration from proximity.yaml (or explicit file) and PROXIMITY_* environment variables.
func Load(fname string) (*Config, error) {
	v := viper.New()

	// Config file
	if fname != "" {
		v.SetConfigFile(fname)
	} else {
		v.SetConfigName("proximity")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("PROXIMITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	columns := proximity.DefaultNetworkColumns()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("network.columns.node_id", columns.NodeID)
	v.SetDefault("network.columns.node_x", columns.NodeX)
	v.SetDefault("network.columns.node_y", columns.NodeY)
	v.SetDefault("network.columns.from", columns.From)
	v.SetDefault("network.columns.to", columns.To)
	v.SetDefault("network.columns.weight", columns.Weight)
	v.SetDefault("network.projection", "mercator")
	v.SetDefault("network.speed", proximity.DEFAULT_SPEED)
	v.SetDefault("network.grid_snap_threshold", proximity.DEFAULT_GRID_SNAP_THRESHOLD)
	v.SetDefault("network.sample_snap_threshold", proximity.DEFAULT_SAMPLE_SNAP_THRESHOLD)
	v.SetDefault("network.sample_snap_k", proximity.DEFAULT_SAMPLE_SNAP_K)
	v.SetDefault("budget", proximity.DEFAULT_BUDGET)
	v.SetDefault("pois.amenity_threshold", proximity.DEFAULT_AMENITY_THRESHOLD)
	v.SetDefault("build.workers", 0)
	v.SetDefault("build.progress_every", 200)
	v.SetDefault("update.rounding", proximity.ROUNDING_SEEDED.String())
	v.SetDefault("update.seed", 1)
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.interval", proximity.DEFAULT_POLL_INTERVAL)
	v.SetDefault("source.attempts", proximity.DEFAULT_HTTP_ATTEMPTS)
	v.SetDefault("output.dir", "output")

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || fname != "" {
			return nil, errors.Wrap(err, "Can't read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "Can't unmarshal config")
	}
	for i := range cfg.POIs.Zones {
		if cfg.POIs.Zones[i].Threshold <= 0 {
			cfg.POIs.Zones[i].Threshold = proximity.DEFAULT_ZONE_THRESHOLD
		}
		if cfg.POIs.Zones[i].Format == "" {
			cfg.POIs.Zones[i].Format = "geojson"
		}
	}
	return &cfg, nil
}

// Validate checks fields required by build phase.
func (cfg *Config) Validate() error {
	if cfg.Network.Nodes == "" || cfg.Network.Edges == "" {
		return errors.New("network.nodes and network.edges are required")
	}
	if cfg.Grid.File == "" {
		return errors.New("grid.file is required")
	}
	if len(cfg.Categories) == 0 {
		return errors.New("categories are required")
	}
	if !(cfg.Budget >= 0) {
		return errors.Errorf("budget must be non-negative, got %f", cfg.Budget)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrap(err, "Can't parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return errors.Wrap(err, "Can't build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
