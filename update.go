package proximity

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type RoundingPolicy uint8

const (
	// ROUNDING_SEEDED resolves quantities below 1 by Bernoulli draw seeded by (seed, cell, category)
	ROUNDING_SEEDED = RoundingPolicy(iota + 1)
	// ROUNDING_KEEP adds fractional quantities as is
	ROUNDING_KEEP
	// ROUNDING_RANDOM resolves quantities below 1 by unseeded draw on every update
	ROUNDING_RANDOM
)

func (iotaIdx RoundingPolicy) String() string {
	return [...]string{"seeded", "keep", "random"}[iotaIdx-1]
}

// ParseRoundingPolicy returns policy by its name
func ParseRoundingPolicy(s string) (RoundingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seeded":
		return ROUNDING_SEEDED, nil
	case "keep":
		return ROUNDING_KEEP, nil
	case "random":
		return ROUNDING_RANDOM, nil
	default:
		return 0, fmt.Errorf("Unknown rounding policy '%s'", s)
	}
}

var (
	RESIDENTIAL_TYPES = []string{"Residential", "Mix-use"}
	EMPLOYMENT_TYPES  = []string{"Office Tower", "Mix-use"}
)

// IndicatorSpec tells which cells are consumers of a category: indicator is mean accessibility of those cells
type IndicatorSpec struct {
	Category  string   `json:"category" yaml:"category" mapstructure:"category"`
	Consumers []string `json:"consumers" yaml:"consumers" mapstructure:"consumers"`
}

// Name returns human readable name of indicator
func (spec IndicatorSpec) Name() string {
	return "Access to " + spec.Category
}

// DefaultIndicatorSpecs returns one indicator per category: housing is consumed by workplaces,
// everything else is consumed by residents.
func DefaultIndicatorSpecs(categories *CategorySet) []IndicatorSpec {
	specs := make([]IndicatorSpec, 0, categories.Len())
	for _, name := range categories.Names() {
		consumers := RESIDENTIAL_TYPES
		if name == "housing" {
			consumers = EMPLOYMENT_TYPES
		}
		specs = append(specs, IndicatorSpec{
			Category:  name,
			Consumers: append([]string{}, consumers...),
		})
	}
	return specs
}

// Indicator is aggregated accessibility score
type Indicator struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	RawValue float64 `json:"raw_value"`
	Units    *string `json:"units"`
}

// UpdateOptions tunes ApplyConfiguration
type UpdateOptions struct {
	Rounding RoundingPolicy
	Seed     uint64
	// Indicators are computed in given order. Nil means DefaultIndicatorSpecs.
	Indicators []IndicatorSpec
	Metrics    *Metrics
}

// Snapshot is accessibility state for single land-use configuration
type Snapshot struct {
	Base         *Baseline
	SampleAccess []Counts
	GridAccess   []Counts
	Indicators   []Indicator
	// Touched is number of node updates performed
	Touched int
	// Hash of configuration the snapshot was computed for. Empty for baseline.
	Hash string
}

// ApplyConfiguration computes accessibility for given land-use configuration. Baseline is never mutated.
//
// Quantities of every configured cell are added to the nodes which reach the cell within budget (affected-node index).
func ApplyConfiguration(base *Baseline, catalogue *Catalogue, cfg *Configuration, opts UpdateOptions) (*Snapshot, error) {
	st := time.Now()
	if cfg == nil {
		return nil, ErrNoConfiguration
	}
	if len(cfg.Cells) > base.CellsNum() {
		return nil, errors.Wrapf(ErrCellOutOfRange, "Configuration has %d cells, grid has %d", len(cfg.Cells), base.CellsNum())
	}
	if catalogue != nil && !catalogue.Categories().Equal(base.Categories) {
		return nil, errors.Wrapf(ErrCategoryMismatch, "Catalogue categories %v, baseline categories %v", catalogue.Categories().Names(), base.Categories.Names())
	}
	if opts.Rounding == 0 {
		opts.Rounding = ROUNDING_SEEDED
	}
	specs := opts.Indicators
	if specs == nil {
		specs = DefaultIndicatorSpecs(base.Categories)
	}

	snap := &Snapshot{
		Base:         base,
		SampleAccess: cloneCounts(base.SampleAccess),
		GridAccess:   cloneCounts(base.GridAccess),
	}
	if len(cfg.Cells) > 0 {
		snap.Hash = cfg.Hash()
	}
	for cell, conf := range cfg.Cells {
		if catalogue == nil {
			break
		}
		perUnit, ok := catalogue.Quantities(conf.Name)
		if !ok {
			continue
		}
		intensity := conf.Height.Intensity()
		samples := base.AffectedSamples[cell]
		cells := base.AffectedGrid[cell]
		for c, qty := range perUnit {
			if qty == 0 {
				continue
			}
			toAdd := roundQuantity(qty*intensity, opts, cell, Category(c))
			if toAdd == 0 {
				continue
			}
			for _, s := range samples {
				snap.SampleAccess[s][c] += toAdd
			}
			for _, g := range cells {
				snap.GridAccess[g][c] += toAdd
			}
			snap.Touched += len(samples) + len(cells)
		}
	}

	indicators, err := computeIndicators(base, snap.GridAccess, cfg, specs)
	if err != nil {
		return nil, err
	}
	snap.Indicators = indicators
	opts.Metrics.ObserveUpdate(time.Since(st), snap.Touched)
	return snap, nil
}

func roundQuantity(qty float64, opts UpdateOptions, cell int, category Category) float64 {
	if qty >= 1 || qty <= 0 || opts.Rounding == ROUNDING_KEEP {
		return qty
	}
	var draw float64
	switch opts.Rounding {
	case ROUNDING_RANDOM:
		draw = rand.Float64()
	default:
		draw = rand.New(rand.NewPCG(opts.Seed, uint64(cell)<<32|uint64(category))).Float64()
	}
	if draw <= qty {
		return 1
	}
	return 0
}

func computeIndicators(base *Baseline, gridAccess []Counts, cfg *Configuration, specs []IndicatorSpec) ([]Indicator, error) {
	indicators := make([]Indicator, 0, len(specs))
	for _, spec := range specs {
		category, ok := base.Categories.Lookup(spec.Category)
		if !ok {
			return nil, errors.Wrapf(ErrCategoryUnknown, "Indicator '%s'", spec.Name())
		}
		consumers := make(map[string]struct{}, len(spec.Consumers))
		for _, name := range spec.Consumers {
			consumers[name] = struct{}{}
		}
		sum, n := 0.0, 0
		for cell, conf := range cfg.Cells {
			if _, ok := consumers[conf.Name]; !ok {
				continue
			}
			sum += gridAccess[cell][category]
			n++
		}
		raw := 0.0
		if n > 0 {
			raw = sum / float64(n)
		}
		indicators = append(indicators, Indicator{
			Name:     spec.Name(),
			Value:    clamp01(raw / base.Scalers[category]),
			RawValue: raw,
		})
	}
	return indicators, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cloneCounts(src []Counts) []Counts {
	out := make([]Counts, len(src))
	for i := range src {
		out[i] = src[i].Clone()
	}
	return out
}

// Score returns normalized accessibility of sample in category clamped to [0, 1]
func (snap *Snapshot) Score(sample int, category Category) float64 {
	return clamp01(snap.SampleAccess[sample][category] / snap.Base.Scalers[category])
}
