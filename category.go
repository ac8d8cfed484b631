package proximity

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category is a position in CategorySet
type Category int

// CategorySet is the fixed, ordered set of POI categories. It is resolved once at configuration time,
// every count vector in the engine is indexed by it.
type CategorySet struct {
	names []string
	index map[string]Category
}

// NewCategorySet returns set of unique non-empty category names. Order is preserved.
func NewCategorySet(names ...string) (*CategorySet, error) {
	cs := &CategorySet{
		names: make([]string, 0, len(names)),
		index: make(map[string]Category, len(names)),
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("Empty category name")
		}
		if _, ok := cs.index[name]; ok {
			return nil, fmt.Errorf("Duplicated category '%s'", name)
		}
		cs.index[name] = Category(len(cs.names))
		cs.names = append(cs.names, name)
	}
	if len(cs.names) == 0 {
		return nil, fmt.Errorf("At least one category is required")
	}
	return cs, nil
}

// Len returns number of categories
func (cs *CategorySet) Len() int {
	return len(cs.names)
}

// Names returns copy of category names in set order
func (cs *CategorySet) Names() []string {
	out := make([]string, len(cs.names))
	copy(out, cs.names)
	return out
}

// Name returns name for given category
func (cs *CategorySet) Name(c Category) string {
	return cs.names[c]
}

// Lookup returns category by its name
func (cs *CategorySet) Lookup(name string) (Category, bool) {
	c, ok := cs.index[name]
	return c, ok
}

// Equal reports whether both sets hold the same names in the same order
func (cs *CategorySet) Equal(other *CategorySet) bool {
	if cs == nil || other == nil {
		return cs == other
	}
	if len(cs.names) != len(other.names) {
		return false
	}
	for i := range cs.names {
		if cs.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

// NewCounts returns zeroed count vector
func (cs *CategorySet) NewCounts() Counts {
	return make(Counts, len(cs.names))
}

// ResolveScalers turns category->scaler map into vector. Every category must have positive scaler.
func (cs *CategorySet) ResolveScalers(scalers map[string]float64) (Counts, error) {
	out := cs.NewCounts()
	for i, name := range cs.names {
		v, ok := scalers[name]
		if !ok {
			return nil, errors.Wrapf(ErrCategoryUnknown, "No scaler for category '%s'", name)
		}
		if !(v > 0) {
			return nil, fmt.Errorf("Scaler for category '%s' must be positive, got %f", name, v)
		}
		out[i] = v
	}
	return out, nil
}

// ToMap converts count vector to category->value map
func (cs *CategorySet) ToMap(counts Counts) map[string]float64 {
	out := make(map[string]float64, len(cs.names))
	for i, name := range cs.names {
		out[name] = counts[i]
	}
	return out
}

// FromMap converts category->value map to count vector. Unknown categories are rejected.
func (cs *CategorySet) FromMap(values map[string]float64) (Counts, error) {
	out := cs.NewCounts()
	for name, v := range values {
		c, ok := cs.index[name]
		if !ok {
			return nil, errors.Wrapf(ErrCategoryUnknown, "Category '%s'", name)
		}
		out[c] = v
	}
	return out, nil
}

// Counts is per-category accumulated amount. Fractional values are allowed.
type Counts []float64

// Clone returns copy of counts
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	copy(out, c)
	return out
}

// Add accumulates other into c
func (c Counts) Add(other Counts) {
	for i := range other {
		c[i] += other[i]
	}
}
