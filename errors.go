package proximity

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnknownNode is returned when node is not present in network
	ErrUnknownNode = errors.New("unknown node")
	// ErrCellOutOfRange is returned when configuration refers to cell beyond the grid
	ErrCellOutOfRange = errors.New("grid cell is out of range")
	// ErrCategoryUnknown is returned when category is not in the configured set
	ErrCategoryUnknown = errors.New("unknown category")
	// ErrCategoryMismatch is returned when count vectors are indexed by different category sets
	ErrCategoryMismatch = errors.New("category sets differ")
	// ErrNoConfiguration is returned when configuration feed has nothing to provide
	ErrNoConfiguration = errors.New("no configuration available")
)
