package proximity

import (
	"fmt"

	"github.com/paulmach/orb"
)

// GridHeader describes interactive lattice
type GridHeader struct {
	Rows     int     `json:"nrows"`
	Cols     int     `json:"ncols"`
	CellSize float64 `json:"cellSize"`
}

// GridCell is a parcel of interactive lattice. Cells are numbered row by row: index = row*cols + col.
type GridCell struct {
	Index       int
	Centroid    orb.Point
	Interactive bool
}

// Grid is interactive design lattice
type Grid struct {
	Header GridHeader
	Cells  []GridCell
}

// Validate checks that header matches cells
func (grid *Grid) Validate() error {
	if grid.Header.Rows <= 0 || grid.Header.Cols <= 0 {
		return fmt.Errorf("Bad grid dimensions %dx%d", grid.Header.Rows, grid.Header.Cols)
	}
	if !(grid.Header.CellSize > 0) {
		return fmt.Errorf("Cell size must be positive, got %f", grid.Header.CellSize)
	}
	if len(grid.Cells) != grid.Header.Rows*grid.Header.Cols {
		return fmt.Errorf("Grid has %d cells, but header says %dx%d", len(grid.Cells), grid.Header.Rows, grid.Header.Cols)
	}
	for i := range grid.Cells {
		if grid.Cells[i].Index != i {
			return fmt.Errorf("Cell at position %d has index %d", i, grid.Cells[i].Index)
		}
	}
	return nil
}

// CellsNum returns number of cells
func (grid *Grid) CellsNum() int {
	return len(grid.Cells)
}

// RowCol returns row and column of given cell
func (grid *Grid) RowCol(cell int) (int, int) {
	return cell / grid.Header.Cols, cell % grid.Header.Cols
}

// NewRegularGrid returns axis-aligned grid with first cell centroid at origin. Rows grow downwards (decreasing Y).
func NewRegularGrid(origin orb.Point, rows, cols int, cellSize float64) *Grid {
	grid := &Grid{
		Header: GridHeader{Rows: rows, Cols: cols, CellSize: cellSize},
		Cells:  make([]GridCell, 0, rows*cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			grid.Cells = append(grid.Cells, GridCell{
				Index:       r*cols + c,
				Centroid:    orb.Point{origin[0] + float64(c)*cellSize, origin[1] - float64(r)*cellSize},
				Interactive: true,
			})
		}
	}
	return grid
}
