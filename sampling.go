package proximity

import (
	"fmt"

	"github.com/paulmach/orb"
)

// SamplingLattice describes regular lattice of evaluation points aligned with the grid.
//
// Margins, width and height are measured in grid cells; stride is distance between neighbour points in cells.
type SamplingLattice struct {
	ColMarginLeft float64 `json:"col_margin_left" mapstructure:"col_margin_left"`
	RowMarginTop  float64 `json:"row_margin_top" mapstructure:"row_margin_top"`
	CellWidth     float64 `json:"cell_width" mapstructure:"cell_width"`
	CellHeight    float64 `json:"cell_height" mapstructure:"cell_height"`
	Stride        float64 `json:"stride" mapstructure:"stride"`
}

// Points returns sample points for given grid.
//
// Column direction is taken from the first two cells, row direction is column direction rotated by 90 degrees.
func (lattice SamplingLattice) Points(grid *Grid) ([]orb.Point, error) {
	if len(grid.Cells) < 2 {
		return nil, fmt.Errorf("Sampling lattice needs at least 2 grid cells, got %d", len(grid.Cells))
	}
	if !(lattice.Stride > 0) {
		return nil, fmt.Errorf("Stride must be positive, got %f", lattice.Stride)
	}
	first := grid.Cells[0].Centroid
	second := grid.Cells[1].Centroid
	dXdCol := orb.Point{second[0] - first[0], second[1] - first[1]}
	dXdRow := orb.Point{dXdCol[1], -dXdCol[0]}
	origin := orb.Point{
		first[0] - lattice.RowMarginTop*dXdRow[0] - lattice.ColMarginLeft*dXdCol[0],
		first[1] - lattice.RowMarginTop*dXdRow[1] - lattice.ColMarginLeft*dXdCol[1],
	}
	rows := int(lattice.CellHeight / lattice.Stride)
	cols := int(lattice.CellWidth / lattice.Stride)
	points := make([]orb.Point, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			fi := lattice.Stride * float64(i)
			fj := lattice.Stride * float64(j)
			points = append(points, orb.Point{
				origin[0] + fj*dXdCol[0] + fi*dXdRow[0],
				origin[1] + fj*dXdCol[1] + fi*dXdRow[1],
			})
		}
	}
	return points, nil
}
