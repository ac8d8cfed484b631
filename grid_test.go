package proximity

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularGrid(t *testing.T) {
	grid := NewRegularGrid(orb.Point{10, 20}, 2, 3, 5)
	require.NoError(t, grid.Validate())
	assert.Equal(t, 6, grid.CellsNum())
	r, c := grid.RowCol(4)
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, orb.Point{15, 15}, grid.Cells[4].Centroid)

	grid.Cells = grid.Cells[:5]
	assert.Error(t, grid.Validate())
	assert.Error(t, (&Grid{Header: GridHeader{Rows: 1, Cols: 1}}).Validate())
}

func TestSamplingLattice(t *testing.T) {
	grid := NewRegularGrid(orb.Point{0, 0}, 2, 2, 10)
	lattice := SamplingLattice{
		ColMarginLeft: 1,
		RowMarginTop:  1,
		CellWidth:     4,
		CellHeight:    2,
		Stride:        0.5,
	}
	points, err := lattice.Points(grid)
	require.NoError(t, err)
	require.Len(t, points, 4*8)
	// Origin is one cell up and one cell left of the first centroid
	assert.Equal(t, orb.Point{-10, 10}, points[0])
	// Column direction follows first two cells
	assert.Equal(t, orb.Point{-5, 10}, points[1])
	// Row direction is rotated column direction: downwards
	assert.Equal(t, orb.Point{-10, 5}, points[8])

	_, err = SamplingLattice{Stride: 0}.Points(grid)
	assert.Error(t, err)
	_, err = lattice.Points(NewRegularGrid(orb.Point{0, 0}, 1, 1, 10))
	assert.Error(t, err)
}
