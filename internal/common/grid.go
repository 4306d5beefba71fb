package common

import "fmt"

// GridBounds describes the rectangular extent of a tile set in grid space.
type GridBounds struct {
	MinCol int
	MaxCol int
	MinRow int
	MaxRow int
}

// Cols returns the number of columns in the bounds
func (g GridBounds) Cols() int {
	return g.MaxCol - g.MinCol + 1
}

// Rows returns the number of rows in the bounds
func (g GridBounds) Rows() int {
	return g.MaxRow - g.MinRow + 1
}

// Offset returns the pixel offset of a tile inside a raster whose origin is
// the grid's north-west tile.
func (g GridBounds) Offset(col, row, tileSize int) (x, y int) {
	return (col - g.MinCol) * tileSize, (row - g.MinRow) * tileSize
}

// Tile is the minimal interface needed for grid geometry
type Tile interface {
	GetRow() int
	GetColumn() int
}

// GridBoundsOf computes the min/max row and column extent of a tile set
func GridBoundsOf(tiles []Tile) (GridBounds, error) {
	if len(tiles) == 0 {
		return GridBounds{}, fmt.Errorf("no tiles provided")
	}

	g := GridBounds{
		MinCol: tiles[0].GetColumn(),
		MaxCol: tiles[0].GetColumn(),
		MinRow: tiles[0].GetRow(),
		MaxRow: tiles[0].GetRow(),
	}

	for _, tile := range tiles[1:] {
		col := tile.GetColumn()
		row := tile.GetRow()

		if col < g.MinCol {
			g.MinCol = col
		}
		if col > g.MaxCol {
			g.MaxCol = col
		}
		if row < g.MinRow {
			g.MinRow = row
		}
		if row > g.MaxRow {
			g.MaxRow = row
		}
	}

	return g, nil
}
