package common

import "testing"

type gridTile struct{ col, row int }

func (g gridTile) GetColumn() int { return g.col }
func (g gridTile) GetRow() int    { return g.row }

func TestGridBoundsOf(t *testing.T) {
	tiles := []Tile{
		gridTile{col: 5, row: 9},
		gridTile{col: 3, row: 11},
		gridTile{col: 4, row: 10},
	}
	bounds, err := GridBoundsOf(tiles)
	if err != nil {
		t.Fatal(err)
	}
	want := GridBounds{MinCol: 3, MaxCol: 5, MinRow: 9, MaxRow: 11}
	if bounds != want {
		t.Fatalf("got %+v, want %+v", bounds, want)
	}
	if bounds.Cols() != 3 || bounds.Rows() != 3 {
		t.Fatalf("got %dx%d, want 3x3", bounds.Cols(), bounds.Rows())
	}
}

func TestGridBoundsOfEmpty(t *testing.T) {
	if _, err := GridBoundsOf(nil); err == nil {
		t.Error("expected error for empty tile set")
	}
}

func TestGridBoundsOffset(t *testing.T) {
	bounds := GridBounds{MinCol: 3, MaxCol: 5, MinRow: 9, MaxRow: 11}

	x, y := bounds.Offset(3, 9, 256)
	if x != 0 || y != 0 {
		t.Errorf("north-west tile offset: got (%d, %d), want (0, 0)", x, y)
	}

	x, y = bounds.Offset(5, 11, 256)
	if x != 512 || y != 512 {
		t.Errorf("south-east tile offset: got (%d, %d), want (512, 512)", x, y)
	}
}
