package mercator

import (
	"fmt"
	"math"
)

const (
	// Equator is Earth's equatorial circumference in meters, the width of
	// the Web Mercator (EPSG:3857) plane.
	Equator    = 40075016.685578
	EpsgNumber = 3857

	MaxZoom = 23

	// MaxLat is the Web Mercator latitude limit.
	MaxLat = 85.051129
	MinLat = -85.051129
)

// WebMercator represents coordinates in Web Mercator projection (EPSG:3857)
type WebMercator struct {
	X float64 // meters east
	Y float64 // meters north
}

// Wgs84 represents WGS84 lat/lon coordinates
type Wgs84 struct {
	Lat float64
	Lon float64
}

// ToWebMercator converts WGS84 to Web Mercator
func (w Wgs84) ToWebMercator() WebMercator {
	x := w.Lon / 360.0 * Equator
	latRad := w.Lat * math.Pi / 180.0
	y := math.Log(math.Tan(math.Pi/4+latRad/2)) / (2 * math.Pi) * Equator
	return WebMercator{X: x, Y: y}
}

// ToWgs84 converts Web Mercator to WGS84
func (m WebMercator) ToWgs84() Wgs84 {
	lon := m.X / Equator * 360.0
	lat := math.Atan(math.Sinh(m.Y/Equator*2*math.Pi)) * 180.0 / math.Pi
	return Wgs84{Lat: lat, Lon: lon}
}

// Box is a bounding box in the Web Mercator plane, normalized so that
// (MinX, MinY) is the minimum corner.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// ProjectBox projects a geographic bounding box into the Web Mercator plane.
// Caller ordering of the corners is not trusted; the result is normalized
// min/max on both axes.
func ProjectBox(west, south, east, north float64) Box {
	a := Wgs84{Lat: south, Lon: west}.ToWebMercator()
	b := Wgs84{Lat: north, Lon: east}.ToWebMercator()
	return Box{
		MinX: math.Min(a.X, b.X),
		MinY: math.Min(a.Y, b.Y),
		MaxX: math.Max(a.X, b.X),
		MaxY: math.Max(a.Y, b.Y),
	}
}

// Tile addresses one map tile in the standard XYZ pyramid.
// Row counts from the top (north), column from the west.
type Tile struct {
	Column int
	Row    int
	Zoom   int
}

// NewTile validates coordinates against the pyramid size at the given zoom.
func NewTile(column, row, zoom int) (Tile, error) {
	if zoom < 0 || zoom > MaxZoom {
		return Tile{}, fmt.Errorf("zoom %d out of range [0, %d]", zoom, MaxZoom)
	}
	size := 1 << zoom
	if column < 0 || column >= size || row < 0 || row >= size {
		return Tile{}, fmt.Errorf("column/row out of range for zoom %d", zoom)
	}
	return Tile{Column: column, Row: row, Zoom: zoom}, nil
}

// GetRow implements common.Tile
func (t Tile) GetRow() int {
	return t.Row
}

// GetColumn implements common.Tile
func (t Tile) GetColumn() int {
	return t.Column
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.Column, t.Row)
}

// toCoordinate converts a fractional tile position to a Web Mercator coordinate
func (t Tile) toCoordinate(column, row float64) WebMercator {
	n := float64(int(1) << t.Zoom)
	x := (column/n - 0.5) * Equator
	y := (0.5 - row/n) * Equator
	return WebMercator{X: x, Y: y}
}

// Bounds returns the tile's bounding box in Web Mercator (minX, minY, maxX, maxY).
// This is the BBOX the WMS GetMap request for this tile carries.
func (t Tile) Bounds() (minX, minY, maxX, maxY float64) {
	ll := t.toCoordinate(float64(t.Column), float64(t.Row+1)) // lower-left
	ur := t.toCoordinate(float64(t.Column+1), float64(t.Row)) // upper-right
	return ll.X, ll.Y, ur.X, ur.Y
}

// Center returns the tile center in Web Mercator
func (t Tile) Center() WebMercator {
	return t.toCoordinate(float64(t.Column)+0.5, float64(t.Row)+0.5)
}

// TileForCoord returns the tile containing a Web Mercator coordinate at the
// given zoom. Coordinates on a tile boundary land in the tile to the
// south-east of the boundary (floor indexing).
func TileForCoord(coord WebMercator, zoom int) Tile {
	size := 1 << zoom
	column := int(math.Floor((0.5 + coord.X/Equator) * float64(size)))
	row := int(math.Floor((0.5 - coord.Y/Equator) * float64(size)))

	column = clamp(column, 0, size-1)
	row = clamp(row, 0, size-1)

	return Tile{Column: column, Row: row, Zoom: zoom}
}

// TilesInBox returns every tile intersecting a projected bounding box at the
// given zoom, enumerated row-major (north to south, west to east). The
// rectangle is inclusive of the tiles the box edges fall on.
func TilesInBox(box Box, zoom int) ([]Tile, error) {
	if zoom < 0 || zoom > MaxZoom {
		return nil, fmt.Errorf("zoom %d out of range [0, %d]", zoom, MaxZoom)
	}

	ul := TileForCoord(WebMercator{X: box.MinX, Y: box.MaxY}, zoom)
	lr := TileForCoord(WebMercator{X: box.MaxX, Y: box.MinY}, zoom)

	tiles := make([]Tile, 0, (lr.Row-ul.Row+1)*(lr.Column-ul.Column+1))
	for row := ul.Row; row <= lr.Row; row++ {
		for col := ul.Column; col <= lr.Column; col++ {
			tiles = append(tiles, Tile{Column: col, Row: row, Zoom: zoom})
		}
	}

	return tiles, nil
}

// ResolutionAtZoom returns approximate meters per pixel at a given zoom level
func ResolutionAtZoom(zoom int) float64 {
	return Equator / float64(int(256)<<zoom)
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
