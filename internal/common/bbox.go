package common

import "fmt"

// Constants for validation
const (
	MinZoom = 0
	MaxZoom = 23

	MinLat = -85.051129 // Web Mercator limit
	MaxLat = 85.051129
	MinLon = -180.0
	MaxLon = 180.0

	DefaultZoom    = 7   // Default WMS zoom level
	DefaultWorkers = 8   // Default number of concurrent tile fetch workers
	TileSize       = 256 // Standard tile size in pixels (256x256)
)

// BoundingBox represents a geographic bounding box
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// NewBoundingBox builds a normalized bounding box from two corners. Caller
// ordering is not trusted: min/max are sorted per axis.
func NewBoundingBox(lonMin, latMin, lonMax, latMax float64) BoundingBox {
	if lonMin > lonMax {
		lonMin, lonMax = lonMax, lonMin
	}
	if latMin > latMax {
		latMin, latMax = latMax, latMin
	}
	return BoundingBox{West: lonMin, South: latMin, East: lonMax, North: latMax}
}

// Validate checks if the bounding box is valid
func (b BoundingBox) Validate() error {
	if b.South >= b.North {
		return fmt.Errorf("south (%f) must be less than north (%f)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%f) must be less than east (%f)", b.West, b.East)
	}
	if b.South < MinLat || b.North > MaxLat {
		return fmt.Errorf("latitude out of range [%f, %f]: south=%f, north=%f", MinLat, MaxLat, b.South, b.North)
	}
	if b.West < MinLon || b.East > MaxLon {
		return fmt.Errorf("longitude out of range [%f, %f]: west=%f, east=%f", MinLon, MaxLon, b.West, b.East)
	}
	return nil
}

// ValidateCoordinates validates zoom level and bounding box
func ValidateCoordinates(bbox BoundingBox, zoom int) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return fmt.Errorf("zoom level %d out of range [%d, %d]", zoom, MinZoom, MaxZoom)
	}
	return bbox.Validate()
}
