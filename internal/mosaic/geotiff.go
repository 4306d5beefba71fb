package mosaic

import (
	"image"
	"io"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
	"cloudweave/pkg/geotiff"
)

// EncodeGeoTIFF writes a mosaic as a GeoTIFF georeferenced to EPSG:3857.
// bounds is the tile grid the mosaic covers at the given zoom level.
func EncodeGeoTIFF(w io.Writer, img image.Image, bounds common.GridBounds, zoom int, description string) error {
	nw := mercator.Tile{Column: bounds.MinCol, Row: bounds.MinRow, Zoom: zoom}
	se := mercator.Tile{Column: bounds.MaxCol, Row: bounds.MaxRow, Zoom: zoom}

	originX, _, _, originY := nw.Bounds()
	_, endY, endX, _ := se.Bounds()

	b := img.Bounds()
	pixelW := (endX - originX) / float64(b.Dx())
	pixelH := (originY - endY) / float64(b.Dy())

	return geotiff.EncodeWebMercator(w, img, originX, originY, pixelW, pixelH, description)
}
