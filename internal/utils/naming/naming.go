// Package naming builds deterministic artifact file names from run
// parameters, safe across filesystems (no dots or signs in coordinates).
package naming

import (
	"fmt"
	"math"
	"strings"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
)

// Quadkey returns the Bing-style quadkey of the tile containing the bbox
// center at the given zoom. It gives artifact names a compact, sortable
// spatial prefix.
func Quadkey(bbox common.BoundingBox, zoom int) string {
	center := mercator.Wgs84{
		Lat: (bbox.South + bbox.North) / 2,
		Lon: (bbox.West + bbox.East) / 2,
	}
	tile := mercator.TileForCoord(center.ToWebMercator(), zoom)

	var key strings.Builder
	for i := zoom; i > 0; i-- {
		digit := 0
		mask := 1 << (i - 1)
		if tile.Column&mask != 0 {
			digit++
		}
		if tile.Row&mask != 0 {
			digit += 2
		}
		key.WriteByte(byte('0' + digit))
	}
	return key.String()
}

// SanitizeCoordinate formats a coordinate for use in filenames: hemisphere
// letter instead of a sign, 'p' instead of the decimal point.
func SanitizeCoordinate(coord float64, isLat bool) string {
	var dir string
	switch {
	case isLat && coord < 0:
		dir = "S"
	case isLat:
		dir = "N"
	case coord < 0:
		dir = "W"
	default:
		dir = "E"
	}
	s := fmt.Sprintf("%.4f", math.Abs(coord))
	return strings.Replace(s, ".", "p", 1) + dir
}

// BBoxString renders a bounding box as a filename-safe fragment,
// south-north then west-east.
func BBoxString(bbox common.BoundingBox) string {
	return fmt.Sprintf("%s-%s_%s-%s",
		SanitizeCoordinate(bbox.South, true),
		SanitizeCoordinate(bbox.North, true),
		SanitizeCoordinate(bbox.West, false),
		SanitizeCoordinate(bbox.East, false))
}

// PreviewFilename names a single-timestamp mosaic artifact.
// Format: {layer}_{timestamp}_{quadkey}_z{zoom}_{bbox}.{ext}
func PreviewFilename(layer, timestampKey string, bbox common.BoundingBox, zoom int, ext string) string {
	return fmt.Sprintf("%s_%s_%s_z%d_%s.%s",
		strings.ToLower(layer), timestampKey, Quadkey(bbox, zoom), zoom, BBoxString(bbox), ext)
}
