// Package mosaic stitches fetched tiles into a single per-timestamp raster.
package mosaic

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"
	"os"

	_ "image/gif" // register decoders for whatever the WMS returns
	_ "image/jpeg"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
)

// Assemble composes the tile results for one timestamp into a single raster.
// Each successfully fetched tile is pasted at its grid-relative pixel offset;
// tiles that failed to fetch (or decode) are skipped, leaving the background
// transparent at that position. The raster dimensions depend only on the
// distinct column/row counts of the grid, never on fetch outcomes.
func Assemble(results map[mercator.Tile]common.TileFetchResult, tileSize int) (*image.RGBA, error) {
	if tileSize <= 0 {
		tileSize = common.TileSize
	}

	tiles := make([]common.Tile, 0, len(results))
	for tile := range results {
		tiles = append(tiles, tile)
	}
	bounds, err := common.GridBoundsOf(tiles)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate grid bounds: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, bounds.Cols()*tileSize, bounds.Rows()*tileSize))

	for tile, res := range results {
		if !res.OK() {
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(res.Data))
		if err != nil {
			log.Printf("[Mosaic] Failed to decode tile %s: %v", tile, err)
			continue
		}

		xOff, yOff := bounds.Offset(tile.Column, tile.Row, tileSize)
		draw.Draw(out, image.Rect(xOff, yOff, xOff+tileSize, yOff+tileSize), img, image.Point{}, draw.Src)
	}

	return out, nil
}

// WritePNG persists a mosaic to disk
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mosaic file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode mosaic: %w", err)
	}
	return nil
}
