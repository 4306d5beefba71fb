package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
	"cloudweave/internal/mosaic"
)

// Snapshot fetches and stitches the mosaic for a single timestamp, without
// time stepping, scratch directories or interpolation. It backs the mosaic
// preview endpoint.
func (p *Pipeline) Snapshot(ctx context.Context, bbox common.BoundingBox, at time.Time, zoom, workers int) (*image.RGBA, common.GridBounds, error) {
	if err := common.ValidateCoordinates(bbox, zoom); err != nil {
		return nil, common.GridBounds{}, err
	}
	if workers <= 0 {
		return nil, common.GridBounds{}, fmt.Errorf("workers must be positive, got %d", workers)
	}

	box := mercator.ProjectBox(bbox.West, bbox.South, bbox.East, bbox.North)
	tiles, err := mercator.TilesInBox(box, zoom)
	if err != nil {
		return nil, common.GridBounds{}, err
	}

	results := p.fetcher.FetchAll(ctx, tiles, at, workers)
	if err := ctx.Err(); err != nil {
		return nil, common.GridBounds{}, err
	}

	img, err := mosaic.Assemble(results, p.fetcher.TileSize())
	if err != nil {
		return nil, common.GridBounds{}, err
	}

	gridTiles := make([]common.Tile, len(tiles))
	for i, t := range tiles {
		gridTiles[i] = t
	}
	bounds, err := common.GridBoundsOf(gridTiles)
	if err != nil {
		return nil, common.GridBounds{}, err
	}

	return img, bounds, nil
}
