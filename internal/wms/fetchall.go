package wms

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
)

// tileResult pairs a tile with its fetch outcome for fan-in
type tileResult struct {
	tile mercator.Tile
	res  common.TileFetchResult
}

// FetchAll downloads every tile for one timestamp with at most workers
// requests in flight, and returns a result for every requested tile. One
// tile failing never blocks or fails the others; the call returns only
// after each tile has either succeeded or exhausted its retries.
func (c *Client) FetchAll(ctx context.Context, tiles []mercator.Tile, at time.Time, workers int) map[mercator.Tile]common.TileFetchResult {
	results := make(map[mercator.Tile]common.TileFetchResult, len(tiles))
	if len(tiles) == 0 {
		return results
	}
	if workers <= 0 {
		workers = common.DefaultWorkers
	}

	sem := semaphore.NewWeighted(int64(workers))
	tileChan := make(chan mercator.Tile, len(tiles))
	resultChan := make(chan tileResult, len(tiles))

	for _, tile := range tiles {
		tileChan <- tile
	}
	close(tileChan)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tile := range tileChan {
				if err := sem.Acquire(ctx, 1); err != nil {
					resultChan <- tileResult{tile: tile, res: common.TileFetchResult{Err: err}}
					continue
				}

				data, err := c.FetchTile(ctx, tile, at)
				sem.Release(1)

				resultChan <- tileResult{tile: tile, res: common.TileFetchResult{Data: data, Err: err}}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		results[r.tile] = r.res
	}

	return results
}
