package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
	"cloudweave/internal/mosaic"
	"cloudweave/internal/video"
)

// Run executes one full pipeline run, emitting progress events to events.
// The channel is not closed by Run; the caller owns it. On any unrecoverable
// error the run terminates without a terminal success event and the error is
// returned. The per-run scratch area is removed on every exit path.
func (p *Pipeline) Run(ctx context.Context, params Params, events chan<- Event) error {
	runID := uuid.NewString()
	state := StateInitializing

	err := p.run(ctx, runID, params, events, &state)
	if err != nil {
		log.Printf("[Pipeline] Run %s failed in state %s: %v", runID, state, err)
		p.track("run_failed", map[string]interface{}{
			"run_id": runID,
			"zoom":   params.Zoom,
			"error":  err.Error(),
		})
		return err
	}

	return nil
}

func (p *Pipeline) run(ctx context.Context, runID string, params Params, events chan<- Event, state *RunState) error {
	if err := common.ValidateCoordinates(params.BBox, params.Zoom); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if params.MaxWorkers <= 0 {
		return fmt.Errorf("invalid request: max_workers must be positive")
	}

	steps := common.TimeSteps(params.Start, params.End, p.cadence)
	if len(steps) == 0 {
		return fmt.Errorf("invalid request: empty time range")
	}

	// The tile grid is computed once and reused for every step.
	box := mercator.ProjectBox(params.BBox.West, params.BBox.South, params.BBox.East, params.BBox.North)
	tiles, err := mercator.TilesInBox(box, params.Zoom)
	if err != nil {
		return fmt.Errorf("failed to resolve tile grid: %w", err)
	}

	scratch, err := os.MkdirTemp("", "cloudweave_run_*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	tilesDir := filepath.Join(scratch, "tiles")
	stitchDir := filepath.Join(scratch, "stitched")
	for _, dir := range []string{tilesDir, stitchDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
	}

	log.Printf("[Pipeline] Run %s: %d tiles x %d steps at zoom %d (%d workers)",
		runID, len(tiles), len(steps), params.Zoom, params.MaxWorkers)

	// Each step contributes two units (fetch + stitch); finalization is
	// the last unit. The terminal event, not the last step event, is
	// authoritative for completion.
	totalUnits := len(steps)*2 + 1
	units := 0

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := common.FormatTimestampKey(step)

		*state = StateFetching
		results := p.fetcher.FetchAll(ctx, tiles, step, params.MaxWorkers)
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := persistTiles(filepath.Join(tilesDir, key), results); err != nil {
			return err
		}

		*state = StateStitching
		img, err := mosaic.Assemble(results, p.fetcher.TileSize())
		if err != nil {
			return fmt.Errorf("failed to assemble mosaic for %s: %w", key, err)
		}
		if err := mosaic.WritePNG(filepath.Join(stitchDir, key+".png"), img); err != nil {
			return err
		}

		fetched := 0
		for _, r := range results {
			if r.OK() {
				fetched++
			}
		}
		log.Printf("[Pipeline] Run %s: stitched %s (%d/%d tiles)", runID, key, fetched, len(tiles))

		units += 2
		if err := send(ctx, events, Event{
			Progress: units * 100 / totalUnits,
			Message:  fmt.Sprintf("stitched %s", key),
		}); err != nil {
			return err
		}
	}

	*state = StateFinalizing
	outDir := filepath.Join(p.videosDir, runID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	videoPath := filepath.Join(outDir, "output.mp4")

	if err := p.interpolator.Interpolate(ctx, stitchDir, videoPath); err != nil {
		os.RemoveAll(outDir)
		return err
	}

	if _, err := video.GenerateHLS(ctx, videoPath, filepath.Join(outDir, "hls")); err != nil {
		// The mp4 is complete; a failed HLS rendition degrades, not fails.
		log.Printf("[Pipeline] Run %s: %v", runID, err)
	}

	*state = StateDone
	p.track("run_complete", map[string]interface{}{
		"run_id": runID,
		"zoom":   params.Zoom,
		"tiles":  len(tiles),
		"steps":  len(steps),
	})

	return send(ctx, events, Event{
		Progress: 100,
		Message:  "done",
		VideoURL: fmt.Sprintf("/videos/%s/output.mp4", runID),
	})
}

// persistTiles writes the fetched tile images for one step into the scratch
// area as tiles/<timestamp>/<col>_<row>.png. Failed tiles are simply absent.
func persistTiles(dir string, results map[mercator.Tile]common.TileFetchResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create tile directory: %w", err)
	}
	for tile, res := range results {
		if !res.OK() {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%d_%d.png", tile.Column, tile.Row))
		if err := os.WriteFile(path, res.Data, 0644); err != nil {
			return fmt.Errorf("failed to save tile: %w", err)
		}
	}
	return nil
}

// send delivers an event, honoring cancellation while the channel is
// backpressured by a slow consumer.
func send(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case events <- ev:
		return nil
	}
}
