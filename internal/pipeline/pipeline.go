// Package pipeline drives one temporal tile-retrieval and mosaic-assembly
// run: resolve the tile grid once, then per time step fetch tiles, stitch a
// mosaic and report progress, and finally hand the mosaics to the
// interpolation collaborator.
package pipeline

import (
	"context"
	"time"

	"cloudweave/internal/common"
	"cloudweave/internal/mercator"
	"cloudweave/internal/video"
)

// RunState tracks where a run is in its lifecycle
type RunState string

const (
	StateInitializing RunState = "initializing"
	StateFetching     RunState = "fetching"
	StateStitching    RunState = "stitching"
	StateFinalizing   RunState = "finalizing"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

// Event is one progress update delivered to the caller. Progress is
// monotonically non-decreasing over a run; exactly one terminal event
// carries 100 together with the video URL.
type Event struct {
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	VideoURL string `json:"video_url,omitempty"`
}

// Params describes one pipeline run
type Params struct {
	BBox       common.BoundingBox
	Start      time.Time
	End        time.Time
	Zoom       int
	MaxWorkers int
}

// Fetcher abstracts the tile source for the driver
type Fetcher interface {
	// FetchAll returns a result for every requested tile; individual
	// failures are markers in the map, never an aborted batch.
	FetchAll(ctx context.Context, tiles []mercator.Tile, at time.Time, workers int) map[mercator.Tile]common.TileFetchResult

	// TileSize returns the tile edge length in pixels
	TileSize() int
}

// Config holds the pipeline's collaborators
type Config struct {
	Fetcher      Fetcher
	Interpolator video.Interpolator
	VideosDir    string        // public artifact root the final video lands in
	Cadence      time.Duration // interval between time steps
	TrackEvent   func(event string, props map[string]interface{})
}

// Pipeline builds and executes runs
type Pipeline struct {
	fetcher      Fetcher
	interpolator video.Interpolator
	videosDir    string
	cadence      time.Duration
	trackEvent   func(string, map[string]interface{})
}

// New creates a pipeline from its collaborators
func New(cfg Config) *Pipeline {
	cadence := cfg.Cadence
	if cadence <= 0 {
		cadence = common.DefaultCadence
	}
	return &Pipeline{
		fetcher:      cfg.Fetcher,
		interpolator: cfg.Interpolator,
		videosDir:    cfg.VideosDir,
		cadence:      cadence,
		trackEvent:   cfg.TrackEvent,
	}
}

// track emits an analytics event if a tracker is configured
func (p *Pipeline) track(event string, props map[string]interface{}) {
	if p.trackEvent != nil {
		p.trackEvent(event, props)
	}
}
