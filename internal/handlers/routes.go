// Package handlers wires the HTTP surface: the interpolation request
// endpoint with its SSE progress stream, health, and the artifact mount.
package handlers

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	gojson "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"cloudweave/internal/common"
	"cloudweave/internal/config"
	"cloudweave/internal/pipeline"
)

var validate = validator.New()

// InterpolateRequest carries the parameters of one pipeline run. Coordinate
// fields are pointers so that a legitimate zero (the equator, the prime
// meridian) is distinguishable from an absent field.
type InterpolateRequest struct {
	LonMin     *float64 `json:"lon_min" validate:"required,gte=-180,lte=180"`
	LatMin     *float64 `json:"lat_min" validate:"required,gte=-90,lte=90"`
	LonMax     *float64 `json:"lon_max" validate:"required,gte=-180,lte=180"`
	LatMax     *float64 `json:"lat_max" validate:"required,gte=-90,lte=90"`
	StartTime  string   `json:"start_time" validate:"required"`
	EndTime    string   `json:"end_time" validate:"required"`
	Zoom       *int     `json:"zoom" validate:"omitempty,gte=0,lte=23"`
	MaxWorkers int      `json:"max_workers" validate:"omitempty,gt=0,lte=64"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, pipe *pipeline.Pipeline, cfg *config.AppConfig) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "cloudweave",
		})
	})

	// Final artifacts are the only thing served statically.
	app.Static("/videos", cfg.VideosDir)

	app.Get("/mosaic/preview", previewHandler(pipe, cfg))

	stream := func(c *fiber.Ctx, req InterpolateRequest) error {
		params, err := buildParams(req, cfg)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return streamRun(c, pipe, params)
	}

	app.Get("/interpolate/stream", func(c *fiber.Ctx) error {
		req, err := parseQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return stream(c, req)
	})

	app.Post("/interpolate/stream", func(c *fiber.Ctx) error {
		var req InterpolateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return stream(c, req)
	})
}

// parseQuery reads the GET form of the request from query parameters.
// Malformed values are rejected here, never coerced to zero or a default.
func parseQuery(c *fiber.Ctx) (InterpolateRequest, error) {
	var req InterpolateRequest

	coords := []struct {
		key string
		dst **float64
	}{
		{"lon_min", &req.LonMin},
		{"lat_min", &req.LatMin},
		{"lon_max", &req.LonMax},
		{"lat_max", &req.LatMax},
	}
	for _, coord := range coords {
		v, err := queryFloat(c, coord.key)
		if err != nil {
			return req, err
		}
		*coord.dst = v
	}

	req.StartTime = c.Query("start_time")
	req.EndTime = c.Query("end_time")

	zoom, err := queryInt(c, "zoom")
	if err != nil {
		return req, err
	}
	req.Zoom = zoom

	workers, err := queryInt(c, "max_workers")
	if err != nil {
		return req, err
	}
	if workers != nil {
		req.MaxWorkers = *workers
	}

	if err := validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

// queryFloat parses a required float query parameter
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, fmt.Errorf("%s query parameter is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

// queryInt parses an optional integer query parameter; absent yields nil
func queryInt(c *fiber.Ctx, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

// buildParams validates and normalizes a request into pipeline parameters.
// All rejection happens here, before any network activity.
func buildParams(req InterpolateRequest, cfg *config.AppConfig) (pipeline.Params, error) {
	start, err := common.ParseRequestTime(req.StartTime)
	if err != nil {
		return pipeline.Params{}, err
	}
	end, err := common.ParseRequestTime(req.EndTime)
	if err != nil {
		return pipeline.Params{}, err
	}
	if end.Before(start) {
		return pipeline.Params{}, fmt.Errorf("end_time must not precede start_time")
	}

	// An explicit zoom=0 is a valid request for the single world tile;
	// only an absent zoom falls back to the default.
	zoom := cfg.DefaultZoom
	if req.Zoom != nil {
		zoom = *req.Zoom
	}
	workers := req.MaxWorkers
	if workers == 0 {
		workers = cfg.DefaultWorkers
	}

	bbox := common.NewBoundingBox(*req.LonMin, *req.LatMin, *req.LonMax, *req.LatMax)
	if err := common.ValidateCoordinates(bbox, zoom); err != nil {
		return pipeline.Params{}, err
	}

	return pipeline.Params{
		BBox:       bbox,
		Start:      start,
		End:        end,
		Zoom:       zoom,
		MaxWorkers: workers,
	}, nil
}

// streamRun executes the pipeline and delivers its progress events as a
// server-sent event stream. The stream ends after the terminal event, or
// without one when the run fails or the client disconnects.
func streamRun(c *fiber.Ctx, pipe *pipeline.Pipeline, params pipeline.Params) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := make(chan pipeline.Event, 1)
		done := make(chan error, 1)
		go func() {
			defer close(events)
			done <- pipe.Run(ctx, params, events)
		}()

		for ev := range events {
			payload, err := gojson.Marshal(ev)
			if err != nil {
				log.Printf("[Stream] Failed to marshal event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				cancel()
				break
			}
			if err := w.Flush(); err != nil {
				// Client went away; stop the run and reclaim resources.
				cancel()
				break
			}
		}

		// Drain any events emitted between a failed flush and cancellation.
		for range events {
		}

		select {
		case err := <-done:
			if err != nil {
				log.Printf("[Stream] Run ended with error: %v", err)
			}
		case <-time.After(time.Minute):
			log.Printf("[Stream] Timed out waiting for run teardown")
		}
	})

	return nil
}
