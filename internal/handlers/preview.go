package handlers

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gofiber/fiber/v2"

	"cloudweave/internal/common"
	"cloudweave/internal/config"
	"cloudweave/internal/mosaic"
	"cloudweave/internal/pipeline"
	"cloudweave/internal/utils/naming"
)

// PreviewRequest selects a single-timestamp mosaic. Formats: png (default)
// or geotiff for a georeferenced raster.
type PreviewRequest struct {
	LonMin  *float64 `json:"lon_min" validate:"required,gte=-180,lte=180"`
	LatMin  *float64 `json:"lat_min" validate:"required,gte=-90,lte=90"`
	LonMax  *float64 `json:"lon_max" validate:"required,gte=-180,lte=180"`
	LatMax  *float64 `json:"lat_max" validate:"required,gte=-90,lte=90"`
	Time    string   `json:"time" validate:"required"`
	Zoom    *int     `json:"zoom" validate:"omitempty,gte=0,lte=23"`
	Workers int      `json:"workers" validate:"omitempty,gt=0,lte=64"`
	Format  string   `json:"format" validate:"omitempty,oneof=png geotiff"`
}

// previewHandler serves GET /mosaic/preview: fetch one timestamp's tiles,
// stitch them and return the raster directly.
func previewHandler(pipe *pipeline.Pipeline, cfg *config.AppConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parsePreviewQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		at, err := common.ParseRequestTime(req.Time)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		zoom := cfg.DefaultZoom
		if req.Zoom != nil {
			zoom = *req.Zoom
		}
		workers := req.Workers
		if workers == 0 {
			workers = cfg.DefaultWorkers
		}

		bbox := common.NewBoundingBox(*req.LonMin, *req.LatMin, *req.LonMax, *req.LatMax)
		if err := common.ValidateCoordinates(bbox, zoom); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		img, bounds, err := pipe.Snapshot(c.Context(), bbox, at, zoom, workers)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		key := common.FormatTimestampKey(at)
		var buf bytes.Buffer
		switch req.Format {
		case "geotiff":
			if err := mosaic.EncodeGeoTIFF(&buf, img, bounds, zoom, key); err != nil {
				return fmt.Errorf("failed to encode geotiff: %w", err)
			}
			c.Set(fiber.HeaderContentType, "image/tiff")
			c.Set(fiber.HeaderContentDisposition,
				fmt.Sprintf(`attachment; filename="%s"`, naming.PreviewFilename(cfg.WMSLayer, key, bbox, zoom, "tif")))
		default:
			if err := png.Encode(&buf, img); err != nil {
				return fmt.Errorf("failed to encode png: %w", err)
			}
			c.Set(fiber.HeaderContentType, "image/png")
			c.Set(fiber.HeaderContentDisposition,
				fmt.Sprintf(`inline; filename="%s"`, naming.PreviewFilename(cfg.WMSLayer, key, bbox, zoom, "png")))
		}
		return c.Send(buf.Bytes())
	}
}

func parsePreviewQuery(c *fiber.Ctx) (PreviewRequest, error) {
	var req PreviewRequest

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

	req.Time = c.Query("time")
	req.Format = c.Query("format")

	zoom, err := queryInt(c, "zoom")
	if err != nil {
		return req, err
	}
	req.Zoom = zoom

	workers, err := queryInt(c, "workers")
	if err != nil {
		return req, err
	}
	if workers != nil {
		req.Workers = *workers
	}

	if err := validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}
