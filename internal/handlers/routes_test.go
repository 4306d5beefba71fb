package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"cloudweave/internal/common"
	"cloudweave/internal/config"
	"cloudweave/internal/mercator"
	"cloudweave/internal/pipeline"
)

type stubFetcher struct{}

func (stubFetcher) FetchAll(ctx context.Context, tiles []mercator.Tile, at time.Time, workers int) map[mercator.Tile]common.TileFetchResult {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	results := make(map[mercator.Tile]common.TileFetchResult, len(tiles))
	for _, tile := range tiles {
		results[tile] = common.TileFetchResult{Data: buf.Bytes()}
	}
	return results
}

func (stubFetcher) TileSize() int { return 8 }

type stubInterpolator struct{}

func (stubInterpolator) Interpolate(ctx context.Context, framesDir, outputPath string) error {
	return nil
}

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := &config.AppConfig{
		DefaultZoom:    5,
		DefaultWorkers: 2,
		VideosDir:      t.TempDir(),
		WMSLayer:       "IMG_VIS",
	}
	pipe := pipeline.New(pipeline.Config{
		Fetcher:      stubFetcher{},
		Interpolator: stubInterpolator{},
		VideosDir:    cfg.VideosDir,
	})
	RegisterRoutes(app, pipe, cfg)
	return app
}

func get(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	resp := get(t, testApp(t), "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStreamValidation(t *testing.T) {
	app := testApp(t)

	cases := []struct {
		name   string
		target string
	}{
		{"missing coordinates", "/interpolate/stream?start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z"},
		{"missing times", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21"},
		{"latitude out of range", "/interpolate/stream?lon_min=74&lat_min=-95&lon_max=78&lat_max=21&start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z"},
		{"zoom out of range", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21&start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z&zoom=30"},
		{"malformed time", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21&start_time=yesterday&end_time=2019-05-14T18:30:00Z"},
		{"end before start", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21&start_time=2019-05-14T18:30:00Z&end_time=2019-05-14T17:30:00Z"},
		{"too many workers", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21&start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z&max_workers=100"},
		{"unparsable coordinate", "/interpolate/stream?lon_min=abc&lat_min=15&lon_max=78&lat_max=21&start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z"},
		{"unparsable zoom", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21&start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z&zoom=abc"},
		{"unparsable workers", "/interpolate/stream?lon_min=74&lat_min=15&lon_max=78&lat_max=21&start_time=2019-05-14T17:30:00Z&end_time=2019-05-14T18:30:00Z&max_workers=four"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, app, tc.target)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestStreamPostValidation(t *testing.T) {
	app := testApp(t)

	body := strings.NewReader(`{"lon_min": 74, "lat_min": 15, "lon_max": 78}`)
	req := httptest.NewRequest(http.MethodPost, "/interpolate/stream", body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPreviewValidation(t *testing.T) {
	app := testApp(t)

	cases := []struct {
		name   string
		target string
	}{
		{"missing time", "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&lat_max=21"},
		{"missing coordinate", "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&time=2019-05-14T17:30:00Z"},
		{"bad format", "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&lat_max=21&time=2019-05-14T17:30:00Z&format=gif"},
		{"unparsable coordinate", "/mosaic/preview?lon_min=abc&lat_min=15&lon_max=78&lat_max=21&time=2019-05-14T17:30:00Z&zoom=5"},
		{"unparsable zoom", "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&lat_max=21&time=2019-05-14T17:30:00Z&zoom=abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, app, tc.target)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestBuildParamsZoomDefaulting(t *testing.T) {
	cfg := &config.AppConfig{DefaultZoom: 7, DefaultWorkers: 8}
	coord := func(v float64) *float64 { return &v }
	req := InterpolateRequest{
		LonMin:    coord(74),
		LatMin:    coord(15),
		LonMax:    coord(78),
		LatMax:    coord(21),
		StartTime: "2019-05-14T17:30:00Z",
		EndTime:   "2019-05-14T18:30:00Z",
	}

	params, err := buildParams(req, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if params.Zoom != 7 {
		t.Errorf("absent zoom: got %d, want default 7", params.Zoom)
	}

	// An explicit zoom=0 requests the single world tile, not the default.
	zero := 0
	req.Zoom = &zero
	params, err = buildParams(req, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if params.Zoom != 0 {
		t.Errorf("explicit zoom 0: got %d, want 0", params.Zoom)
	}
}

func TestPreviewAcceptsZoomZero(t *testing.T) {
	app := testApp(t)

	resp := get(t, app, "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&lat_max=21&time=2019-05-14T17:30:00Z&zoom=0")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		t.Fatalf("response is not a decodable image: %v", err)
	}
	// Zoom 0 has exactly one tile.
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("expected a single 8x8 tile, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPreviewServesPNG(t *testing.T) {
	app := testApp(t)

	resp := get(t, app, "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&lat_max=21&time=2019-05-14T17:30:00Z&zoom=5")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		t.Fatalf("response is not a decodable image: %v", err)
	}
	if img.Bounds().Dx() == 0 {
		t.Fatal("empty preview image")
	}
}

func TestPreviewServesGeoTIFF(t *testing.T) {
	app := testApp(t)

	resp := get(t, app, "/mosaic/preview?lon_min=74&lat_min=15&lon_max=78&lat_max=21&time=2019-05-14T17:30:00Z&zoom=5&format=geotiff")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "image/tiff" {
		t.Fatalf("expected image/tiff, got %q", ct)
	}
	cd := resp.Header.Get(fiber.HeaderContentDisposition)
	if !strings.Contains(cd, ".tif") {
		t.Fatalf("missing tif filename in disposition %q", cd)
	}
}
