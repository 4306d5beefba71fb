package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cloudweave/internal/common"
	"cloudweave/internal/wms"
)

// AppConfig bundles everything the server reads from the environment
type AppConfig struct {
	Port string

	// Upstream WMS tile source.
	WMSBaseURL      string
	WMSLayer        string
	WMSStyles       string
	WMSColorScale   string
	TileSize        int
	FetchTimeout    time.Duration
	FetchMaxRetries int
	RetryBackoff    time.Duration

	// Temporal stepping.
	Cadence        time.Duration
	DefaultZoom    int
	DefaultWorkers int

	// Interpolation collaborator. With no script configured the server
	// falls back to plain timelapse encoding.
	PythonBin     string
	InterpScript  string
	ModelDir      string
	InterpTimeout time.Duration
	FrameRate     int

	// Artifact storage and retention.
	VideosDir     string
	VideoTTL      time.Duration
	SweepInterval time.Duration

	// Analytics (optional).
	PostHogAPIKey   string
	PostHogEndpoint string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port: getenvDefault("PORT", "8080"),

		WMSBaseURL:      getenvDefault("WMS_BASE_URL", wms.DefaultBaseURL),
		WMSLayer:        getenvDefault("WMS_LAYER", wms.DefaultLayer),
		WMSStyles:       getenvDefault("WMS_STYLES", "boxfill/greyscale"),
		WMSColorScale:   getenvDefault("WMS_COLORSCALE_RANGE", "0,407"),
		TileSize:        getenvInt("TILE_SIZE", common.TileSize),
		FetchMaxRetries: getenvInt("FETCH_MAX_RETRIES", 2),

		DefaultZoom:    getenvInt("DEFAULT_ZOOM", common.DefaultZoom),
		DefaultWorkers: getenvInt("DEFAULT_WORKERS", common.DefaultWorkers),

		PythonBin:    getenvDefault("INTERP_PYTHON", "python3"),
		InterpScript: os.Getenv("INTERP_SCRIPT"),
		ModelDir:     os.Getenv("INTERP_MODEL_DIR"),
		FrameRate:    getenvInt("FRAME_RATE", 24),

		VideosDir: getenvDefault("VIDEOS_DIR", "videos"),

		PostHogAPIKey:   os.Getenv("POSTHOG_API_KEY"),
		PostHogEndpoint: os.Getenv("POSTHOG_ENDPOINT"),
	}

	var err error
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getenvDuration("FETCH_RETRY_BACKOFF", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Cadence, err = getenvDuration("STEP_CADENCE", common.DefaultCadence); err != nil {
		return nil, err
	}
	if cfg.InterpTimeout, err = getenvDuration("INTERP_TIMEOUT", 20*time.Minute); err != nil {
		return nil, err
	}
	if cfg.VideoTTL, err = getenvDuration("VIDEO_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.DefaultZoom <= 0 || cfg.DefaultZoom > common.MaxZoom {
		return nil, fmt.Errorf("DEFAULT_ZOOM %d out of range (0, %d]", cfg.DefaultZoom, common.MaxZoom)
	}
	if cfg.DefaultWorkers <= 0 {
		return nil, fmt.Errorf("DEFAULT_WORKERS must be positive")
	}

	return cfg, nil
}

// WMSOptions maps the config to WMS client options
func (c *AppConfig) WMSOptions() wms.Options {
	return wms.Options{
		BaseURL:         c.WMSBaseURL,
		Layer:           c.WMSLayer,
		Styles:          c.WMSStyles,
		ColorScaleRange: c.WMSColorScale,
		TileSize:        c.TileSize,
		Timeout:         c.FetchTimeout,
		MaxRetries:      c.FetchMaxRetries,
		RetryBackoff:    c.RetryBackoff,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
