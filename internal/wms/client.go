package wms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"cloudweave/internal/mercator"
)

const (
	// DefaultBaseURL is the INSAT-3R live imagery WMS endpoint
	DefaultBaseURL = "https://mosdac.gov.in/live_data/wms/live3RL1BSTD1km/products/Insat3r/3R_IMG/"

	// DefaultLayer is the visible-spectrum imagery layer
	DefaultLayer = "IMG_VIS"

	// Product path layouts. The "3RIMG" prefix and version suffix carry
	// digits that time.Format would treat as reference-time tokens, so
	// the path is assembled from formatted fragments and literal text.
	productDirLayout   = "2006/02Jan"
	productStampLayout = "02Jan2006_1504"

	// User agent
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Options configures the WMS client
type Options struct {
	BaseURL         string
	Layer           string
	Styles          string
	ColorScaleRange string
	TileSize        int
	Timeout         time.Duration
	MaxRetries      int           // attempts beyond the first
	RetryBackoff    time.Duration // initial backoff, doubled per attempt
}

// DefaultOptions returns the WMS options matching the live INSAT-3R service
func DefaultOptions() Options {
	return Options{
		BaseURL:         DefaultBaseURL,
		Layer:           DefaultLayer,
		Styles:          "boxfill/greyscale",
		ColorScaleRange: "0,407",
		TileSize:        256,
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    300 * time.Millisecond,
	}
}

var (
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// nonRetryableError marks a response status that must not be retried
type nonRetryableError struct {
	status int
}

func (e *nonRetryableError) Error() string {
	return fmt.Sprintf("tile request failed with status: %d", e.status)
}

// Client fetches timestamped map tiles from a WMS endpoint
type Client struct {
	httpClient *http.Client
	opts       Options
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a WMS client with system proxy support
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Layer == "" {
		opts.Layer = DefaultLayer
	}
	if opts.TileSize <= 0 {
		opts.TileSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 300 * time.Millisecond
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "wms",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Individual tile failures are routine; only a long streak
			// suggests the service itself is down.
			return counts.ConsecutiveFailures > 32
		},
	})

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		breaker: breaker,
	}
}

// TileSize returns the configured tile edge length in pixels
func (c *Client) TileSize() int {
	return c.opts.TileSize
}

// TileURL builds the GetMap URL for one (tile, timestamp) pair. The mapping
// is deterministic: the product path encodes the timestamp and the query
// carries the tile's Web Mercator bounding box.
func (c *Client) TileURL(tile mercator.Tile, at time.Time) string {
	minX, minY, maxX, maxY := tile.Bounds()

	size := strconv.Itoa(c.opts.TileSize)
	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("VERSION", "1.3.0")
	params.Set("REQUEST", "GetMap")
	params.Set("FORMAT", "image/png")
	params.Set("TRANSPARENT", "true")
	params.Set("LAYERS", c.opts.Layer)
	params.Set("STYLES", c.opts.Styles)
	params.Set("COLORSCALERANGE", c.opts.ColorScaleRange)
	params.Set("BELOWMINCOLOR", "extend")
	params.Set("ABOVEMAXCOLOR", "extend")
	params.Set("CRS", fmt.Sprintf("EPSG:%d", mercator.EpsgNumber))
	params.Set("WIDTH", size)
	params.Set("HEIGHT", size)
	params.Set("BBOX", fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(minX), formatCoord(minY), formatCoord(maxX), formatCoord(maxY)))

	return c.opts.BaseURL + productPath(at) + "?" + params.Encode()
}

// productPath renders the per-timestamp product path, e.g.
// 2019/14May/3RIMG_14May2019_1730_L1B_STD_V01R00.h5
func productPath(at time.Time) string {
	at = at.UTC()
	return at.Format(productDirLayout) + "/3RIMG_" + at.Format(productStampLayout) + "_L1B_STD_V01R00.h5"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FetchTile downloads one tile image for one timestamp, retrying transient
// failures with exponential backoff. Server-side statuses (500/502/503/504)
// and transport errors are retried; other non-200 statuses fail immediately.
func (c *Client) FetchTile(ctx context.Context, tile mercator.Tile, at time.Time) ([]byte, error) {
	tileURL := c.TileURL(tile, at)

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.opts.RetryBackoff << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		data, err := c.fetchOnce(ctx, tileURL)
		if err == nil {
			return data, nil
		}

		// Circuit open and client errors are not worth retrying.
		var nre *nonRetryableError
		if errors.As(err, &nre) || errors.Is(err, errCircuitOpen) || errors.Is(err, context.Canceled) {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("tile %s: attempts exhausted: %w", tile, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, tileURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tile: %w", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			return io.ReadAll(resp.Body)
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		default:
			return nil, &nonRetryableError{status: resp.StatusCode}
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	data, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return data, nil
}
