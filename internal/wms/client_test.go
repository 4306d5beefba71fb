package wms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudweave/internal/mercator"
)

var testTime = time.Date(2019, 5, 14, 17, 30, 0, 0, time.UTC)

func testOptions(baseURL string) Options {
	opts := DefaultOptions()
	opts.BaseURL = baseURL
	opts.Timeout = 5 * time.Second
	opts.RetryBackoff = time.Millisecond
	return opts
}

func TestProductPath(t *testing.T) {
	// The fixed "3RIMG" / "L1B_STD_V01R00.h5" fragments contain digits
	// that are also reference-time tokens; they must come through
	// verbatim for any timestamp.
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2019, 5, 14, 17, 30, 0, 0, time.UTC), "2019/14May/3RIMG_14May2019_1730_L1B_STD_V01R00.h5"},
		{time.Date(2024, 1, 2, 3, 5, 0, 0, time.UTC), "2024/02Jan/3RIMG_02Jan2024_0305_L1B_STD_V01R00.h5"},
		{time.Date(2023, 12, 31, 23, 30, 0, 0, time.UTC), "2023/31Dec/3RIMG_31Dec2023_2330_L1B_STD_V01R00.h5"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, productPath(tc.at))
	}

	// Non-UTC input normalizes to UTC first.
	ist := time.FixedZone("IST", 5*3600+1800)
	got := productPath(time.Date(2019, 5, 14, 23, 0, 0, 0, ist))
	assert.Equal(t, "2019/14May/3RIMG_14May2019_1730_L1B_STD_V01R00.h5", got)
}

func TestTileURL(t *testing.T) {
	client := NewClient(DefaultOptions())
	tile := mercator.Tile{Column: 90, Row: 56, Zoom: 7}

	raw := client.TileURL(tile, testTime)

	// The product path encodes the timestamp.
	assert.Contains(t, raw, "2019/14May/3RIMG_14May2019_1730_L1B_STD_V01R00.h5?")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "WMS", q.Get("SERVICE"))
	assert.Equal(t, "1.3.0", q.Get("VERSION"))
	assert.Equal(t, "GetMap", q.Get("REQUEST"))
	assert.Equal(t, "IMG_VIS", q.Get("LAYERS"))
	assert.Equal(t, "boxfill/greyscale", q.Get("STYLES"))
	assert.Equal(t, "0,407", q.Get("COLORSCALERANGE"))
	assert.Equal(t, "EPSG:3857", q.Get("CRS"))
	assert.Equal(t, "256", q.Get("WIDTH"))
	assert.Equal(t, "256", q.Get("HEIGHT"))

	// BBOX carries the tile's Web Mercator bounds, min corner first.
	parts := strings.Split(q.Get("BBOX"), ",")
	require.Len(t, parts, 4)

	// Same inputs, same URL.
	assert.Equal(t, raw, client.TileURL(tile, testTime))
}

func TestFetchTileRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("tile-bytes"))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL + "/"))
	data, err := client.FetchTile(context.Background(), mercator.Tile{Column: 1, Row: 1, Zoom: 2}, testTime)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile-bytes"), data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchTileExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL + "/"))
	_, err := client.FetchTile(context.Background(), mercator.Tile{Column: 1, Row: 1, Zoom: 2}, testTime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempts exhausted")

	// MaxRetries=2 means three attempts in total.
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchTileDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL + "/"))
	_, err := client.FetchTile(context.Background(), mercator.Tile{Column: 1, Row: 1, Zoom: 2}, testTime)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestFetchTileHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := testOptions(srv.URL + "/")
	opts.RetryBackoff = time.Hour // backoff must be interruptible
	client := NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.FetchTile(ctx, mercator.Tile{Column: 1, Row: 1, Zoom: 2}, testTime)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("FetchTile did not return after cancellation")
	}
}

func TestFetchAllReturnsResultForEveryTile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail the requests whose BBOX starts in the western half.
		if strings.HasPrefix(r.URL.Query().Get("BBOX"), "-") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("tile-bytes"))
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL + "/"))
	tiles := []mercator.Tile{
		{Column: 0, Row: 1, Zoom: 2}, // west, fails
		{Column: 1, Row: 1, Zoom: 2}, // west, fails
		{Column: 2, Row: 1, Zoom: 2},
		{Column: 3, Row: 1, Zoom: 2},
	}

	results := client.FetchAll(context.Background(), tiles, testTime, 4)
	require.Len(t, results, len(tiles), "every requested tile needs a result")

	var ok, failed int
	for _, res := range results {
		if res.OK() {
			ok++
		} else {
			failed++
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 2, failed)
}

func TestFetchAllEmptyInput(t *testing.T) {
	client := NewClient(DefaultOptions())
	results := client.FetchAll(context.Background(), nil, testTime, 4)
	assert.Empty(t, results)
}
