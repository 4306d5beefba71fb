package common

// TileFetchResult records the outcome of fetching one tile image for one
// timestamp: either the raw image bytes or the reason the fetch failed.
// A failed tile is skipped during stitching, never fatal to the step.
type TileFetchResult struct {
	// Data contains the raw tile image bytes (PNG from the WMS) on success
	Data []byte

	// Err holds the final error after retries were exhausted; nil on success
	Err error
}

// OK reports whether the tile was fetched successfully
func (r TileFetchResult) OK() bool {
	return r.Err == nil
}
