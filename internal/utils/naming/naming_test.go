package naming

import (
	"strings"
	"testing"

	"cloudweave/internal/common"
)

func TestSanitizeCoordinate(t *testing.T) {
	cases := []struct {
		coord float64
		isLat bool
		want  string
	}{
		{21.5, true, "21p5000N"},
		{-21.5, true, "21p5000S"},
		{78.25, false, "78p2500E"},
		{-78.25, false, "78p2500W"},
		{0, true, "0p0000N"},
		{0, false, "0p0000E"},
	}
	for _, tc := range cases {
		if got := SanitizeCoordinate(tc.coord, tc.isLat); got != tc.want {
			t.Errorf("SanitizeCoordinate(%f, %v) = %q, want %q", tc.coord, tc.isLat, got, tc.want)
		}
	}
}

func TestQuadkeyLength(t *testing.T) {
	bbox := common.BoundingBox{West: 74, South: 15, East: 78, North: 21}
	for zoom := 1; zoom <= 10; zoom++ {
		key := Quadkey(bbox, zoom)
		if len(key) != zoom {
			t.Errorf("zoom %d: quadkey %q has length %d", zoom, key, len(key))
		}
		if strings.Trim(key, "0123") != "" {
			t.Errorf("quadkey %q has invalid digits", key)
		}
	}
}

func TestPreviewFilename(t *testing.T) {
	bbox := common.BoundingBox{West: 74, South: 15, East: 78, North: 21}
	name := PreviewFilename("IMG_VIS", "20190514_1730", bbox, 7, "tif")

	if !strings.HasPrefix(name, "img_vis_20190514_1730_") {
		t.Errorf("unexpected prefix: %q", name)
	}
	if !strings.Contains(name, "_z7_") {
		t.Errorf("missing zoom fragment: %q", name)
	}
	if !strings.Contains(name, "15p0000N-21p0000N_74p0000E-78p0000E") {
		t.Errorf("missing bbox fragment: %q", name)
	}
	if !strings.HasSuffix(name, ".tif") {
		t.Errorf("missing extension: %q", name)
	}
	if strings.ContainsAny(name, `/\ `) {
		t.Errorf("filename carries unsafe characters: %q", name)
	}
}
