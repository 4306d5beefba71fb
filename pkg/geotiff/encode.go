// Package geotiff writes uncompressed RGBA TIFFs carrying the GeoTIFF tags
// needed to georeference a Web Mercator (EPSG:3857) raster.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
)

const (
	dataTypeByte     = 1
	dataTypeASCII    = 2
	dataTypeShort    = 3
	dataTypeLong     = 4
	dataTypeRational = 5
	dataTypeDouble   = 12

	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagImageDescription          = 270
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagXResolution               = 282
	tagYResolution               = 283
	tagResolutionUnit            = 296
	tagExtraSamples              = 338

	// GeoTIFF tags
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
)

var enc = binary.LittleEndian

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

type byTag []ifdEntry

func (d byTag) Len() int           { return len(d) }
func (d byTag) Less(i, j int) bool { return d[i].tag < d[j].tag }
func (d byTag) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }

// EncodeWebMercator writes m to w as a single-strip RGBA GeoTIFF referenced
// to EPSG:3857. originX/originY is the world coordinate of the top-left
// pixel; pixelW/pixelH is the pixel size in meters.
func EncodeWebMercator(w io.Writer, m image.Image, originX, originY, pixelW, pixelH float64, description string) error {
	tags := map[uint16]interface{}{
		// Tie raster point (0,0,0) to the world origin.
		tagModelTiepoint:   []float64{0, 0, 0, originX, originY, 0},
		tagModelPixelScale: []float64{pixelW, pixelH, 0},
		// ModelTypeProjected, ProjectedCSType EPSG:3857, linear meters.
		tagGeoKeyDirectory: []uint16{
			1, 1, 0, 3,
			1024, 0, 1, 1,
			3072, 0, 1, 3857,
			3076, 0, 1, 9001,
		},
	}
	if description != "" {
		tags[tagImageDescription] = description
	}
	return Encode(w, m, tags)
}

// Encode writes the image m to w as an uncompressed RGBA TIFF.
// extraTags maps TagID to a value of type []uint16, []float64 or string.
func Encode(w io.Writer, m image.Image, extraTags map[uint16]interface{}) error {
	bounds := m.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Little-endian header, version 42, first IFD at offset 8.
	if _, err := w.Write([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}); err != nil {
		return err
	}

	// One uncompressed strip, 8 bits per sample RGBA.
	pixelData := new(bytes.Buffer)
	pixelData.Grow(width * height * 4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := m.At(x, y).RGBA()
			pixelData.WriteByte(uint8(r >> 8))
			pixelData.WriteByte(uint8(g >> 8))
			pixelData.WriteByte(uint8(b >> 8))
			pixelData.WriteByte(uint8(a >> 8))
		}
	}
	pixels := pixelData.Bytes()

	var entries []ifdEntry
	addEntry := func(tag uint16, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, data})
	}

	addEntry(tagImageWidth, dataTypeShort, 1, enc16(uint16(width)))
	addEntry(tagImageLength, dataTypeShort, 1, enc16(uint16(height)))
	addEntry(tagBitsPerSample, dataTypeShort, 4, enc16s([]uint16{8, 8, 8, 8}))
	addEntry(tagCompression, dataTypeShort, 1, enc16(1))
	addEntry(tagPhotometricInterpretation, dataTypeShort, 1, enc16(2))
	addEntry(tagSamplesPerPixel, dataTypeShort, 1, enc16(4))
	// The fourth sample is associated alpha; without this entry baseline
	// readers reject 4 samples against an RGB photometric interpretation.
	addEntry(tagExtraSamples, dataTypeShort, 1, enc16(1))
	addEntry(tagRowsPerStrip, dataTypeShort, 1, enc16(uint16(height)))
	addEntry(tagXResolution, dataTypeRational, 1, encRational(72, 1))
	addEntry(tagYResolution, dataTypeRational, 1, encRational(72, 1))
	addEntry(tagResolutionUnit, dataTypeShort, 1, enc16(2))

	// Placeholders, patched once the pixel offset is known.
	addEntry(tagStripOffsets, dataTypeLong, 1, make([]byte, 4))
	addEntry(tagStripByteCounts, dataTypeLong, 1, make([]byte, 4))

	for tag, val := range extraTags {
		switch v := val.(type) {
		case []uint16:
			addEntry(tag, dataTypeShort, uint32(len(v)), enc16s(v))
		case []float64:
			addEntry(tag, dataTypeDouble, uint32(len(v)), encDoubles(v))
		case string:
			b := append([]byte(v), 0) // ASCII values are null-terminated
			addEntry(tag, dataTypeASCII, uint32(len(b)), b)
		default:
			return fmt.Errorf("unsupported tag value type for tag %d", tag)
		}
	}

	sort.Sort(byTag(entries))

	// Layout: header (8) | IFD table | out-of-line values | pixel strip.
	ifdSize := 2 + 12*len(entries) + 4
	valueDataOffset := 8 + ifdSize

	// Values wider than the 4-byte value field move to the data area and
	// the entry holds their offset instead.
	var largeDataBuf bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.data) > 4 {
			currentOffset := uint32(valueDataOffset + largeDataBuf.Len())
			largeDataBuf.Write(e.data)
			e.data = enc32(currentOffset)
		}
	}

	pixelsOffset := uint32(valueDataOffset + largeDataBuf.Len())
	for i := range entries {
		switch entries[i].tag {
		case tagStripOffsets:
			entries[i].data = enc32(pixelsOffset)
		case tagStripByteCounts:
			entries[i].data = enc32(uint32(len(pixels)))
		}
	}

	if err := binary.Write(w, enc, uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(w, enc, e.tag); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.datatype); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.count); err != nil {
			return err
		}
		var val [4]byte
		copy(val[:], e.data)
		if _, err := w.Write(val[:]); err != nil {
			return err
		}
	}

	// Next IFD offset: none.
	if err := binary.Write(w, enc, uint32(0)); err != nil {
		return err
	}

	if _, err := largeDataBuf.WriteTo(w); err != nil {
		return err
	}
	if _, err := w.Write(pixels); err != nil {
		return err
	}

	return nil
}

func enc16(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func enc32(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func enc16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func encRational(num, den uint32) []byte {
	b := make([]byte, 8)
	enc.PutUint32(b[:4], num)
	enc.PutUint32(b[4:], den)
	return b
}
