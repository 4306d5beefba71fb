package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/icza/mjpeg"
	"github.com/input-output-hk/catalyst-forge-libs/executor"
	xdraw "golang.org/x/image/draw"
)

// Timelapse encodes the stitched mosaics directly into a video without
// interpolation. It is the degraded mode used when no interpolation model
// is configured: H.264 via ffmpeg when available, MJPEG AVI otherwise.
type Timelapse struct {
	FFmpegPath string // resolved ffmpeg binary; empty forces the MJPEG fallback
	FrameRate  int
	Quality    int // JPEG quality for the MJPEG fallback (0-100)
}

// NewTimelapse builds a timelapse encoder, locating ffmpeg on PATH
func NewTimelapse(frameRate int) *Timelapse {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Printf("[Timelapse] ffmpeg not found, will fall back to MJPEG AVI")
		ffmpegPath = ""
	}
	if frameRate <= 0 {
		frameRate = 24
	}
	return &Timelapse{FFmpegPath: ffmpegPath, FrameRate: frameRate, Quality: 90}
}

// Interpolate implements Interpolator by plain frame-to-frame encoding.
func (t *Timelapse) Interpolate(ctx context.Context, framesDir, outputPath string) error {
	frames, err := loadFrames(framesDir)
	if err != nil {
		return err
	}

	if t.FFmpegPath != "" {
		return t.encodeH264(ctx, frames, outputPath)
	}
	aviPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".avi"
	log.Printf("[Timelapse] Encoding MJPEG AVI: %s", aviPath)
	if err := t.encodeMotionJPEG(frames, aviPath); err != nil {
		return err
	}
	// The pipeline expects its artifact at outputPath regardless of codec.
	return os.Rename(aviPath, outputPath)
}

// loadFrames reads the mosaics in timestamp order and scales each to even
// dimensions, which H.264's yuv420p pixel format requires.
func loadFrames(framesDir string) ([]image.Image, error) {
	paths, err := filepath.Glob(filepath.Join(framesDir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames found in %s", framesDir)
	}
	sort.Strings(paths)

	frames := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open frame %s: %w", p, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %s: %w", p, err)
		}
		frames = append(frames, evenDimensions(img))
	}
	return frames, nil
}

// evenDimensions scales an image up by at most one pixel per axis so both
// dimensions are even.
func evenDimensions(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ew, eh := (w+1)&^1, (h+1)&^1
	if ew == w && eh == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, ew, eh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func (t *Timelapse) encodeH264(ctx context.Context, frames []image.Image, outputPath string) error {
	tempDir, err := os.MkdirTemp("", "cloudweave_frames_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	for i, frame := range frames {
		framePath := filepath.Join(tempDir, fmt.Sprintf("frame_%05d.png", i))
		f, err := os.Create(framePath)
		if err != nil {
			return fmt.Errorf("failed to create frame file: %w", err)
		}
		if err := png.Encode(f, frame); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
		f.Close()
	}

	args := []string{
		"-y",
		"-framerate", fmt.Sprintf("%d", t.FrameRate),
		"-i", filepath.Join(tempDir, "frame_%05d.png"),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	}

	log.Printf("[Timelapse] Running ffmpeg with %d frames", len(frames))
	result, err := executor.New(t.FFmpegPath, args...).Execute(ctx)
	if err != nil {
		detail := ""
		if result != nil {
			detail = strings.TrimSpace(result.Stderr)
		}
		return fmt.Errorf("ffmpeg encoding failed: %w: %s", err, detail)
	}
	return nil
}

func (t *Timelapse) encodeMotionJPEG(frames []image.Image, outputPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}

	b := frames[0].Bounds()
	writer, err := mjpeg.New(outputPath, int32(b.Dx()), int32(b.Dy()), int32(t.FrameRate))
	if err != nil {
		return fmt.Errorf("failed to create video writer: %w", err)
	}
	defer writer.Close()

	for i, frame := range frames {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: t.Quality}); err != nil {
			return fmt.Errorf("failed to encode frame %d as JPEG: %w", i, err)
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to add frame %d: %w", i, err)
		}
	}

	return nil
}
