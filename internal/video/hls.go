package video

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
)

// HLSPlaylist is the playlist file name inside the per-run hls directory
const HLSPlaylist = "output.m3u8"

// GenerateHLS converts a finished video into an HLS rendition next to it.
// Returns the playlist path. When ffmpeg is not installed the conversion is
// skipped and an empty path is returned; the mp4 remains the only artifact.
func GenerateHLS(ctx context.Context, videoPath, outDir string) (string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Printf("[HLS] ffmpeg not found, skipping HLS rendition")
		return "", nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create hls directory: %w", err)
	}

	playlist := filepath.Join(outDir, HLSPlaylist)
	args := []string{
		"-y",
		"-i", videoPath,
		"-start_number", "0",
		"-hls_time", "10",
		"-hls_list_size", "0",
		"-f", "hls",
		playlist,
	}

	result, err := executor.New(ffmpegPath, args...).Execute(ctx)
	if err != nil {
		detail := ""
		if result != nil {
			detail = strings.TrimSpace(result.Stderr)
		}
		return "", fmt.Errorf("hls conversion failed: %w: %s", err, detail)
	}

	return playlist, nil
}
