// Package video covers the external collaborator boundary of the pipeline:
// frame interpolation, fallback timelapse encoding and HLS conversion.
package video

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
)

// DefaultInterpolateTimeout bounds the external interpolation run. The model
// is treated as failed once this elapses.
const DefaultInterpolateTimeout = 20 * time.Minute

// Interpolator produces the final video artifact from a directory of
// per-timestamp mosaics. Implementations must leave a single video file at
// outputPath or return an error.
type Interpolator interface {
	Interpolate(ctx context.Context, framesDir, outputPath string) error
}

// RIFE invokes the frame-interpolation model as an external process.
type RIFE struct {
	Python   string // interpreter binary, e.g. "python3"
	Script   string // path to the inference script
	ModelDir string // path to the trained model weights
	Timeout  time.Duration
}

// Interpolate runs the inference script over the stitched mosaics in
// framesDir and waits for it to write the video at outputPath. A non-zero
// exit or a timeout fails the run; captured stderr is attached to the error.
func (r *RIFE) Interpolate(ctx context.Context, framesDir, outputPath string) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultInterpolateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("[Interpolate] Running %s %s on %s", r.Python, filepath.Base(r.Script), framesDir)
	start := time.Now()

	cmd := executor.New(r.Python, r.Script,
		"--img", framesDir,
		"--output", outputPath,
		"--model", r.ModelDir,
	)

	result, err := cmd.Execute(ctx, executor.WithWorkingDir(filepath.Dir(r.Script)))
	if err != nil {
		detail := ""
		if result != nil {
			detail = strings.TrimSpace(result.Stderr)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("interpolation timed out after %s: %s", timeout, detail)
		}
		return fmt.Errorf("interpolation failed: %w: %s", err, detail)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("interpolation exited cleanly but left no artifact at %s: %w", outputPath, err)
	}

	log.Printf("[Interpolate] Completed in %s", time.Since(start).Round(time.Second))
	return nil
}
