// Package scheduler sweeps expired video artifacts on a fixed interval.
package scheduler

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
)

// Janitor periodically removes video artifacts older than their TTL.
type Janitor struct {
	scheduler *gocron.Scheduler
	videosDir string
	ttl       time.Duration
	interval  time.Duration
}

// New creates a new Janitor.
func New(videosDir string, ttl, interval time.Duration) *Janitor {
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		videosDir: videosDir,
		ttl:       ttl,
		interval:  interval,
	}
}

// Start schedules the periodic sweep and starts the underlying scheduler.
func (j *Janitor) Start() error {
	if j.ttl <= 0 {
		log.Println("janitor: retention disabled; nothing to schedule")
		return nil
	}

	minutes := int(j.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := j.scheduler.Every(minutes).Minutes().Do(func() {
		if n, err := j.Sweep(); err != nil {
			log.Printf("janitor: sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("janitor: removed %d expired artifact(s)", n)
		}
	})
	if err != nil {
		return err
	}

	j.scheduler.StartAsync()
	return nil
}

// Sweep removes per-run artifact directories whose age exceeds the TTL and
// returns how many were removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.videosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-j.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.videosDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("janitor: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	return removed, nil
}

// Stop stops the scheduler and cancels any future sweeps.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}
