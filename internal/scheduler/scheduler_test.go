package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepRemovesExpiredRuns(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "run-old")
	fresh := filepath.Join(dir, "run-fresh")
	for _, d := range []string{old, fresh} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	// Age the expired run past the TTL.
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	j := New(dir, time.Hour, time.Hour)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired run still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh run was removed")
	}
}

func TestSweepIgnoresFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stray.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-2 * time.Hour)
	os.Chtimes(file, past, past)

	j := New(dir, time.Hour, time.Hour)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("removed %d, want 0", removed)
	}
	if _, err := os.Stat(file); err != nil {
		t.Error("stray file was removed")
	}
}

func TestSweepMissingDir(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "missing"), time.Hour, time.Hour)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("removed %d, want 0", removed)
	}
}
