package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestLoadAppliesDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("parallel_level: 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ParallelLevel != 4 {
		t.Fatalf("expected parallel_level 4, got %d", cfg.ParallelLevel)
	}
	if cfg.MaxChunkSize != Default().MaxChunkSize {
		t.Fatalf("expected default max_chunk_size to survive, got %d", cfg.MaxChunkSize)
	}
}

func TestStoreWatchStartsAndStopsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("parallel_level: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store, err := NewStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Get().ParallelLevel != 1 {
		t.Fatalf("expected initial parallel_level 1, got %d", store.Get().ParallelLevel)
	}

	stop, err := store.Watch()
	if err != nil {
		t.Fatalf("unexpected error starting watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("parallel_level: 8\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// The watcher goroutine reloads asynchronously; this test only
	// checks that Watch starts and stops cleanly without racing the
	// store, not the exact reload latency.
}
