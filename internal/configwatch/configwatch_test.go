package configwatch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/resonate-app/resonate/internal/logging"
)

func TestConfigChangeAppliesLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr, logger := logging.NewManager(logging.Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	w := New(path, mgr, logger)
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond) // let watcher initialize

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should start disabled")
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Wait for debounce + reload.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Error("expected debug to be enabled after config change")
}

func TestInvalidConfigChangeIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr, logger := logging.NewManager(logging.Config{Level: "warn", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	w := New(path, mgr, logger)
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	// Unparseable YAML must not disturb the running configuration.
	if err := os.WriteFile(path, []byte(":: not yaml ::"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if mgr.Config().Level != "warn" {
		t.Errorf("level = %s, want warn untouched", mgr.Config().Level)
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should remain disabled")
	}
}
