// Package configwatch watches the config file and re-applies the logging
// settings when it changes, so log level and output can be adjusted
// without restarting the server.
package configwatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/resonate-app/resonate/internal/config"
	"github.com/resonate-app/resonate/internal/logging"
)

// Watcher re-reads the config file on change.
type Watcher struct {
	path       string
	logManager *logging.Manager
	logger     *slog.Logger
	debounce   time.Duration
}

// New creates a config watcher for the given file path.
func New(path string, logManager *logging.Manager, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:       path,
		logManager: logManager,
		logger:     logger.With(slog.String("component", "config-watcher")),
		debounce:   500 * time.Millisecond,
	}
}

// SetDebounce overrides the reload debounce interval.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start watches until the context is canceled. Editors typically replace
// the file rather than write in place, so the parent directory is
// watched and events are filtered to the config file name.
func (w *Watcher) Start(ctx context.Context) {
	if w.path == "" {
		return
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watching disabled", slog.String("error", err.Error()))
		return
	}
	defer fsw.Close() //nolint:errcheck

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		w.logger.Warn("config watching disabled",
			slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", slog.String("error", err.Error()))
		case <-reload:
			w.apply()
		}
	}
}

func (w *Watcher) apply() {
	cfg, err := config.Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring config change", slog.String("error", err.Error()))
		return
	}

	logCfg := w.logManager.Config()
	if logging.ValidLevel(cfg.Logging.Level) {
		logCfg.Level = cfg.Logging.Level
	}
	if logging.ValidFormat(cfg.Logging.Format) {
		logCfg.Format = cfg.Logging.Format
	}
	logCfg.FilePath = cfg.Logging.FilePath
	logCfg.FileMaxSizeMB = cfg.Logging.FileMaxSizeMB
	logCfg.FileMaxFiles = cfg.Logging.FileMaxFiles
	logCfg.FileMaxAgeDays = cfg.Logging.FileMaxAgeDays

	w.logManager.Reconfigure(logCfg)
	w.logger.Info("applied logging config change",
		slog.String("level", logCfg.Level),
		slog.String("format", logCfg.Format))
}
