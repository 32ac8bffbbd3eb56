package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const defaultWatchInterval = 30 * time.Second

// businessesWatcher polls businesses.yaml by modification time.
type businessesWatcher struct {
	path     string
	seen     time.Time
	onUpdate func(*BusinessesConfig)
}

// poll reloads the file if its mtime differs from the last one seen. The
// mtime is recorded before parsing, so a broken file fails once per change.
func (w *businessesWatcher) poll() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		// Editors replace the file on save; try again next tick.
		return false, nil
	}
	if info.ModTime().Equal(w.seen) {
		return false, nil
	}
	w.seen = info.ModTime()

	cfg, err := LoadBusinessesConfig(w.path)
	if err != nil {
		return false, err
	}
	w.onUpdate(cfg)
	return true, nil
}

func (w *businessesWatcher) run(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		reloaded, err := w.poll()
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("path", w.path).Msg("businesses reload failed, keeping previous overrides")
		case reloaded:
			logger.Info().Str("path", w.path).Msg("businesses reloaded")
		}
	}
}

// WatchBusinesses loads path, hands it to onUpdate, then keeps polling in the
// background until ctx ends. Only the initial load can fail.
func WatchBusinesses(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*BusinessesConfig)) error {
	if path == "" {
		path = "configs/businesses.yaml"
	}
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	if onUpdate == nil {
		onUpdate = func(*BusinessesConfig) {}
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "businesses").Logger()
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	cfg, err := LoadBusinessesConfig(path)
	if err != nil {
		return err
	}
	onUpdate(cfg)

	w := &businessesWatcher{path: path, seen: info.ModTime(), onUpdate: onUpdate}
	go w.run(ctx, interval, log)
	return nil
}
