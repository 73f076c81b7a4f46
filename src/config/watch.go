package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch calls onChange with the re-read config each time the file at path is
// written or replaced. Editors often emit several events per save, so changes
// are debounced. A file that fails to parse is logged and skipped. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(AppConfig)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: atomic saves replace the file and would drop a
	// watch on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	log.Printf("Watching %s for changes", abs)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("Config watcher error: %v", err)
		case <-fire:
			fire = nil
			cfg, err := ReadFile(abs)
			if err != nil {
				log.Printf("Ignoring invalid config change in %s: %v", abs, err)
				continue
			}
			log.Printf("Config reloaded: region %dx%d@(%d,%d)",
				cfg.OCR.CaptureWidth, cfg.OCR.CaptureHeight, cfg.OCR.CaptureX, cfg.OCR.CaptureY)
			onChange(cfg)
		}
	}
}
