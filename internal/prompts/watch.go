package prompts

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor produces on save
const reloadDelay = 200 * time.Millisecond

// Watch refreshes the registry whenever a preset file in one of its
// directories changes, calling onChange (if set) after each reload. It
// blocks until ctx is done. Directories that do not exist yet are not
// watched.
func (r *Registry) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range r.loader.paths {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.Add(dir); err != nil {
			r.loader.logger.Warn("cannot watch preset directory", "path", dir, "error", err)
		}
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasSuffix(ev.Name, ".md") {
				timer.Reset(reloadDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.loader.logger.Warn("preset watcher error", "error", err)
		case <-timer.C:
			if err := r.Refresh(); err != nil {
				r.loader.logger.Warn("failed to reload presets", "error", err)
				continue
			}
			r.loader.logger.Debug("presets reloaded", "count", len(r.Names()))
			if onChange != nil {
				onChange()
			}
		}
	}
}
