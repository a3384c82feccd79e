package repository

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/laguz/internal/kvstore"
)

// EventCallback is called after a watcher-driven reload.
type EventCallback func(kind string)

// Watch starts an fsnotify watcher on a file-backed store's data
// directory and processes change events until ctx is cancelled. When an
// external process rewrites the notes key, the derived search index is
// refreshed and cb (if non-nil) is invoked with "notes.reloaded".
//
// Events are debounced: the atomic tmp-write-rename sequence fires
// several fsnotify events for a single logical save.
func (r *Repository) Watch(ctx context.Context, fs *kvstore.FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", fs.Root()))

	notesFile := NotesKey + ".json"

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			notes, loadErr := r.LoadAll()
			if loadErr != nil {
				logger.Warn("watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			if idxErr := r.RefreshIndex(notes); idxErr != nil {
				logger.Warn("watcher: index refresh failed", slog.String("error", idxErr.Error()))
			}
			logger.Debug("watcher: notes reloaded", slog.Int("count", len(notes)))
			if cb != nil {
				cb("notes.reloaded")
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != notesFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
