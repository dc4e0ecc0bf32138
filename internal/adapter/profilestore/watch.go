package profilestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

const defaultDebounce = 300 * time.Millisecond

// Watch reloads the profiles file whenever it changes on disk and hands the
// new list to onChange. Events inside the debounce window coalesce into one
// reload. The directory is watched rather than the file because editors and
// SaveAll replace the file by rename. Watch blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, onChange func([]domain.ConnectionProfile)) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("op=profiles.watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("op=profiles.watch: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("op=profiles.watch: %w", err)
	}

	target := filepath.Clean(s.Path)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("profiles watcher error", slog.Any("error", err))
		case <-fire:
			fire = nil
			profiles, err := s.Load()
			if err != nil {
				slog.Error("profiles reload failed", slog.String("path", s.Path), slog.Any("error", err))
				continue
			}
			slog.Info("profiles reloaded", slog.String("path", s.Path), slog.Int("count", len(profiles)))
			if onChange != nil {
				onChange(profiles)
			}
		}
	}
}
