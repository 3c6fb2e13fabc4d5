package gen

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch regenerates whenever the definition file changes. The watcher
// follows the parent directory because editors replace files on save.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, regen func(*Definition) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("gen: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("gen: watch %s: %w", filepath.Dir(abs), err)
	}

	// Changes are debounced so a save producing several events runs a
	// single regeneration.
	var (
		timer   = time.NewTimer(0)
		pending bool
	)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending {
				timer.Stop()
			}
			pending = true
			timer.Reset(100 * time.Millisecond)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("gen: watch: %w", err)
		case <-timer.C:
			pending = false
			def, err := Load(abs)
			if err != nil {
				return err
			}
			if err := regen(def); err != nil {
				return err
			}
		}
	}
}
