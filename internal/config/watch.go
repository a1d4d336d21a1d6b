package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it changes on disk. The
// log level and engine seed can be applied to a running server; onChange is
// called only when one of them differs from the last applied config, which
// starts as current. Edits to any other section are logged as needing a
// restart. A file that fails to load or validate is logged and skipped.
//
// The parent directory is watched rather than the file, so saves that
// replace the file by renaming a temp file over it keep being seen.
// Watch runs until ctx is cancelled.
func Watch(ctx context.Context, path string, current *Config, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(target), err)
	}
	slog.Info("config: watching for changes", "path", target)

	applied := current
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// A truncating write shows the file empty before the new bytes land.
			if info, err := os.Stat(target); err == nil && info.Size() == 0 {
				continue
			}

			next, err := Load(target)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", target, "err", err)
				continue
			}
			if sections := restartSections(applied, next); len(sections) > 0 {
				slog.Warn("config: changes need a restart", "sections", sections)
			}
			if !runtimeChanged(applied, next) {
				continue
			}

			slog.Info("config: reloaded", "path", target,
				"log_level", next.Log.SlogLevel().String(), "engine_seed", next.Engine.Seed)
			applied = next
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// runtimeChanged reports whether next differs from prev in a setting a
// running server applies.
func runtimeChanged(prev, next *Config) bool {
	if prev == nil {
		return true
	}
	return prev.Log.SlogLevel() != next.Log.SlogLevel() || prev.Engine.Seed != next.Engine.Seed
}

// restartSections names the sections of next that differ from prev and
// only take effect on restart.
func restartSections(prev, next *Config) []string {
	if prev == nil {
		return nil
	}
	var sections []string
	for _, s := range []struct {
		name      string
		old, curr interface{}
	}{
		{"server", prev.Server, next.Server},
		{"storage", prev.Storage, next.Storage},
		{"auth", prev.Auth, next.Auth},
		{"classifier", prev.Classifier, next.Classifier},
		{"publisher", prev.Publisher, next.Publisher},
	} {
		if !reflect.DeepEqual(s.old, s.curr) {
			sections = append(sections, s.name)
		}
	}
	return sections
}
