package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/gapi"
)

// watchEffect sends the contents of path each time it is written. Editors
// often replace files, so the directory is watched.
func watchEffect(ctx context.Context, path string) (<-chan string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("gapidemo: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("gapidemo: watch %s: %w", path, err)
	}

	out := make(chan string, 1)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				b, err := os.ReadFile(abs)
				if err != nil {
					gapi.Logger().Warn("gapidemo: read effect", "err", err)
					continue
				}
				// Drop a pending reload in favour of the newer source.
				select {
				case <-out:
				default:
				}
				out <- string(b)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				gapi.Logger().Warn("gapidemo: watch", "err", err)
			}
		}
	}()
	return out, nil
}
