package attributes

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/logger"
)

// Watch reloads configuration files in dir whenever they are written or
// created. It returns once the watch is established; the watch stops when
// ctx is cancelled. changed, if non-nil, is called with the handle of every
// reloaded entry from the watcher goroutine.
func (m *Manager) Watch(ctx context.Context, dir string, changed func(handle string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

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
				if !strings.HasSuffix(ev.Name, FileSuffix) || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				attrs, err := m.LoadByPath(ev.Name)
				if err != nil {
					// Partial writes fail to parse; a later event reloads.
					logger.Debug("reload failed", zap.String("path", ev.Name), zap.Error(err))
					continue
				}
				logger.Info("attributes reloaded", zap.String("handle", attrs.Handle))
				if changed != nil {
					changed(attrs.Handle)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("attributes watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
