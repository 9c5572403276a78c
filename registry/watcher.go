package registry

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// startWatcher evicts cached artifacts whose backing file changed on disk.
// The serving state is write-once and unaffected; this only keeps later
// registry loads from returning a stale handle. Watch failures are non-fatal.
func (s *Store) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("artifact watcher unavailable", zap.Error(err))
		return
	}
	if err := watcher.Add(s.config.ArtifactDir); err != nil {
		s.logger.Warn("cannot watch artifact dir",
			zap.String("dir", s.config.ArtifactDir), zap.Error(err))
		watcher.Close()
		return
	}

	s.watchDone = make(chan struct{})
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				runID := strings.TrimSuffix(filepath.Base(event.Name), ".json")
				if s.cache.Remove(runID) {
					s.logger.Info("evicted cached artifact",
						zap.String("run_id", runID), zap.String("op", event.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("artifact watcher error", zap.Error(err))
			case <-s.watchDone:
				return
			}
		}
	}()
}
