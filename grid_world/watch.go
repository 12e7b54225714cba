package grid_world

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"pickpath/models"
)

// Watch reloads the layout at path whenever it changes on disk and passes each successfully
// parsed grid to onChange. The parent directory is watched rather than the file, since
// editors commonly replace files instead of writing them in place. A layout that fails to
// parse is logged and skipped; the previous grid stays in effect. Watch blocks until ctx
// is cancelled.
func Watch(
	ctx context.Context,
	path string,
	logger *slog.Logger,
	onChange func(models.Grid),
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("layout watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("layout watcher: %w", err)
	}
	if err = watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("layout watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			grid, loadErr := FromFile(abs)
			if loadErr != nil {
				logger.Warn("layout reload failed", "path", abs, "err", loadErr)
				continue
			}
			logger.Info("layout reloaded", "path", abs, "rows", grid.Rows(), "cols", grid.Cols())
			onChange(grid)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("layout watcher error", "err", watchErr)
		}
	}
}
