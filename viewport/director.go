// viewport brings the start of a newly loaded path into view.
package viewport

import (
	"log/slog"

	"pickpath/models"
)

// Handle identifies a rendered grid cell to the rendering side, e.g. an element id.
type Handle string

// Locator is the capability the renderer supplies for scrolling. Locate reports false when
// the cell has no rendered element, for instance before the grid has been drawn.
type Locator interface {
	Locate(models.Coord) (Handle, bool)
	ScrollIntoView(Handle) error
}

// Director requests a smooth scroll to the first cell of each newly loaded path.
type Director struct {
	locator Locator
	logger  *slog.Logger
}

func NewDirector(locator Locator, logger *slog.Logger) *Director {
	return &Director{
		locator: locator,
		logger:  logger,
	}
}

// OnPathLoaded scrolls the path's first cell into view. An empty path, an unresolvable cell
// or a failed scroll are logged and otherwise ignored.
func (d *Director) OnPathLoaded(path []models.Waypoint) {
	if len(path) == 0 {
		return
	}

	start := path[0].Coord
	handle, ok := d.locator.Locate(start)
	if !ok {
		d.logger.Warn("scroll target not rendered", "cell", start)
		return
	}
	if err := d.locator.ScrollIntoView(handle); err != nil {
		d.logger.Warn("scroll into view failed", "cell", start, "err", err)
	}
}
