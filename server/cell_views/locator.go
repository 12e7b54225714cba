package cell_views

import (
	"errors"
	"sync"

	"pickpath/models"
	"pickpath/server/fastview"
	"pickpath/viewport"
)

// Publisher delivers element updates to every connected page.
type Publisher interface {
	Publish([]fastview.EleUpdate)
}

// GridLocator resolves grid cells to their element ids in the warehouse view and scrolls
// them into view on every connected page.
type GridLocator struct {
	publisher Publisher

	mu   sync.RWMutex
	grid models.Grid
}

func NewGridLocator(publisher Publisher) *GridLocator {
	return &GridLocator{publisher: publisher}
}

// SetGrid replaces the grid cells are resolved against.
func (gl *GridLocator) SetGrid(grid models.Grid) {
	gl.mu.Lock()
	gl.grid = grid
	gl.mu.Unlock()
}

// Locate returns the element id of the cell; false when the cell is not drawn.
func (gl *GridLocator) Locate(c models.Coord) (viewport.Handle, bool) {
	gl.mu.RLock()
	defer gl.mu.RUnlock()
	if !gl.grid.InBounds(c) {
		return "", false
	}
	return viewport.Handle(CellId(c)), true
}

var ErrEmptyHandle = errors.New("empty element handle")

// ScrollIntoView asks pages to smoothly scroll the element into view.
func (gl *GridLocator) ScrollIntoView(handle viewport.Handle) error {
	if handle == "" {
		return ErrEmptyHandle
	}
	gl.publisher.Publish([]fastview.EleUpdate{{
		EleId: string(handle),
		Ops:   []fastview.Op{{Key: fastview.OpScrollIntoView, Value: "smooth"}},
	}})
	return nil
}
