package cell_views

import (
	"fmt"

	"pickpath/animation"
	"pickpath/models"
)

// Board is the view-model shared by the warehouse views: the classified cells, the head
// marker position and a one-line playback status.
type Board struct {
	Cells [][]Cell
	// Head is nil when nothing is playing; the marker is hidden.
	Head   *models.Coord
	Status string
}

// NewBoard converts a scene into its board.
func NewBoard(scene Scene) Board {
	board := Board{
		Cells:  Convert(scene),
		Status: status(scene.Frame),
	}
	if head, ok := scene.Frame.Head(); ok && scene.Grid.InBounds(head.Coord) {
		board.Head = &head.Coord
	}
	return board
}

func (b Board) Rows() int {
	return len(b.Cells)
}

func (b Board) Cols() int {
	if len(b.Cells) == 0 {
		return 0
	}
	return len(b.Cells[0])
}

func status(f animation.Frame) string {
	if f.State == animation.Idle {
		return "idle"
	}
	return fmt.Sprintf("%s %d/%d", f.State, f.Index+1, len(f.Path))
}
