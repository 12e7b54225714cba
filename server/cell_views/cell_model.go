// cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"fmt"

	"pickpath/animation"
	"pickpath/models"
)

// Scene is everything needed to draw the warehouse at one instant: the static grid and the
// playback frame over it.
type Scene struct {
	Grid  models.Grid
	Frame animation.Frame
}

// Cell converts the grid and the playback state into a flat per-cell record for templates,
// indexed [row][col] with [0][0] at top left, as the page lays them out. As a rule of thumb,
// Cell fields should be immediately usable as view parameters.
type Cell struct {
	Row, Col int
	Category Category
	// Head is set on the cell under the cursor.
	Head bool
}

// Id is the element id of the cell in the page.
func (c Cell) Id() string {
	return CellId(models.Coord{Row: c.Row, Col: c.Col})
}

// Class is the css class attribute of the cell.
func (c Cell) Class() string {
	return "cell " + c.Category.String()
}

// Fill is the color of the cell in the page and the terminal.
func (c Cell) Fill() string {
	return getFill(c.Category)
}

// CellId returns the element id for a grid coordinate.
func CellId(c models.Coord) string {
	return fmt.Sprintf("cell-%d-%d", c.Row, c.Col)
}

// Convert classifies every cell of the scene's grid. An empty grid converts to no cells.
func Convert(scene Scene) (cells [][]Cell) {
	grid := scene.Grid
	cells = make([][]Cell, grid.Rows())
	for r := range cells {
		cells[r] = make([]Cell, grid.Cols())
	}

	products := ProductIndex(scene.Frame.Path)
	head, hasHead := scene.Frame.Head()
	grid.VisitCells(func(c models.Coord, _ bool) {
		cells[c.Row][c.Col] = Cell{
			Row:      c.Row,
			Col:      c.Col,
			Category: ClassifyIndexed(grid, c, products, scene.Frame.Index),
			Head:     hasHead && head.Coord == c,
		}
	})
	return
}

func getFill(category Category) (fill string) {
	switch category {
	case ProductVisited:
		fill = "#eab308"
	case ProductPending:
		fill = "#ef4444"
	case Occupied:
		fill = "#3b82f6"
	case Free:
		fill = "#e5e7eb"
	}
	return
}
