package cell_views

import (
	"fmt"

	"pickpath/models"
)

// Category is the display class of a grid cell for one cursor position.
type Category int

const (
	// ProductVisited: a pickup the worker has already reached.
	ProductVisited Category = iota
	// ProductPending: a pickup further along the path.
	ProductPending
	// Occupied: shelving or wall, not a pickup on this path.
	Occupied
	// Free: floor.
	Free
)

// String returns the css class name of the category.
func (c Category) String() string {
	switch c {
	case ProductVisited:
		return "product-visited"
	case ProductPending:
		return "product-pending"
	case Occupied:
		return "occupied"
	case Free:
		return "free"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Classify returns the category of cell given the expanded path and the cursor index.
// A cell that appears as a product waypoint more than once is judged by its first
// occurrence only. Classify has no side effects and touches neither path nor grid.
func Classify(grid models.Grid, cell models.Coord, path []models.Waypoint, currentIndex int) Category {
	for i, wp := range path {
		if wp.Coord == cell && wp.IsProduct() {
			return productCategory(i, currentIndex)
		}
	}
	return staticCategory(grid, cell)
}

// ProductIndex maps each product cell of path to the index of its first occurrence.
// ClassifyIndexed with this map gives the same answers as Classify without rescanning
// the path for every cell.
func ProductIndex(path []models.Waypoint) map[models.Coord]int {
	index := map[models.Coord]int{}
	for i, wp := range path {
		if !wp.IsProduct() {
			continue
		}
		if _, seen := index[wp.Coord]; !seen {
			index[wp.Coord] = i
		}
	}
	return index
}

// ClassifyIndexed is Classify over a precomputed ProductIndex.
func ClassifyIndexed(grid models.Grid, cell models.Coord, products map[models.Coord]int, currentIndex int) Category {
	if i, ok := products[cell]; ok {
		return productCategory(i, currentIndex)
	}
	return staticCategory(grid, cell)
}

func productCategory(productIndex, currentIndex int) Category {
	if productIndex <= currentIndex {
		return ProductVisited
	}
	return ProductPending
}

func staticCategory(grid models.Grid, cell models.Coord) Category {
	if grid.Occupied(cell) {
		return Occupied
	}
	return Free
}
