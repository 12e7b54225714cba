package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Coord is a grid position. Rows grow downward and columns grow rightward, both from zero,
// which is also the order in which the page lays out cells.
type Coord struct {
	Row, Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Tag marks whether a waypoint is a pickup location.
type Tag int

const (
	TagNone Tag = iota
	TagProduct
)

// The wire value of TagProduct. Any other value, including null, decodes to TagNone.
const productTag = "product"

func (t Tag) String() string {
	switch t {
	case TagProduct:
		return productTag
	case TagNone:
		return "none"
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

func (t Tag) MarshalJSON() ([]byte, error) {
	if t == TagProduct {
		return json.Marshal(productTag)
	}
	return []byte("null"), nil
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	*t = TagNone
	if s != nil && *s == productTag {
		*t = TagProduct
	}
	return nil
}

// Waypoint is a tagged grid coordinate within a path group. On the wire a waypoint
// is a positional tuple [row, col, tag], where the tag may be omitted.
type Waypoint struct {
	Coord
	Tag Tag
}

// IsProduct reports whether the waypoint is a pickup location.
func (wp Waypoint) IsProduct() bool {
	return wp.Tag == TagProduct
}

// ErrBadWaypoint is returned when a waypoint tuple is not [row, col] or [row, col, tag]
// with non-negative integer coordinates.
var ErrBadWaypoint = errors.New("waypoint must be [row, col, tag] with non-negative coordinates")

func (wp Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{wp.Row, wp.Col, wp.Tag})
}

func (wp *Waypoint) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrBadWaypoint, err)
	}
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("%w: got %d fields", ErrBadWaypoint, len(fields))
	}

	decoded := Waypoint{}
	if err := json.Unmarshal(fields[0], &decoded.Row); err != nil {
		return fmt.Errorf("%w: row: %v", ErrBadWaypoint, err)
	}
	if err := json.Unmarshal(fields[1], &decoded.Col); err != nil {
		return fmt.Errorf("%w: col: %v", ErrBadWaypoint, err)
	}
	if decoded.Row < 0 || decoded.Col < 0 {
		return fmt.Errorf("%w: got %v", ErrBadWaypoint, decoded.Coord)
	}
	if len(fields) == 3 {
		if err := json.Unmarshal(fields[2], &decoded.Tag); err != nil {
			return fmt.Errorf("%w: %v", ErrBadWaypoint, err)
		}
	}

	*wp = decoded
	return nil
}

// Order is a pick request for one worker. MovingCells holds one or more raw path groups,
// each an ordered, possibly sparse, sequence of waypoints.
type Order struct {
	ID               string         `json:"id"`
	WorkerID         int            `json:"worker_id"`
	MovingCells      [][]Waypoint   `json:"moving_cells"`
	SelectedProducts map[string]int `json:"selected_products"`
	ReceivedAt       time.Time      `json:"received_at"`
}

// VisualPath returns the raw waypoints that are animated for this order. Only the first
// path group is visualized; the remaining groups are carried but never traversed.
func (o *Order) VisualPath() []Waypoint {
	if len(o.MovingCells) == 0 {
		return nil
	}
	return o.MovingCells[0]
}

// SKUs returns the selected product SKUs in a stable order, for listing.
func (o *Order) SKUs() []string {
	skus := make([]string, 0, len(o.SelectedProducts))
	for sku := range o.SelectedProducts {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}

// Grid is an immutable occupancy matrix indexed [row][col]; true means the cell is occupied
// (shelving, walls), false means it is free floor.
type Grid struct {
	cells [][]bool
	cols  int
}

// ErrRaggedGrid is returned when the rows of a layout differ in length.
var ErrRaggedGrid = errors.New("grid rows differ in length")

// NewGrid copies the passed layout into a Grid. A nil or zero-row layout yields the empty
// grid, which means "no grid loaded".
func NewGrid(layout [][]bool) (Grid, error) {
	if len(layout) == 0 {
		return Grid{}, nil
	}

	cols := len(layout[0])
	cells := make([][]bool, len(layout))
	for r, row := range layout {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("%w: row %d has %d cols, expected %d", ErrRaggedGrid, r, len(row), cols)
		}
		cells[r] = append([]bool(nil), row...)
	}

	return Grid{cells: cells, cols: cols}, nil
}

func (g Grid) Rows() int {
	return len(g.cells)
}

func (g Grid) Cols() int {
	return g.cols
}

// Empty reports whether no grid is loaded; an empty grid renders nothing and
// accepts no visualization requests.
func (g Grid) Empty() bool {
	return g.Rows() == 0 || g.cols == 0
}

func (g Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.Rows() && c.Col >= 0 && c.Col < g.cols
}

// ErrOutOfGrid is returned when a path names a cell outside the grid.
var ErrOutOfGrid = errors.New("waypoint outside the grid")

// CheckPath returns ErrOutOfGrid for the first waypoint not on the grid.
func (g Grid) CheckPath(path []Waypoint) error {
	for i, p := range path {
		if !g.InBounds(p.Coord) {
			return fmt.Errorf("%w: waypoint %d at %v on a %dx%d grid", ErrOutOfGrid, i, p.Coord, g.Rows(), g.cols)
		}
	}
	return nil
}

// Occupied returns the static occupancy of a cell. Out of bounds cells are free.
func (g Grid) Occupied(c Coord) bool {
	return g.InBounds(c) && g.cells[c.Row][c.Col]
}

// Layout returns a copy of the occupancy matrix.
func (g Grid) Layout() [][]bool {
	layout := make([][]bool, len(g.cells))
	for r, row := range g.cells {
		layout[r] = append([]bool(nil), row...)
	}
	return layout
}

// VisitCells visits every cell in row-major order using the passed function.
func (g Grid) VisitCells(fn func(c Coord, occupied bool)) {
	for r := range g.cells {
		for c := range g.cells[r] {
			fn(Coord{Row: r, Col: c}, g.cells[r][c])
		}
	}
}
