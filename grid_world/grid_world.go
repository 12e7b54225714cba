// grid_world loads warehouse layouts into occupancy grids. Layouts come either as
// rune art, in the manner of the classical race tracks, or as a JSON boolean matrix
// as produced by the layout upload.
package grid_world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pickpath/models"
)

// Layout cell runes. Anything not listed as free is treated as occupied.
const (
	SHELF = '#'
	WALL  = 'W'
	FLOOR = '.'
	TRACK = 'o'
	SPACE = ' '
)

// A small warehouse for development: two shelving aisles with a cross aisle.
var DebugLayout []string = []string{
	"WWWWWWWWWWWW",
	"W..........W",
	"W.##.##.##.W",
	"W.##.##.##.W",
	"W..........W",
	"W.##.##.##.W",
	"W.##.##.##.W",
	"W..........W",
	"WWWWWWWWWWWW",
}

func isFree(r rune) bool {
	return r == FLOOR || r == TRACK || r == SPACE
}

// Convert transforms rune art into an occupancy grid indexed [row][col], where row 0 is the
// top line as printed. Short lines are padded with free cells so the grid is rectangular.
func Convert(layout []string) (models.Grid, error) {
	width := 0
	for _, line := range layout {
		if n := len([]rune(line)); n > width {
			width = n
		}
	}

	cells := make([][]bool, 0, len(layout))
	for _, line := range layout {
		row := make([]bool, width)
		for col, r := range []rune(line) {
			row[col] = !isFree(r)
		}
		cells = append(cells, row)
	}

	return models.NewGrid(cells)
}

// layoutEnvelope is the create_warehouse payload shape: {"layout": [[...], ...]}.
type layoutEnvelope struct {
	Layout [][]bool `json:"layout"`
}

// FromBytes parses a JSON layout (a bare matrix or an envelope with a layout key) or,
// failing that, rune art. The name is only used for error messages.
func FromBytes(name string, data []byte) (models.Grid, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.Grid{}, nil
	}

	switch trimmed[0] {
	case '[':
		var matrix [][]bool
		if err := json.Unmarshal(trimmed, &matrix); err != nil {
			return models.Grid{}, fmt.Errorf("%s: layout matrix: %w", name, err)
		}
		return models.NewGrid(matrix)
	case '{':
		var env layoutEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return models.Grid{}, fmt.Errorf("%s: layout envelope: %w", name, err)
		}
		return models.NewGrid(env.Layout)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	// Drop trailing blank lines left by editors.
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return Convert(lines)
}

// FromFile reads a layout file. An empty path yields the empty grid.
func FromFile(path string) (models.Grid, error) {
	if path == "" {
		return models.Grid{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Grid{}, fmt.Errorf("read layout: %w", err)
	}
	return FromBytes(filepath.Base(path), data)
}

// ShowGrid renders the occupancy grid as rune art, for visual reference.
func ShowGrid(grid models.Grid) string {
	var sb strings.Builder
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Cols(); c++ {
			if grid.Occupied(models.Coord{Row: r, Col: c}) {
				sb.WriteRune(SHELF)
			} else {
				sb.WriteRune(FLOOR)
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
