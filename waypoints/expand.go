// waypoints turns the sparse, tagged waypoint sequences of an order into dense paths that
// can be stepped one cell at a time.
package waypoints

import (
	"pickpath/models"
)

// Expand converts a raw waypoint sequence into a dense, steppable sequence:
//   - a PRODUCT waypoint is emitted bracketed by its predecessor (the approach cell), so
//     every pickup is preceded by the cell it was approached from;
//   - a gap between two consecutive untagged waypoints is filled cell by cell, starting at
//     the earlier waypoint and stopping short of the later one, which is emitted on its own
//     turn or by the trailing append;
//   - no cells are emitted between a PRODUCT waypoint and an untagged successor;
//   - the last raw waypoint is always appended, so the path ends where the order ends.
//
// Interpolated cells are untagged. Expand is pure; an empty input yields an empty path.
func Expand(raw []models.Waypoint) []models.Waypoint {
	expanded := []models.Waypoint{}
	if len(raw) == 0 {
		return expanded
	}

	for i, cur := range raw {
		if cur.IsProduct() {
			if i > 0 {
				expanded = append(expanded, raw[i-1])
			}
			expanded = append(expanded, cur)
			continue
		}

		if i == 0 || raw[i-1].IsProduct() {
			continue
		}
		expanded = fill(expanded, raw[i-1], cur.Coord)
	}

	return append(expanded, raw[len(raw)-1])
}

// fill appends from, then every cell on the walk toward target, excluding target itself.
// Each step moves every axis that still differs by one unit toward the target, so straight
// and diagonal gaps are walked along their line, and any other gap walks diagonally until
// one axis matches, then straight. Every step is Chebyshev-adjacent to the last and the walk
// always terminates.
func fill(path []models.Waypoint, from models.Waypoint, target models.Coord) []models.Waypoint {
	cur := from
	for cur.Coord != target {
		path = append(path, cur)
		cur = models.Waypoint{
			Coord: models.Coord{
				Row: cur.Row + sign(target.Row-cur.Row),
				Col: cur.Col + sign(target.Col-cur.Col),
			},
		}
	}
	return path
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// Chebyshev returns the Chebyshev (king move) distance between two cells.
func Chebyshev(a, b models.Coord) int {
	dr, dc := a.Row-b.Row, a.Col-b.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	if dr > dc {
		return dr
	}
	return dc
}
