// animation drives playback of an expanded path: a Cursor is the steppable state machine,
// and a Player owns the single timer that steps it.
package animation

import (
	"fmt"

	"pickpath/models"
)

// State is the playback state of a Cursor.
type State int

const (
	// Idle: no path loaded, or the loaded path was empty.
	Idle State = iota
	// Playing: the index advances on each tick.
	Playing
	// Done: the index is pinned at the final cell; further ticks are no-ops.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Cursor tracks the playback position within one expanded path. The path is owned by the
// cursor and never mutated; a new path requires a new Cursor. The index only ever increases
// and is clamped to the final cell. Cursor is not safe for concurrent use; Player serializes it.
type Cursor struct {
	path  []models.Waypoint
	index int
	state State
}

// NewCursor loads a copy of path. A non-empty path starts Playing at index 0, an empty one
// stays Idle.
func NewCursor(path []models.Waypoint) *Cursor {
	cur := &Cursor{
		path: append([]models.Waypoint(nil), path...),
	}
	if len(cur.path) > 0 {
		cur.state = Playing
	}
	return cur
}

// Tick advances the index by one, clamped to the final cell, and reports whether it moved.
// Reaching the final cell transitions to Done, after which ticks do nothing.
func (cur *Cursor) Tick() (advanced bool) {
	if cur.state != Playing {
		return false
	}

	last := len(cur.path) - 1
	next := min(cur.index+1, last)
	advanced = next != cur.index
	cur.index = next
	if cur.index == last {
		cur.state = Done
	}
	return
}

func (cur *Cursor) Index() int {
	return cur.index
}

func (cur *Cursor) State() State {
	return cur.state
}

func (cur *Cursor) Len() int {
	return len(cur.path)
}

// Head returns the cell under the cursor; false when the path is empty.
func (cur *Cursor) Head() (models.Waypoint, bool) {
	if len(cur.path) == 0 {
		return models.Waypoint{}, false
	}
	return cur.path[cur.index], true
}

// Frame is an immutable snapshot of playback, published on load and on every tick.
// Frames are idempotent: the latest frame alone fully describes what to render.
type Frame struct {
	// Generation increments on every load, so consumers can tell a replaced path apart.
	Generation uint64
	// Path is shared with the cursor and must not be modified.
	Path  []models.Waypoint
	Index int
	State State
}

func (cur *Cursor) frame(generation uint64) Frame {
	return Frame{
		Generation: generation,
		Path:       cur.path,
		Index:      cur.index,
		State:      cur.state,
	}
}

// Head returns the cell under the frame's cursor; false when there is nothing to draw.
func (f Frame) Head() (models.Waypoint, bool) {
	if len(f.Path) == 0 {
		return models.Waypoint{}, false
	}
	return f.Path[f.Index], true
}
