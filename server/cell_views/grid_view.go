package cell_views

import (
	"fmt"
	"html/template"
	"sync"

	"pickpath/models"
	"pickpath/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Pixel geometry of the grid; the head marker is positioned from it.
const (
	cellSize  = 10
	cellGap   = 1
	headSize  = cellSize * 6 / 10
	headInset = cellSize * 2 / 10
)

const (
	gridId   = "warehouse"
	headId   = "worker-head"
	statusId = "playback-status"
)

// WarehouseGrid draws one div per grid cell, colored by category, plus the worker's head
// marker and the playback status line. Only cells whose class changed are sent; a newly
// connected page catches up with Snapshot.
type WarehouseGrid struct {
	updates <-chan []fastview.EleUpdate
	// Last class sent per cell id. Only touched from the conversion goroutine.
	classes map[string]string

	mu      sync.Mutex
	last    Board
	hasLast bool
}

func NewWarehouseGrid(
	done <-chan struct{},
	boards <-chan Board,
) *WarehouseGrid {
	wg := &WarehouseGrid{classes: map[string]string{}}
	wg.updates = channerics.Convert(done, boards, wg.onUpdate)
	return wg
}

func (wg *WarehouseGrid) Updates() <-chan []fastview.EleUpdate {
	return wg.updates
}

func (wg *WarehouseGrid) onUpdate(board Board) (ops []fastview.EleUpdate) {
	wg.mu.Lock()
	wg.last, wg.hasLast = board, true
	wg.mu.Unlock()

	for _, row := range board.Cells {
		for _, cell := range row {
			id, class := cell.Id(), cell.Class()
			if wg.classes[id] == class {
				continue
			}
			wg.classes[id] = class
			ops = append(ops, fastview.EleUpdate{
				EleId: id,
				Ops:   []fastview.Op{{Key: "class", Value: class}},
			})
		}
	}

	return append(ops, markers(board)...)
}

// Snapshot returns the updates that bring a page rendered from any earlier board up to
// the latest one. It is empty until the first board arrives.
func (wg *WarehouseGrid) Snapshot() (ops []fastview.EleUpdate) {
	wg.mu.Lock()
	board, ok := wg.last, wg.hasLast
	wg.mu.Unlock()
	if !ok {
		return nil
	}

	for _, row := range board.Cells {
		for _, cell := range row {
			ops = append(ops, fastview.EleUpdate{
				EleId: cell.Id(),
				Ops:   []fastview.Op{{Key: "class", Value: cell.Class()}},
			})
		}
	}
	return append(ops, markers(board)...)
}

func markers(board Board) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		{
			EleId: headId,
			Ops:   []fastview.Op{{Key: "style", Value: headStyle(board.Head)}},
		},
		{
			EleId: statusId,
			Ops:   []fastview.Op{{Key: fastview.OpTextContent, Value: board.Status}},
		},
	}
}

func headStyle(head *models.Coord) string {
	if head == nil {
		return "display:none"
	}
	return fmt.Sprintf("top:%dpx;left:%dpx",
		head.Row*(cellSize+cellGap)+headInset,
		head.Col*(cellSize+cellGap)+headInset)
}

// Parse adds the grid template, which renders a Page's board.
func (wg *WarehouseGrid) Parse(t *template.Template) (name string, err error) {
	name = gridId
	addedMap := template.FuncMap{
		// css values containing ';' are filtered unless typed as template.CSS
		"headStyle": func(head *models.Coord) template.CSS { return template.CSS(headStyle(head)) },
	}
	_, err = t.Funcs(addedMap).Parse(`{{ define "` + name + `" }}
		<style>
			.cell { width: ` + px(cellSize) + `; height: ` + px(cellSize) + `; }
			.product-visited { background-color: ` + getFill(ProductVisited) + `; }
			.product-pending { background-color: ` + getFill(ProductPending) + `; }
			.occupied { background-color: ` + getFill(Occupied) + `; }
			.free { background-color: ` + getFill(Free) + `; }
			#` + headId + ` {
				position: absolute; pointer-events: none; border-radius: 50%;
				width: ` + px(headSize) + `; height: ` + px(headSize) + `; background-color: tomato;
			}
		</style>
		<p id="` + statusId + `">{{ .Board.Status }}</p>
		{{ if .Board.Rows }}
		<div id="` + gridId + `" style="position: relative; display: grid; overflow: auto; max-height: 80vh;
			grid-template-columns: repeat({{ .Board.Cols }}, ` + px(cellSize) + `);
			grid-template-rows: repeat({{ .Board.Rows }}, ` + px(cellSize) + `);
			gap: ` + px(cellGap) + `;">
			{{ range $row := .Board.Cells }}{{ range $cell := $row }}
			<div id="{{ $cell.Id }}" class="{{ $cell.Class }}" data-row="{{ $cell.Row }}" data-col="{{ $cell.Col }}"></div>
			{{ end }}{{ end }}
			<div id="` + headId + `" style="{{ headStyle .Board.Head }}"></div>
		</div>
		{{ else }}
		<p>No warehouse grid loaded.</p>
		{{ end }}
	{{ end }}`)
	return
}

func px(n int) string {
	return fmt.Sprintf("%dpx", n)
}
