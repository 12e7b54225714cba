package grid_world

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pickpath/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConvert(t *testing.T) {
	Convey("When rune art is converted", t, func() {
		grid, err := Convert([]string{
			"W#.",
			"o ",
		})
		So(err, ShouldBeNil)

		Convey("Short lines are padded with free cells", func() {
			So(grid.Rows(), ShouldEqual, 2)
			So(grid.Cols(), ShouldEqual, 3)
			So(grid.Occupied(models.Coord{Row: 1, Col: 2}), ShouldBeFalse)
		})

		Convey("Walls and shelves are occupied, floor is free", func() {
			So(grid.Occupied(models.Coord{Row: 0, Col: 0}), ShouldBeTrue)
			So(grid.Occupied(models.Coord{Row: 0, Col: 1}), ShouldBeTrue)
			So(grid.Occupied(models.Coord{Row: 0, Col: 2}), ShouldBeFalse)
			So(grid.Occupied(models.Coord{Row: 1, Col: 0}), ShouldBeFalse)
		})

		Convey("ShowGrid renders it back as rune art", func() {
			So(ShowGrid(grid), ShouldEqual, "##.\n...\n")
		})

		Convey("The debug layout is rectangular", func() {
			debug, err := Convert(DebugLayout)
			So(err, ShouldBeNil)
			So(debug.Rows(), ShouldEqual, len(DebugLayout))
			So(debug.Cols(), ShouldEqual, len(DebugLayout[0]))
		})
	})
}

func TestFromBytes(t *testing.T) {
	Convey("When layouts are parsed", t, func() {
		Convey("A bare JSON matrix is accepted", func() {
			grid, err := FromBytes("m.json", []byte(`[[true,false],[false,true]]`))
			So(err, ShouldBeNil)
			So(grid.Occupied(models.Coord{Row: 1, Col: 1}), ShouldBeTrue)
		})

		Convey("A create_warehouse style envelope is accepted", func() {
			grid, err := FromBytes("e.json", []byte(`{"layout": [[false, true]]}`))
			So(err, ShouldBeNil)
			So(grid.Cols(), ShouldEqual, 2)
		})

		Convey("A ragged JSON matrix is rejected", func() {
			_, err := FromBytes("r.json", []byte(`[[true],[true,false]]`))
			So(err, ShouldNotBeNil)
		})

		Convey("Rune art with trailing blank lines is accepted", func() {
			grid, err := FromBytes("t.txt", []byte("#.\n.#\n\n"))
			So(err, ShouldBeNil)
			So(grid.Rows(), ShouldEqual, 2)
		})

		Convey("Empty input means no grid", func() {
			grid, err := FromBytes("empty", []byte("  \n"))
			So(err, ShouldBeNil)
			So(grid.Empty(), ShouldBeTrue)
		})

		Convey("An empty path means no grid", func() {
			grid, err := FromFile("")
			So(err, ShouldBeNil)
			So(grid.Empty(), ShouldBeTrue)
		})
	})
}

func TestWatch(t *testing.T) {
	Convey("When a watched layout file is rewritten", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "layout.txt")
		So(os.WriteFile(path, []byte("#.\n"), 0o644), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		grids := make(chan models.Grid, 4)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		go func() {
			_ = Watch(ctx, path, logger, func(g models.Grid) { grids <- g })
		}()

		// Give the watcher time to register before writing.
		time.Sleep(100 * time.Millisecond)
		So(os.WriteFile(path, []byte("#.#\n...\n"), 0o644), ShouldBeNil)

		var reloaded models.Grid
		deadline := time.After(3 * time.Second)
		for reloaded.Rows() != 2 {
			select {
			case reloaded = <-grids:
			case <-deadline:
				t.Fatal("layout was not reloaded")
			}
		}
		So(reloaded.Cols(), ShouldEqual, 3)
	})
}
