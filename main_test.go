package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pickpath/animation"
	"pickpath/feed"
	"pickpath/grid_world"
	"pickpath/logging"
	"pickpath/models"

	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
	return path
}

func TestReadOrder(t *testing.T) {
	Convey("When order files are read", t, func() {
		dir := t.TempDir()

		Convey("A feed request message is accepted", func() {
			path := writeFile(dir, "msg.json", `{"type":"request","data":{"worker_id":2,"moving_cells":[[[0,0],[0,2,"product"]]],"selected_products":{"7":1}}}`)
			order, err := readOrder(path)
			So(err, ShouldBeNil)
			So(order.WorkerID, ShouldEqual, 2)
			So(order.VisualPath(), ShouldHaveLength, 2)
		})

		Convey("A bare order is accepted", func() {
			path := writeFile(dir, "order.json", `{"worker_id":4,"moving_cells":[[[1,1]]]}`)
			order, err := readOrder(path)
			So(err, ShouldBeNil)
			So(order.WorkerID, ShouldEqual, 4)
		})

		Convey("Anything else is malformed", func() {
			path := writeFile(dir, "bad.json", `{"hello":"world"}`)
			_, err := readOrder(path)
			So(errors.Is(err, feed.ErrMalformedMessage), ShouldBeTrue)
		})
	})
}

func TestReplay(t *testing.T) {
	grid, err := grid_world.Convert([]string{
		"......",
		".####.",
		"......",
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := animation.Config{TickInterval: 5 * time.Millisecond}
	logger := logging.Discard()

	Convey("When an order is replayed", t, func() {
		order := models.Order{MovingCells: [][]models.Waypoint{{
			{Coord: models.Coord{Row: 0, Col: 0}},
			{Coord: models.Coord{Row: 0, Col: 3}},
			{Coord: models.Coord{Row: 0, Col: 4}, Tag: models.TagProduct},
		}}}
		var out bytes.Buffer
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		So(replay(ctx, &out, grid, order, cfg, false, logger), ShouldBeNil)

		Convey("Frames are drawn until the path is done", func() {
			text := out.String()
			So(text, ShouldContainSubstring, "done 6/6")
			So(strings.Count(text, "@@"), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})

	Convey("When the order's route is empty", t, func() {
		var out bytes.Buffer
		So(replay(context.Background(), &out, grid, models.Order{}, cfg, false, logger), ShouldBeNil)
		So(out.String(), ShouldContainSubstring, "idle")
	})

	Convey("When the order's route leaves the grid", t, func() {
		far := models.Order{MovingCells: [][]models.Waypoint{{{Coord: models.Coord{Row: 0, Col: 3000000}}}}}
		err := replay(context.Background(), &bytes.Buffer{}, grid, far, cfg, false, logger)
		So(errors.Is(err, models.ErrOutOfGrid), ShouldBeTrue)
	})

	Convey("When there is no grid", t, func() {
		So(replay(context.Background(), &bytes.Buffer{}, models.Grid{}, models.Order{}, cfg, false, logger), ShouldEqual, errNoGrid)
	})
}

func TestBuildCommand(t *testing.T) {
	Convey("When commands are built from arguments", t, func() {
		cmd, err := buildCommand(feed.CmdRun, "tok", "")
		So(err, ShouldBeNil)
		So(cmd, ShouldResemble, feed.Run("tok"))

		_, err = buildCommand(feed.CmdCreateProductType, "tok", "")
		So(err, ShouldNotBeNil)

		_, err = buildCommand("explode", "tok", "")
		So(err, ShouldNotBeNil)

		Convey("Product types are read from a file", func() {
			path := writeFile(t.TempDir(), "products.json", `[{"sku":1,"name":"bolt","product_type":"small"}]`)
			cmd, err := buildCommand(feed.CmdCreateProductType, "tok", path)
			So(err, ShouldBeNil)

			data, _ := json.Marshal(cmd)
			So(string(data), ShouldEqual, `{"auth":"tok","type":"create_product_type","payload":[{"sku":1,"name":"bolt","product_type":"small"}]}`)
		})
	})
}
