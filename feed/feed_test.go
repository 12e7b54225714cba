package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pickpath/models"

	"github.com/gorilla/websocket"

	. "github.com/smartystreets/goconvey/convey"
)

const requestMsg = `{"type":"request","message":"new order","data":{
	"worker_id": 3,
	"moving_cells": [[[0,0,null],[0,1,"product"],[0,2]]],
	"selected_products": {"101": 2}
}}`

func TestDecode(t *testing.T) {
	Convey("When a request is decoded", t, func() {
		order, err := Decode([]byte(requestMsg))
		So(err, ShouldBeNil)

		Convey("Its fields are carried into the order", func() {
			So(order.WorkerID, ShouldEqual, 3)
			So(order.SelectedProducts, ShouldResemble, map[string]int{"101": 2})
			So(order.VisualPath(), ShouldResemble, []models.Waypoint{
				{Coord: models.Coord{Row: 0, Col: 0}},
				{Coord: models.Coord{Row: 0, Col: 1}, Tag: models.TagProduct},
				{Coord: models.Coord{Row: 0, Col: 2}},
			})
		})
	})

	Convey("When a request lacks selected products", t, func() {
		order, err := Decode([]byte(`{"type":"request","data":{"worker_id":1,"moving_cells":[]}}`))
		So(err, ShouldBeNil)
		So(order.SelectedProducts, ShouldNotBeNil)
		So(order.VisualPath(), ShouldBeEmpty)
	})

	Convey("When a message is not a request", t, func() {
		_, err := Decode([]byte(`{"type":"answer","code":200,"status":"ok","message":"done"}`))
		So(errors.Is(err, ErrNotARequest), ShouldBeTrue)

		answer, ok := decodeAnswer([]byte(`{"type":"answer","code":200,"status":"ok","message":"done"}`))
		So(ok, ShouldBeTrue)
		So(answer, ShouldResemble, Answer{Type: TypeAnswer, Code: 200, Status: "ok", Message: "done"})
	})

	Convey("When a message is malformed", t, func() {
		for _, msg := range []string{
			`not json`,
			`{"data":{}}`,
			`{"type":"request"}`,
			`{"type":"request","data":{"moving_cells":[]}}`,
			`{"type":"request","data":{"worker_id":1}}`,
			`{"type":"request","data":{"worker_id":1,"moving_cells":[[[1]]]}}`,
			`{"type":"request","data":{"worker_id":1,"moving_cells":[[[-1,0]]]}}`,
		} {
			_, err := Decode([]byte(msg))
			So(errors.Is(err, ErrMalformedMessage), ShouldBeTrue)
		}
	})
}

func TestCommands(t *testing.T) {
	Convey("When commands are encoded", t, func() {
		encode := func(cmd Command) string {
			data, err := json.Marshal(cmd)
			So(err, ShouldBeNil)
			return string(data)
		}

		So(encode(ListProductTypes("tok")), ShouldEqual, `{"auth":"tok","type":"list_product_types"}`)
		So(encode(Run("tok")), ShouldEqual, `{"auth":"tok","type":"run"}`)
		So(encode(CreateProductTypes("tok", []ProductType{{SKU: 5, Name: "bolt", ProductType: "small"}})),
			ShouldEqual, `{"auth":"tok","type":"create_product_type","payload":[{"sku":5,"name":"bolt","product_type":"small"}]}`)
		So(encode(CreateProductTypes("tok", nil)), ShouldEqual, `{"auth":"tok","type":"create_product_type","payload":[]}`)
	})
}

type countingRecorder struct {
	mu        sync.Mutex
	received  int
	dropped   []error
	connected int
}

func (r *countingRecorder) OrderReceived() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received++
}

func (r *countingRecorder) OrderDropped(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, err)
}

func (r *countingRecorder) FeedConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

// serveFeed pushes msgs to every connection and forwards what the client sends to commands.
func serveFeed(msgs []string, commands chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// WriteJSON terminates messages with a newline.
			commands <- strings.TrimSpace(string(msg))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"answer","code":200,"status":"ok","message":"accepted"}`))
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	Convey("When the feed pushes messages", t, func() {
		commands := make(chan string, 1)
		srv := serveFeed([]string{`garbage`, `{"type":"answer","code":200}`, requestMsg}, commands)
		defer srv.Close()

		orders := make(chan models.Order, 1)
		rec := &countingRecorder{}
		client := NewClient(Options{URL: wsURL(srv), AuthToken: "secret"}, func(o models.Order) { orders <- o }, rec, logger)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- client.Run(ctx) }()

		var order models.Order
		select {
		case order = <-orders:
		case <-time.After(2 * time.Second):
		}

		Convey("Only the request becomes an order", func() {
			So(order.WorkerID, ShouldEqual, 3)
			rec.mu.Lock()
			So(rec.received, ShouldEqual, 1)
			So(rec.connected, ShouldEqual, 1)
			So(rec.dropped, ShouldHaveLength, 2)
			So(errors.Is(rec.dropped[0], ErrMalformedMessage), ShouldBeTrue)
			So(errors.Is(rec.dropped[1], ErrNotARequest), ShouldBeTrue)
			rec.mu.Unlock()
		})

		Convey("Commands are sent with the configured token", func() {
			So(client.Send(Run("")), ShouldBeNil)
			select {
			case cmd := <-commands:
				So(cmd, ShouldEqual, `{"auth":"secret","type":"run"}`)
			case <-time.After(2 * time.Second):
				So("timed out", ShouldBeEmpty)
			}
		})

		Convey("Cancelling stops the client cleanly", func() {
			cancel()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("timed out", ShouldBeEmpty)
			}
			So(client.Send(Run("")), ShouldEqual, ErrNotConnected)
		})

		cancel()
	})

	Convey("When the feed is unreachable", t, func() {
		client := NewClient(Options{URL: "ws://127.0.0.1:1/none", Reconnect: 10 * time.Millisecond}, func(models.Order) {}, nil, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		Convey("Run keeps retrying until cancelled", func() {
			So(client.Run(ctx), ShouldBeNil)
			So(client.Send(ListProductTypes("")), ShouldEqual, ErrNotConnected)
		})
	})
}

func TestSendOnce(t *testing.T) {
	Convey("When a single command is sent", t, func() {
		commands := make(chan string, 1)
		srv := serveFeed([]string{requestMsg}, commands)
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		answer, err := SendOnce(ctx, Options{URL: wsURL(srv), AuthToken: "tok"}, ListProductTypes(""))

		Convey("The answer is returned and pushed requests are skipped", func() {
			So(err, ShouldBeNil)
			So(answer.Message, ShouldEqual, "accepted")
			So(<-commands, ShouldEqual, `{"auth":"tok","type":"list_product_types"}`)
		})
	})
}
