package fastview

import (
	"context"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBatch(t *testing.T) {
	Convey("When updates are batched", t, func() {
		batch := NewBatch()
		batch.Add(
			EleUpdate{EleId: "a", Ops: []Op{{Key: "class", Value: "free"}}},
			EleUpdate{EleId: "b", Ops: []Op{{Key: "class", Value: "occupied"}}},
		)
		batch.Add(EleUpdate{EleId: "a", Ops: []Op{
			{Key: "class", Value: "visited"},
			{Key: OpScrollIntoView, Value: "smooth"},
		}})

		Convey("Later values win and first-seen order is kept", func() {
			So(batch.Len(), ShouldEqual, 2)
			So(batch.Flush(), ShouldResemble, []EleUpdate{
				{EleId: "a", Ops: []Op{{Key: "class", Value: "visited"}, {Key: OpScrollIntoView, Value: "smooth"}}},
				{EleId: "b", Ops: []Op{{Key: "class", Value: "occupied"}}},
			})
		})

		Convey("Flushing empties the batch", func() {
			batch.Flush()
			So(batch.Len(), ShouldEqual, 0)
			So(batch.Flush(), ShouldBeNil)
		})
	})
}

func TestHub(t *testing.T) {
	Convey("When updates are published to several subscribers", t, func() {
		hub := NewHub()
		fast := hub.Subscribe()
		slow := hub.Subscribe()
		So(hub.Len(), ShouldEqual, 2)

		hub.Publish([]EleUpdate{{EleId: "head", Ops: []Op{{Key: "style", Value: "top:0px"}}}})
		<-fast.Ready()
		So(fast.Take(), ShouldHaveLength, 1)

		hub.Publish([]EleUpdate{{EleId: "head", Ops: []Op{{Key: "style", Value: "top:9px"}}}})

		Convey("A slow subscriber receives only the latest value", func() {
			updates := slow.Take()
			So(updates, ShouldHaveLength, 1)
			So(updates[0].Ops, ShouldResemble, []Op{{Key: "style", Value: "top:9px"}})
		})

		Convey("A closed subscription receives nothing further", func() {
			fast.Take()
			fast.Close()
			So(hub.Len(), ShouldEqual, 1)
			hub.Publish([]EleUpdate{{EleId: "x"}})
			So(fast.Take(), ShouldBeEmpty)
		})
	})

	Convey("When the hub runs over a source channel", t, func() {
		hub := NewHub()
		sub := hub.Subscribe()
		source := make(chan []EleUpdate)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx, source)

		source <- []EleUpdate{{EleId: "cell-0-0", Ops: []Op{{Key: "class", Value: "cell free"}}}}

		Convey("Source updates reach subscribers", func() {
			select {
			case <-sub.Ready():
			case <-time.After(time.Second):
			}
			So(sub.Take(), ShouldHaveLength, 1)
		})
	})
}

type stringView struct {
	updates <-chan []EleUpdate
}

func (sv *stringView) Updates() <-chan []EleUpdate { return sv.updates }

func (sv *stringView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "strings" }}{{ . }}{{ end }}`)
	return "strings", err
}

func TestViewBuilder(t *testing.T) {
	Convey("When a builder is misconfigured", t, func() {
		_, err := NewViewBuilder[int, string]().Build(context.Background())
		So(err, ShouldEqual, ErrNoViews)

		_, err = NewViewBuilder[int, string]().
			WithView(func(<-chan struct{}, <-chan string) ViewComponent { return nil }).
			Build(context.Background())
		So(err, ShouldEqual, ErrNoModel)
	})

	Convey("When views are built over a model", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		input := make(chan int)
		newView := func(done <-chan struct{}, vm <-chan string) ViewComponent {
			return &stringView{updates: channerics.Convert(done, vm, func(s string) []EleUpdate {
				return []EleUpdate{{EleId: "n", Ops: []Op{{Key: OpTextContent, Value: s}}}}
			})}
		}
		views, err := NewViewBuilder[int, string]().
			WithModel(input, strconv.Itoa).
			WithView(newView).
			WithView(newView).
			Build(ctx)
		So(err, ShouldBeNil)
		So(views, ShouldHaveLength, 2)

		updates := Updates(ctx.Done(), views...)
		go func() { input <- 42 }()

		Convey("Every view receives the converted model", func() {
			for i := 0; i < 2; i++ {
				select {
				case got := <-updates:
					So(got[0].Ops[0].Value, ShouldEqual, "42")
				case <-time.After(time.Second):
					So("timed out", ShouldBeEmpty)
				}
			}
		})
	})
}

func TestClient(t *testing.T) {
	Convey("When a page connects over a websocket", t, func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		hub := NewHub()
		received := make(chan string, 1)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cli, err := NewClient(hub.Subscribe(), w, r, func(msg []byte) { received <- string(msg) }, logger)
			if err != nil {
				return
			}
			_ = cli.Sync()
		}))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		// Wait for the server side to subscribe.
		for deadline := time.Now().Add(time.Second); hub.Len() == 0 && time.Now().Before(deadline); {
			time.Sleep(time.Millisecond)
		}
		So(hub.Len(), ShouldEqual, 1)

		Convey("Published updates are delivered as JSON", func() {
			hub.Publish([]EleUpdate{{EleId: "status", Ops: []Op{{Key: OpTextContent, Value: "playing"}}}})
			var got []EleUpdate
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			So(conn.ReadJSON(&got), ShouldBeNil)
			So(got, ShouldResemble, []EleUpdate{{EleId: "status", Ops: []Op{{Key: OpTextContent, Value: "playing"}}}})
		})

		Convey("Page messages reach the handler", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"visualize"}`)), ShouldBeNil)
			select {
			case msg := <-received:
				So(msg, ShouldEqual, `{"type":"visualize"}`)
			case <-time.After(2 * time.Second):
				So("timed out", ShouldBeEmpty)
			}
		})
	})
}
