package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pickpath/animation"
	"pickpath/grid_world"
	"pickpath/metrics"
	"pickpath/models"
	"pickpath/orders"
	"pickpath/server/cell_views"
	"pickpath/server/fastview"
	"pickpath/server/root_view"
	"pickpath/viewport"
	"pickpath/waypoints"

	"github.com/gorilla/mux"
)

var (
	// ErrNoGrid is returned when a visualization is requested before a grid is loaded.
	ErrNoGrid = errors.New("no warehouse grid loaded")
	// ErrUnknownOrder is returned when a visualization names an order not in the book.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrOutOfGrid is returned when an order's path leaves the grid in effect.
	ErrOutOfGrid = models.ErrOutOfGrid
)

// Visualization outcomes, as counted in metrics.
const (
	outcomeStarted      = "started"
	outcomeNoGrid       = "no_grid"
	outcomeUnknownOrder = "unknown_order"
	outcomeOutOfGrid    = "out_of_grid"
)

const (
	// Largest accepted grid upload.
	maxGridBytes = 8 << 20
	// Time allowed for in-flight requests on shutdown.
	shutdownGrace = 5 * time.Second
)

// Server serves the page, its websocket updates, and the order and grid endpoints. It owns
// the grid currently in effect and turns player frames into scenes for the views.
type Server struct {
	addr     string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	book     *orders.Book
	player   *animation.Player
	director *viewport.Director
	locator  *cell_views.GridLocator
	hub      *fastview.Hub
	rootView *root_view.RootView
	router   *mux.Router

	mu   sync.RWMutex
	grid models.Grid

	// Held across checking, loading and scrolling to a path, and across grid replacement.
	visualizeMu sync.Mutex

	scenes chan cell_views.Scene
}

// NewServer builds the views and starts the goroutines feeding them; they stop when ctx
// is done. The player should be dedicated to this server, which consumes its frames.
func NewServer(
	ctx context.Context,
	addr string,
	grid models.Grid,
	player *animation.Player,
	book *orders.Book,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Server, error) {
	hub := fastview.NewHub()
	locator := cell_views.NewGridLocator(hub)
	locator.SetGrid(grid)

	server := &Server{
		addr:     addr,
		logger:   logger,
		metrics:  m,
		book:     book,
		player:   player,
		director: viewport.NewDirector(locator, logger),
		locator:  locator,
		hub:      hub,
		grid:     grid,
		scenes:   make(chan cell_views.Scene, 1),
	}

	rootView, err := root_view.NewRootView(ctx, server.scenes, book.Changes())
	if err != nil {
		return nil, err
	}
	server.rootView = rootView
	server.router = server.routes()

	server.publishScene(player.Snapshot())
	go server.pumpScenes(ctx)
	go hub.Run(ctx, rootView.Updates())
	return server, nil
}

func (server *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.Handle("/metrics", server.metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/orders", server.listOrders).Methods(http.MethodGet)
	router.HandleFunc("/orders/{id}/visualize", server.visualizeOrder).Methods(http.MethodPost)
	router.HandleFunc("/grid", server.getGrid).Methods(http.MethodGet)
	router.HandleFunc("/grid", server.putGrid).Methods(http.MethodPut)
	return router
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		server.logger.Info("serving", "addr", server.addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Grid returns the grid in effect.
func (server *Server) Grid() models.Grid {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.grid
}

// SetGrid replaces the grid. Playback stops, since the running path belongs to the old
// layout, and connected pages are asked to reload.
func (server *Server) SetGrid(grid models.Grid) {
	server.visualizeMu.Lock()
	defer server.visualizeMu.Unlock()

	server.mu.Lock()
	server.grid = grid
	server.mu.Unlock()
	server.locator.SetGrid(grid)

	server.player.Load(nil)
	server.hub.Publish([]fastview.EleUpdate{{
		EleId: fastview.DocumentId,
		Ops:   []fastview.Op{{Key: fastview.OpReload, Value: "true"}},
	}})
	server.logger.Info("grid loaded", "rows", grid.Rows(), "cols", grid.Cols())
}

// Visualize expands the order's first path group and plays it, replacing whatever was
// playing, then scrolls pages to the path's start. An order whose path leaves the grid is
// refused before expansion.
func (server *Server) Visualize(orderID string) (animation.Frame, error) {
	server.visualizeMu.Lock()
	defer server.visualizeMu.Unlock()

	grid := server.Grid()
	if grid.Empty() {
		server.metrics.Visualizations.WithLabelValues(outcomeNoGrid).Inc()
		return animation.Frame{}, ErrNoGrid
	}
	order, ok := server.book.Get(orderID)
	if !ok {
		server.metrics.Visualizations.WithLabelValues(outcomeUnknownOrder).Inc()
		return animation.Frame{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}

	if err := grid.CheckPath(order.VisualPath()); err != nil {
		server.metrics.Visualizations.WithLabelValues(outcomeOutOfGrid).Inc()
		return animation.Frame{}, fmt.Errorf("order %s: %w", order.ID, err)
	}

	path := waypoints.Expand(order.VisualPath())
	frame := server.player.Load(path)
	server.director.OnPathLoaded(path)

	server.metrics.Visualizations.WithLabelValues(outcomeStarted).Inc()
	server.logger.Info("visualizing order",
		"order", order.ID,
		"worker", order.WorkerID,
		"waypoints", len(order.VisualPath()),
		"cells", len(path))
	return frame, nil
}

func (server *Server) pumpScenes(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-server.player.Frames():
			server.publishScene(frame)
		}
	}
}

// publishScene replaces any scene the views have not yet taken. Only one goroutine
// publishes at a time: NewServer before the pump starts, then the pump.
func (server *Server) publishScene(frame animation.Frame) {
	scene := cell_views.Scene{Grid: server.Grid(), Frame: frame}
	select {
	case <-server.scenes:
	default:
	}
	server.scenes <- scene
}

// serveWebsocket publishes view updates to one page and handles its messages.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	sub := server.hub.Subscribe()
	cli, err := fastview.NewClient(sub, w, r, server.onPageMessage, server.logger)
	if err != nil {
		sub.Close()
		server.logger.Warn("websocket", "err", err)
		return
	}
	// The page was rendered from the current state; catch up on anything since.
	sub.Push(server.rootView.Snapshot())

	server.metrics.ViewClients.Inc()
	defer server.metrics.ViewClients.Dec()
	if err := cli.Sync(); err != nil {
		server.logger.Warn("websocket client", "err", err)
	}
}

// pageMessage is a command sent from the page.
type pageMessage struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
}

func (server *Server) onPageMessage(msg []byte) {
	var pm pageMessage
	if err := json.Unmarshal(msg, &pm); err != nil {
		server.logger.Warn("bad page message", "err", err)
		return
	}
	switch pm.Type {
	case "visualize":
		if _, err := server.Visualize(pm.OrderID); err != nil {
			server.logger.Warn("visualize", "order", pm.OrderID, "err", err)
		}
	default:
		server.logger.Debug("ignoring page message", "type", pm.Type)
	}
}

// Serve the index.html main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	page := cell_views.Page{
		Board:  cell_views.NewBoard(cell_views.Scene{Grid: server.Grid(), Frame: server.player.Snapshot()}),
		Orders: cell_views.ToOrderItems(server.book.List()),
	}
	if err := renderTemplate(w, server.rootView, page); err != nil {
		server.logger.Error("render index", "err", err)
		_, _ = w.Write([]byte(err.Error()))
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}

func (server *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, server.book.List())
}

// playback is the JSON form of a frame.
type playback struct {
	Generation uint64 `json:"generation"`
	Cells      int    `json:"cells"`
	Index      int    `json:"index"`
	State      string `json:"state"`
}

func (server *Server) visualizeOrder(w http.ResponseWriter, r *http.Request) {
	frame, err := server.Visualize(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, ErrNoGrid):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, ErrUnknownOrder):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrOutOfGrid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, playback{
		Generation: frame.Generation,
		Cells:      len(frame.Path),
		Index:      frame.Index,
		State:      frame.State.String(),
	})
}

// gridBody is the JSON form of the grid, in the upload envelope shape.
type gridBody struct {
	Rows   int      `json:"rows"`
	Cols   int      `json:"cols"`
	Layout [][]bool `json:"layout"`
}

func (server *Server) getGrid(w http.ResponseWriter, r *http.Request) {
	grid := server.Grid()
	writeJSON(w, http.StatusOK, gridBody{Rows: grid.Rows(), Cols: grid.Cols(), Layout: grid.Layout()})
}

func (server *Server) putGrid(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGridBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	grid, err := grid_world.FromBytes("upload", data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	server.SetGrid(grid)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
