package root_view

import (
	"context"
	"fmt"
	"html/template"

	"pickpath/models"
	"pickpath/server/cell_views"
	"pickpath/server/fastview"
)

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// snapshotter is implemented by views that send changes only, so that a newly connected
// page can catch up.
type snapshotter interface {
	Snapshot() []fastview.EleUpdate
}

// NewRootView creates the main page and the views it contains: the warehouse grid driven by
// scenes, and the order list driven by order-book changes. The views stop when ctx is done.
func NewRootView(
	ctx context.Context,
	scenes <-chan cell_views.Scene,
	orderLists <-chan []models.Order,
) (*RootView, error) {
	gridViews, err := fastview.NewViewBuilder[cell_views.Scene, cell_views.Board]().
		WithModel(scenes, cell_views.NewBoard).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewWarehouseGrid(done, boards)
		}).
		Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("grid views: %w", err)
	}

	listViews, err := fastview.NewViewBuilder[[]models.Order, []cell_views.OrderItem]().
		WithModel(orderLists, cell_views.ToOrderItems).
		WithView(func(
			done <-chan struct{},
			items <-chan []cell_views.OrderItem) fastview.ViewComponent {
			return cell_views.NewOrderList(done, items)
		}).
		Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("order views: %w", err)
	}

	views := append(gridViews, listViews...)
	return &RootView{
		views:   views,
		updates: fastview.Updates(ctx.Done(), views...),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Snapshot returns the updates bringing a page rendered from an earlier state up to date.
func (rv *RootView) Snapshot() (updates []fastview.EleUpdate) {
	for _, view := range rv.views {
		if snap, ok := view.(snapshotter); ok {
			updates = append(updates, snap.Snapshot()...)
		}
	}
	return
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// The page is executed with a cell_views.Page.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(parent)
		if parseErr != nil {
			return "", parseErr
		}
		viewTemplates = append(viewTemplates, tname)
	}

	// Specify the nested templates
	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	// The main template bootstraps the rest: sets up client websocket and updates, aggregates views.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>Pick paths</title>
			<!--This is the client bootstrap code by which the server pushes new data to the view via websocket.-->
			<script>
				const scheme = location.protocol === "https:" ? "wss://" : "ws://";
				const ws = new WebSocket(scheme + location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened");
				};

				// Listen for errors
				ws.onerror = function (event) {
					console.log("WebSocket error: ", event);
				};

				// The server went away: reload, which also retries until it is back.
				ws.onclose = function (event) {
					setTimeout(function () { location.reload(); }, 2000);
				};

				// The meat: when the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data);
					for (const update of items) {
						if (update.EleId === "` + fastview.DocumentId + `") {
							for (const op of update.Ops) {
								if (op.Key === "` + fastview.OpReload + `") {
									location.reload();
									return;
								}
							}
							continue;
						}
						const ele = document.getElementById(update.EleId);
						if (!ele) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "` + fastview.OpTextContent + `") {
								ele.textContent = op.Value;
							} else if (op.Key === "` + fastview.OpInnerHTML + `") {
								ele.innerHTML = op.Value;
							} else if (op.Key === "` + fastview.OpScrollIntoView + `") {
								ele.scrollIntoView({ behavior: op.Value, block: "center", inline: "center" });
							} else {
								ele.setAttribute(op.Key, op.Value);
							}
						}
					}
				};

				// Asks the server to animate an order's path, replacing any running animation.
				function visualize(orderId) {
					if (ws.readyState === WebSocket.OPEN) {
						ws.send(JSON.stringify({ type: "visualize", order_id: orderId }));
					}
				}
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = parent.Parse(indexTemplate)
	return
}
