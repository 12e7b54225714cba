package cell_views

import (
	"bytes"
	"html/template"
	"sync"

	"pickpath/models"
	"pickpath/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// OrderItem is one row of the order list.
type OrderItem struct {
	ID       string
	Number   int
	WorkerID int
	Products []ProductLine
	// Waypoints is the raw length of the visualized path group.
	Waypoints int
}

type ProductLine struct {
	SKU string
	Qty int
}

// ToOrderItems converts orders, in arrival order, to list rows numbered from 1.
func ToOrderItems(orders []models.Order) []OrderItem {
	items := make([]OrderItem, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		item := OrderItem{
			ID:        order.ID,
			Number:    i + 1,
			WorkerID:  order.WorkerID,
			Waypoints: len(order.VisualPath()),
		}
		for _, sku := range order.SKUs() {
			item.Products = append(item.Products, ProductLine{SKU: sku, Qty: order.SelectedProducts[sku]})
		}
		items = append(items, item)
	}
	return items
}

const orderListId = "order-list"

// The rows are rendered both into the page and, on change, into the list's innerHTML.
const orderItemsTemplate = `
	{{ range . }}
	<li class="order">
		<span>Order {{ .Number }}: worker {{ .WorkerID }}, {{ .Waypoints }} waypoints</span>
		<button data-order="{{ .ID }}" onclick="visualize(this.dataset.order)">Visualize</button>
		<ul>{{ range .Products }}<li>SKU {{ .SKU }}: {{ .Qty }}</li>{{ end }}</ul>
	</li>
	{{ else }}
	<li>No orders received.</li>
	{{ end }}`

var orderItems = template.Must(template.New("orderitems").Parse(orderItemsTemplate))

// OrderList renders the received orders with a visualize button each.
type OrderList struct {
	updates <-chan []fastview.EleUpdate

	mu   sync.Mutex
	last string
}

func NewOrderList(
	done <-chan struct{},
	items <-chan []OrderItem,
) *OrderList {
	ol := &OrderList{}
	ol.updates = channerics.Convert(done, items, ol.onUpdate)
	return ol
}

func (ol *OrderList) Updates() <-chan []fastview.EleUpdate {
	return ol.updates
}

func (ol *OrderList) onUpdate(items []OrderItem) []fastview.EleUpdate {
	var buf bytes.Buffer
	if err := orderItems.Execute(&buf, items); err != nil {
		buf.Reset()
		buf.WriteString(template.HTMLEscapeString(err.Error()))
	}

	ol.mu.Lock()
	ol.last = buf.String()
	ol.mu.Unlock()
	return innerHTML(buf.String())
}

// Snapshot returns the latest rendered list, or nothing if the list never changed.
func (ol *OrderList) Snapshot() []fastview.EleUpdate {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	if ol.last == "" {
		return nil
	}
	return innerHTML(ol.last)
}

func innerHTML(html string) []fastview.EleUpdate {
	return []fastview.EleUpdate{{
		EleId: orderListId,
		Ops:   []fastview.Op{{Key: fastview.OpInnerHTML, Value: html}},
	}}
}

// Parse adds the order list template, which renders a Page's orders.
func (ol *OrderList) Parse(t *template.Template) (name string, err error) {
	name = "orderlist"
	_, err = t.Parse(`{{ define "orderitems" }}` + orderItemsTemplate + `{{ end }}
	{{ define "` + name + `" }}
		<h2>Orders</h2>
		<ul id="` + orderListId + `">{{ template "orderitems" .Orders }}</ul>
	{{ end }}`)
	return
}
