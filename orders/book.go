// orders keeps the list of received pick orders, in arrival order, for listing and for
// selecting one to visualize.
package orders

import (
	"sync"
	"time"

	"pickpath/models"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of orders a book keeps unless told otherwise.
const DefaultCapacity = 1000

// Book is a thread-safe list of the most recent orders. Once full, adding an order evicts
// the oldest. Adding an order never affects playback; a listed order is only animated when
// it is explicitly visualized.
type Book struct {
	mu       sync.Mutex
	capacity int
	orders   []models.Order
	byId     map[string]models.Order
	now      func() time.Time

	changes chan []models.Order
}

// NewBook returns a book keeping at most capacity orders. A capacity of zero or less keeps
// every order.
func NewBook(capacity int) *Book {
	return &Book{
		capacity: capacity,
		byId:     map[string]models.Order{},
		now:      time.Now,
		changes:  make(chan []models.Order, 1),
	}
}

// Add appends the order and returns it as stored. An order without an id is given a
// random one, and one without a receive time is stamped now. An order evicted to make room
// can no longer be visualized.
func (b *Book) Add(order models.Order) models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	if order.ID == "" || b.has(order.ID) {
		order.ID = uuid.NewString()
	}
	if order.ReceivedAt.IsZero() {
		order.ReceivedAt = b.now()
	}

	if b.capacity > 0 && len(b.orders) >= b.capacity {
		evicted := len(b.orders) - b.capacity + 1
		for _, old := range b.orders[:evicted] {
			delete(b.byId, old.ID)
		}
		b.orders = append(b.orders[:0:0], b.orders[evicted:]...)
	}

	b.byId[order.ID] = order
	b.orders = append(b.orders, order)
	b.notifyLocked()
	return order
}

func (b *Book) has(id string) bool {
	_, ok := b.byId[id]
	return ok
}

// Get returns the order with the passed id.
func (b *Book) Get(id string) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.byId[id]
	return order, ok
}

// List returns the orders in arrival order.
func (b *Book) List() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Order(nil), b.orders...)
}

func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// Changes returns a channel of order lists. An unread list is replaced by the next one,
// so a reader always receives the latest.
func (b *Book) Changes() <-chan []models.Order {
	return b.changes
}

func (b *Book) notifyLocked() {
	list := append([]models.Order(nil), b.orders...)
	select {
	case <-b.changes:
	default:
	}
	select {
	case b.changes <- list:
	default:
	}
}
