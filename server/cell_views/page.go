package cell_views

// Page is the data the index template is executed with.
type Page struct {
	Board  Board
	Orders []OrderItem
}
