// fastview implements a builder pattern for simple server-side views: given an input data
// format, apply a transformation to a view-model, multiplex that data to one or more views,
// and push the resulting element updates to every connected page.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to it.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attribute keys or one of the reserved keys below; values are what the
	// attribute is set to. Example: ('class','cell free') sets the class attribute.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// Reserved op keys, interpreted by the page script instead of being set as attributes.
const (
	// OpTextContent sets ele.textContent to the value.
	OpTextContent = "textContent"
	// OpInnerHTML replaces the element's children with the value, parsed as html.
	OpInnerHTML = "innerHTML"
	// OpScrollIntoView scrolls the element into view; the value is the scroll behavior.
	OpScrollIntoView = "scrollIntoView"
	// OpReload reloads the page; used when the page structure itself changed.
	OpReload = "reload"
)

// DocumentId addresses ops at the page rather than at an element.
const DocumentId = "document"

// ViewComponent implements server side views: Parse to add their initial form to the
// page template and Updates to obtain the chan by which ele-updates are notified.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse parses the view-component and adds it to the passed parent template, thus inheriting
	// or possibly extending its definition (func-map, etc), and returns the template name.
	Parse(*template.Template) (string, error)
}
