package fastview

import (
	"context"
	"errors"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder constructs one or more views that share a view-model: it converts each item
// of a data-model channel (playback frames, the order list) once, and broadcasts the result
// to every view.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel             // The source of data, e.g. animation frames
	viewModelFn func(DataModel) ViewModel    // Converts input data models to view models.
	builderFns  []ViewBuilderFunc[ViewModel] // The set of functions for building views.
}

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the source channel and the function converting its items to the target
// view-model.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view from an input view-model channel and a 'done' channel for cleanup.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view to the list of views to build.
// They are returned in the same order as built when Build() is called.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// ErrNoViews is returned when Build() is called before the caller has added any views.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before WithModel() has been called.
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Build executes the stored builders, connecting the channels together, and returns the
// views. All channels are closed once ctx is done.
func (vb *ViewBuilder[DataModel, ViewModel]) Build(ctx context.Context) (views []ViewComponent, err error) {
	if len(vb.builderFns) == 0 {
		return nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, ErrNoModel
	}

	done := ctx.Done()
	vmChan := channerics.Convert(done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(done, vmChan, len(vb.builderFns))
	for i, build := range vb.builderFns {
		views = append(views, build(done, vmChans[i]))
	}
	return
}

// Updates merges the ele-update channels of views into one.
func Updates(done <-chan struct{}, views ...ViewComponent) <-chan []EleUpdate {
	inputs := make([]<-chan []EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return channerics.Merge(done, inputs...)
}
