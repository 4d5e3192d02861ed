// Package stream abstracts the position sample feed as a cancellable
// subscription: start, callback per sample, stop.
package stream

import (
	"context"
	"sync"

	"trip-guardian/internal/journey"
)

// Handler consumes one position sample.
type Handler func(sample journey.PositionSample)

// PositionSource supplies position samples until the returned cancel
// func is called or ctx is done.
type PositionSource interface {
	Subscribe(ctx context.Context, h Handler) (cancel func(), err error)
}

// Manual is an in-process source driven by explicit Emit calls, used by
// the simulate command and tests.
type Manual struct {
	mu      sync.Mutex
	handler Handler
}

// NewManual constructs an empty manual source.
func NewManual() *Manual {
	return &Manual{}
}

// Subscribe registers the handler. Only one subscriber at a time.
func (m *Manual) Subscribe(ctx context.Context, h Handler) (func(), error) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.handler = nil
		m.mu.Unlock()
	}, nil
}

// Emit pushes a sample to the current subscriber, if any.
func (m *Manual) Emit(sample journey.PositionSample) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(sample)
	}
}

var _ PositionSource = (*Manual)(nil)
