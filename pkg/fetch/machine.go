// Package fetch tracks the state of asynchronous loads for a single view.
//
// Every Fetch call receives a request id one higher than the last. Only
// the result of the most recent request is ever applied; a result that
// arrives after a newer request was issued is discarded without a state
// change or observer call. No in-flight I/O is aborted: suppression relies
// solely on the request id.
package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Kind is the tag of a State.
type Kind string

const (
	KindIdle    Kind = "idle"
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// State is a snapshot of a Machine. Data is set only for KindSuccess and
// Message only for KindError. RequestID is zero only for KindIdle.
type State[T any] struct {
	Kind      Kind   `json:"kind"`
	RequestID uint64 `json:"requestId,omitempty"`
	Data      T      `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Source produces the data for one request. It should honour ctx, but the
// machine does not depend on it doing so.
type Source[T any] func(ctx context.Context) (T, error)

// Observer is called after every applied transition. It runs while the
// machine's lock is held, so it must not call back into the machine.
type Observer[T any] func(State[T])

// Machine is the asynchronous fetch state machine. The zero value is not
// usable; call New. A Machine is safe for concurrent use.
type Machine[T any] struct {
	mu       sync.Mutex
	state    State[T]
	current  uint64
	inflight int
	idle     chan struct{}

	observer Observer[T]
	log      logr.Logger
}

// Option configures a Machine.
type Option[T any] func(*Machine[T])

// WithObserver registers fn to receive every applied state.
func WithObserver[T any](fn Observer[T]) Option[T] {
	return func(m *Machine[T]) {
		m.observer = fn
	}
}

// WithLogger sets the logger used for stale-result and panic reporting.
func WithLogger[T any](lgr logr.Logger) Option[T] {
	return func(m *Machine[T]) {
		m.log = lgr
	}
}

// New returns an idle Machine.
func New[T any](opts ...Option[T]) *Machine[T] {
	m := &Machine[T]{
		state: State[T]{Kind: KindIdle},
		log:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current snapshot.
func (m *Machine[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the id of the most recently issued request, or zero.
func (m *Machine[T]) Current() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fetch issues a new request: the machine moves to Loading with a fresh id
// and src runs on its own goroutine. When src returns, its outcome is
// applied only if no newer request has been issued meanwhile. Fetch returns
// the new request id without waiting.
func (m *Machine[T]) Fetch(ctx context.Context, src Source[T]) uint64 {
	id, _ := m.start(ctx, src)
	return id
}

// FetchSync is Fetch followed by waiting for that request (not any newer
// one) to finish or for ctx to end. It returns the machine's state at that
// point, which reflects a newer request if this one went stale.
func (m *Machine[T]) FetchSync(ctx context.Context, src Source[T]) State[T] {
	_, done := m.start(ctx, src)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return m.State()
}

// Wait blocks until every issued request, stale ones included, has
// finished, or until ctx ends.
func (m *Machine[T]) Wait(ctx context.Context) error {
	m.mu.Lock()
	if m.inflight == 0 {
		m.mu.Unlock()
		return nil
	}
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine[T]) start(ctx context.Context, src Source[T]) (uint64, <-chan struct{}) {
	done := make(chan struct{})

	m.mu.Lock()
	m.current++
	id := m.current
	if m.inflight == 0 {
		m.idle = make(chan struct{})
	}
	m.inflight++
	m.apply(State[T]{Kind: KindLoading, RequestID: id})
	m.mu.Unlock()

	go func() {
		defer close(done)
		data, err := m.invoke(ctx, src)
		m.resolve(id, data, err)
	}()
	return id, done
}

func (m *Machine[T]) invoke(ctx context.Context, src Source[T]) (data T, err error) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Error(nil, "fetch source panicked", "panic", fmt.Sprint(p))
			err = fmt.Errorf("source panicked: %v", p)
		}
	}()
	if src == nil {
		return data, fmt.Errorf("no data source configured")
	}
	return src(ctx)
}

func (m *Machine[T]) resolve(id uint64, data T, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		m.inflight--
		if m.inflight == 0 {
			close(m.idle)
		}
	}()

	if id != m.current {
		m.log.V(1).Info("discarding stale fetch result", "request", id, "current", m.current)
		return
	}
	if err != nil {
		m.apply(State[T]{Kind: KindError, RequestID: id, Message: err.Error()})
		return
	}
	m.apply(State[T]{Kind: KindSuccess, RequestID: id, Data: data})
}

// apply must be called with m.mu held.
func (m *Machine[T]) apply(s State[T]) {
	m.state = s
	if m.observer != nil {
		m.observer(s)
	}
}
