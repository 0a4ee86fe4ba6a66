package query

import (
	"context"
	"sync"

	"github.com/five82/sporthub/internal/api"
)

// MutateFunc performs one write.
type MutateFunc[T, D any] func(ctx context.Context, input D) (api.Envelope[T], error)

// MutationOptions configure a Mutation. Cache and Invalidates go together:
// after each success every entry under each prefix is marked stale.
type MutationOptions[T, D any] struct {
	OnSuccess   func(env api.Envelope[T], input D)
	OnError     func(err *api.Error, input D)
	Cache       *Cache
	Invalidates []Key
}

// MutationState is the outcome of the most recently settled call.
type MutationState[T any] struct {
	Data      *api.Envelope[T]
	Err       *api.Error
	IsLoading bool
}

// Mutation wraps a write operation. Calls are independent: nothing is
// cached and concurrent calls are not merged.
type Mutation[T, D any] struct {
	fn   MutateFunc[T, D]
	opts MutationOptions[T, D]

	mu      sync.Mutex
	pending int
	state   MutationState[T]
}

// NewMutation builds a Mutation around fn.
func NewMutation[T, D any](fn MutateFunc[T, D], opts MutationOptions[T, D]) *Mutation[T, D] {
	return &Mutation[T, D]{fn: fn, opts: opts}
}

// Do runs the write and blocks until it settles. Exactly one of OnSuccess
// or OnError runs before Do returns.
func (m *Mutation[T, D]) Do(ctx context.Context, input D) (api.Envelope[T], error) {
	m.mu.Lock()
	m.pending++
	m.state.IsLoading = true
	m.mu.Unlock()

	env, err := m.call(ctx, input)
	apiErr := api.AsError(err)

	m.mu.Lock()
	m.pending--
	m.state.IsLoading = m.pending > 0
	if apiErr != nil {
		m.state.Data = nil
		m.state.Err = apiErr
	} else {
		m.state.Data = &env
		m.state.Err = nil
	}
	m.mu.Unlock()

	if apiErr != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(apiErr, input)
		}
		return api.Envelope[T]{}, apiErr
	}

	if m.opts.Cache != nil {
		for _, prefix := range m.opts.Invalidates {
			m.opts.Cache.Invalidate(prefix)
		}
	}
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(env, input)
	}
	return env, nil
}

// Mutate runs Do on its own goroutine. Results arrive through the callbacks
// and State.
func (m *Mutation[T, D]) Mutate(ctx context.Context, input D) {
	go func() { _, _ = m.Do(ctx, input) }()
}

// State returns the current mutation state.
func (m *Mutation[T, D]) State() MutationState[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset clears data and error. Calls still running settle normally.
func (m *Mutation[T, D]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Data = nil
	m.state.Err = nil
}

func (m *Mutation[T, D]) call(ctx context.Context, input D) (api.Envelope[T], error) {
	if m.fn == nil {
		return api.Envelope[T]{}, &api.Error{Kind: api.KindRequest, Message: "mutation has no function"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return m.fn(ctx, input)
}
