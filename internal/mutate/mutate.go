package mutate

import (
	"context"
	"errors"
	"sync"
)

// ErrPending rejects a second mutation on the same entity while one is in
// flight. The caller should treat it as a no-op, not retry.
var ErrPending = errors.New("mutation already in flight")

// State holds the locally visible value of one mutable entity. Mutations on
// distinct State instances are independent; within one instance the pending
// flag serializes them.
type State[T any] struct {
	mu      sync.Mutex
	value   T
	pending bool
}

func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial}
}

func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *State[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Reset replaces the visible value from an authoritative source (e.g. a
// fresh fetch). It refuses to fight an in-flight mutation.
func (s *State[T]) Reset(value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return false
	}
	s.value = value
	return true
}

// RequestFunc confirms a proposed value with the server. When the server
// returns an authoritative value, it is reported with ok=true and replaces
// the optimistic one.
type RequestFunc[T any] func(ctx context.Context) (authoritative T, ok bool, err error)

// Apply is the act-now, confirm-later, undo-on-failure step: the visible
// value becomes proposed before the request is issued, and is reverted to
// the previous value if the request fails. While the request is in flight,
// further Apply calls on this State return ErrPending without issuing a
// request. The returned value is whatever is visible once the call settles.
func (s *State[T]) Apply(ctx context.Context, proposed T, request RequestFunc[T]) (T, error) {
	s.mu.Lock()
	if s.pending {
		current := s.value
		s.mu.Unlock()
		return current, ErrPending
	}
	previous := s.value
	s.value = proposed
	s.pending = true
	s.mu.Unlock()

	authoritative, ok, err := request(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	if err != nil {
		s.value = previous
		return s.value, err
	}
	if ok {
		s.value = authoritative
	}
	return s.value, nil
}
