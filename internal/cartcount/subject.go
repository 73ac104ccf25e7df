package cartcount

import (
	"context"
	"sync"
)

// Listener receives every published cart count.
type Listener func(ctx context.Context, customerID string, count int)

// Subject fans cart counts out to listeners and remembers the last count per customer.
type Subject struct {
	mu        sync.RWMutex
	last      map[string]int
	listeners map[uint64]Listener
	nextID    uint64
}

// NewSubject returns an empty subject.
func NewSubject() *Subject {
	return &Subject{
		last:      map[string]int{},
		listeners: map[uint64]Listener{},
	}
}

// Publish records count for customerID and notifies listeners synchronously.
func (s *Subject) Publish(ctx context.Context, customerID string, count int) {
	if count < 0 {
		count = 0
	}
	s.mu.Lock()
	s.last[customerID] = count
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, customerID, count)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Subject) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Last returns the most recent count published for customerID in this process.
func (s *Subject) Last(customerID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count, ok := s.last[customerID]
	return count, ok
}
