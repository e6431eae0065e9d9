// internal/bus/registry.go
package bus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry owns one Serializer per bus identifier.
// It is created by the composition root and handed to whoever needs a bus.
type Registry struct {
	opener Opener
	opts   Options

	mu     sync.Mutex
	buses  map[int]*Serializer
	closed bool
}

func NewRegistry(opener Opener, opts Options) *Registry {
	return &Registry{
		opener: opener,
		opts:   opts,
		buses:  make(map[int]*Serializer),
	}
}

// Get returns the Serializer for busID, opening the transport on first use.
// Concurrent first calls open the transport once. A failed open is not
// remembered, so a later Get retries.
func (r *Registry) Get(busID int) (*Serializer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if s, ok := r.buses[busID]; ok {
		return s, nil
	}

	tr, err := r.opener.Open(busID)
	if err != nil {
		return nil, &OpenError{Bus: busID, Err: err}
	}
	if tr == nil {
		return nil, &OpenError{Bus: busID, Err: errors.New("opener returned nil transport")}
	}

	s := newSerializer(busID, tr, r.opts)
	r.buses[busID] = s
	return s, nil
}

// Buses lists the identifiers opened so far, ascending.
func (r *Registry) Buses() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int, 0, len(r.buses))
	for id := range r.buses {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close stops every worker and closes every transport. A transport with a
// timed-out call still running is closed when that call returns.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	buses := r.buses
	r.buses = map[int]*Serializer{}
	r.mu.Unlock()

	var errs []error
	for id, s := range buses {
		s.close()
		if err := s.closeTransport(); err != nil {
			errs = append(errs, fmt.Errorf("bus %d: close: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
