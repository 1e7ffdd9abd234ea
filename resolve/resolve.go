// Package resolve memoizes channel name to provider id lookups.
//
// A resolved id never changes, so entries are kept forever. Concurrent misses
// for the same name are not coalesced: each performs its own lookup and the
// writes converge on the same value.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// ErrResolution is returned when a name can't be mapped to an id.
var ErrResolution = errors.New("channel name could not be resolved")

// Lookup maps a channel name to a provider id over the network.
type Lookup func(c context.Context, name string) (string, error)

// Store keeps resolved ids.
type Store interface {
	// Get reports whether name was resolved before.
	Get(c context.Context, name string) (id string, ok bool, err error)

	// Put stores the id for name. Putting the same pair twice is harmless.
	Put(c context.Context, name, id string) error
}

// Cache resolves channel names using a Store in front of a Lookup.
type Cache struct {
	store   Store
	lookup  Lookup
	lookups atomic.Int64
}

// New returns a cache backed by store. A nil store means an in-memory one.
func New(lookup Lookup, store Store) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}

	return &Cache{
		store:  store,
		lookup: lookup,
	}
}

// Resolve returns the id for name, performing a lookup on cache miss only.
func (rc *Cache) Resolve(c context.Context, name string) (string, error) {
	id, ok, err := rc.store.Get(c, name)
	if err != nil {
		log.Printf("resolve: failed to read cached id of %q: %s", name, err)
	}
	if ok && id != "" {
		return id, nil
	}

	rc.lookups.Add(1)

	id, err = rc.lookup(c, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrResolution, name, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s: empty id", ErrResolution, name)
	}

	if err := rc.store.Put(c, name, id); err != nil {
		log.Printf("resolve: failed to cache id of %q: %s", name, err)
	}

	return id, nil
}

// Lookups returns the number of lookups performed so far.
func (rc *Cache) Lookups() int64 {
	return rc.lookups.Load()
}

// MemoryStore is a process-local Store optimised for frequent reads.
type MemoryStore struct {
	m   sync.Map
	len atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(c context.Context, name string) (string, bool, error) {
	v, ok := s.m.Load(name)
	if !ok {
		return "", false, nil
	}

	return v.(string), true, nil
}

func (s *MemoryStore) Put(c context.Context, name, id string) error {
	if _, loaded := s.m.Swap(name, id); !loaded {
		s.len.Add(1)
	}

	return nil
}

// Len is the number of resolved names.
func (s *MemoryStore) Len() int {
	return int(s.len.Load())
}
