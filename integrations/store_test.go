package integrations

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errStoreDown = errors.New("store unavailable")

type memEntry struct {
	value    string
	deadline time.Time
}

// memStore is an in-memory KeyValueStore with an injectable clock and
// per-operation failure switches.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time

	failGet    bool
	failSet    bool
	failDelete bool
	failExists bool
}

func newMemStore() *memStore {
	return &memStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failGet {
		return "", false, errStoreDown
	}

	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}

	if !entry.deadline.IsZero() && !s.now().Before(entry.deadline) {
		delete(s.entries, key)

		return "", false, nil
	}

	return entry.value, true, nil
}

func (s *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSet {
		return errStoreDown
	}

	entry := memEntry{value: value}
	if ttl > 0 {
		entry.deadline = s.now().Add(ttl)
	}

	s.entries[key] = entry

	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDelete {
		return errStoreDown
	}

	delete(s.entries, key)

	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failExists {
		return false, errStoreDown
	}

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}

	if !entry.deadline.IsZero() && !s.now().Before(entry.deadline) {
		delete(s.entries, key)

		return false, nil
	}

	return true, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *memStore) raw(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]

	return entry.value, ok
}
