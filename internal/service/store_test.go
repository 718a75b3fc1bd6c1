package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kaspadata/exgateway/internal/content"
	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory content.Store with per-path error injection and a
// call counter, so tests can assert that rejected requests never reach it.
type fakeStore struct {
	mu       sync.Mutex
	calls    int
	objects  map[string][]byte
	listings map[string][]content.Entry
	fail     map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string][]byte),
		listings: make(map[string][]content.Entry),
		fail:     make(map[string]error),
	}
}

func (s *fakeStore) GetObject(_ context.Context, _ content.Scope, path string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if err, ok := s.fail[path]; ok {
		return nil, err
	}
	raw, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return raw, nil
}

func (s *fakeStore) ListDir(_ context.Context, _ content.Scope, path string) ([]content.Entry, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if entries, ok := s.listings[path]; ok {
		return entries, nil
	}
	if err, ok := s.fail[path]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func dayJSON(t *testing.T, ticks ...domain.RawTick) []byte {
	t.Helper()
	raw, err := json.Marshal(dayPayload{Data: ticks})
	require.NoError(t, err)
	return raw
}
