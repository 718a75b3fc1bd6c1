package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const sweepInterval = 30 * time.Second

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process fallback store used when redis is not configured
// or unreachable at startup. Expired entries are dropped lazily on read and
// by a background sweep.
type Memory struct {
	clk clock.Clock

	mu      sync.RWMutex
	entries map[string]memoryEntry

	done chan struct{}
	once sync.Once
}

func NewMemory(clk clock.Clock) *Memory {
	m := &Memory{
		clk:     clk,
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.clk.Now().After(entry.expiresAt) {
		return nil, ErrMiss
	}
	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.clk.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) sweep() {
	ticker := m.clk.Ticker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, entry := range m.entries {
				if now.After(entry.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
