package store

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is a stored value with its expiry deadline.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is the in-memory backend. Entries expire on read and are swept
// periodically by a janitor goroutine.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory backend and starts its janitor.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// janitor removes expired entries once a minute.
func (m *Memory) janitor() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, entry := range m.entries {
				if entry.expired(now) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Put stores value under key.
func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Get returns the value stored under key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// Take removes and returns the value stored under key.
func (m *Memory) Take(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	m.mu.Unlock()

	if !ok || entry.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return entry.value, nil
}

// Delete removes key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Close stops the janitor.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
