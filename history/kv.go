package history

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQuotaExceeded is returned by a backend when a value does not fit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrNotFound      = errors.New("record not found")
)

// DefaultMaxBytes mirrors the per-origin quota of browser local storage.
const DefaultMaxBytes = 5 << 20

// KV is the string-keyed storage the history list lives in.
// Get returns (nil, nil) when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV keeps values in process memory with a total byte capacity.
type MemoryKV struct {
	mu       sync.Mutex
	maxBytes int
	data     map[string][]byte
}

// NewMemoryKV creates a store; maxBytes <= 0 means unlimited.
func NewMemoryKV(maxBytes int) *MemoryKV {
	return &MemoryKV{maxBytes: maxBytes, data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 {
		used := 0
		for k, v := range m.data {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > m.maxBytes {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
