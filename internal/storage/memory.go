package storage

import (
	"context"
	"sync"
	"time"

	"github.com/insuredocs/docgen/internal/apperr"
)

// MemoryStorage keeps blobs in process memory. Used when no MinIO endpoint
// is configured and by tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailPut, FailGet and FailDelete inject errors for the next N calls
	// of each kind.
	FailPut    int
	FailGet    int
	FailDelete int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: map[string][]byte{}}
}

func (m *MemoryStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut > 0 {
		m.FailPut--
		return &apperr.StorageError{Op: "put", Key: key, Err: errInjected}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet > 0 {
		m.FailGet--
		return nil, &apperr.StorageError{Op: "get", Key: key, Err: errInjected}
	}
	data, ok := m.blobs[key]
	if !ok {
		return nil, &apperr.StorageError{Op: "get", Key: key, Err: ErrBlobNotFound}
	}
	return data, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete > 0 {
		m.FailDelete--
		return &apperr.StorageError{Op: "delete", Key: key, Err: errInjected}
	}
	delete(m.blobs, key)
	return nil
}

func (m *MemoryStorage) Presign(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "", &apperr.StorageError{Op: "presign", Key: key, Err: ErrPresignUnsupported}
}

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
