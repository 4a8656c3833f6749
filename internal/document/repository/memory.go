package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insuredocs/docgen/internal/document"
)

// MemoryTemplates is an in-memory TemplateRepository used when no MongoDB
// URI is configured and by unit tests. Records are copied on the way in and
// out so callers never share state with the store.
type MemoryTemplates struct {
	mu    sync.RWMutex
	store map[string]document.Template
	now   func() time.Time
}

func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{store: make(map[string]document.Template), now: time.Now}
}

func (m *MemoryTemplates) Create(ctx context.Context, t *document.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = m.now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.store[t.ID] = *t
	return nil
}

func (m *MemoryTemplates) Get(ctx context.Context, id string) (*document.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.store[id]; ok {
		return &t, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryTemplates) List(ctx context.Context, category string) ([]*document.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Template, 0, len(m.store))
	for _, t := range m.store {
		if category != "" && t.Category != category {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryTemplates) Update(ctx context.Context, t *document.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.store[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = m.now().UTC()
	m.store[t.ID] = *t
	return nil
}

func (m *MemoryTemplates) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// MemoryGenerated is the in-memory GeneratedRepository.
type MemoryGenerated struct {
	mu    sync.RWMutex
	store map[string]document.Generated
	now   func() time.Time

	// FailCreate makes the next N Create calls fail.
	FailCreate int
}

func NewMemoryGenerated() *MemoryGenerated {
	return &MemoryGenerated{store: make(map[string]document.Generated), now: time.Now}
}

func (m *MemoryGenerated) Create(ctx context.Context, d *document.Generated) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate > 0 {
		m.FailCreate--
		return errInjected
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = m.now().UTC()
	}
	m.store[d.ID] = *d
	return nil
}

func (m *MemoryGenerated) Get(ctx context.Context, id string) (*document.Generated, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return &d, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryGenerated) List(ctx context.Context, f GeneratedFilter) ([]*document.Generated, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Generated, 0, len(m.store))
	for _, d := range m.store {
		if f.TemplateID != "" && d.TemplateID != f.TemplateID {
			continue
		}
		if f.ClientID != "" && d.ClientID != f.ClientID {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryGenerated) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
