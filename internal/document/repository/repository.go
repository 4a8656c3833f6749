package repository

import (
	"context"
	"errors"

	"github.com/insuredocs/docgen/internal/document"
)

var (
	ErrNotFound = errors.New("record not found")

	errInjected = errors.New("injected failure")
)

// TemplateRepository stores template metadata. Implementations assign a
// uuid when ID is empty and set the timestamps.
type TemplateRepository interface {
	Create(ctx context.Context, t *document.Template) error
	Get(ctx context.Context, id string) (*document.Template, error)
	// List returns templates newest first; an empty category lists all.
	List(ctx context.Context, category string) ([]*document.Template, error)
	Update(ctx context.Context, t *document.Template) error
	Delete(ctx context.Context, id string) error
}

// GeneratedFilter narrows a generated document listing; empty fields match
// everything.
type GeneratedFilter struct {
	TemplateID string
	ClientID   string
}

type GeneratedRepository interface {
	Create(ctx context.Context, d *document.Generated) error
	Get(ctx context.Context, id string) (*document.Generated, error)
	List(ctx context.Context, f GeneratedFilter) ([]*document.Generated, error)
	Delete(ctx context.Context, id string) error
}
