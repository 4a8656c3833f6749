package service

import (
	"context"
	"errors"
	"time"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/document"
	"github.com/insuredocs/docgen/internal/document/repository"
	"github.com/insuredocs/docgen/internal/storage"
	"github.com/insuredocs/docgen/internal/tokens"
	"github.com/insuredocs/docgen/pkg/logger"
)

// ErrLinksDisabled is returned by SignedLink when no token secret is set.
var ErrLinksDisabled = errors.New("signed download links are disabled")

// SignedLink is a time-limited download token for one document.
type SignedLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	// DirectURL is a presigned blob store URL, set when the store supports it.
	DirectURL string `json:"directUrl,omitempty"`
}

type DocumentService struct {
	repo       repository.GeneratedRepository
	blobs      storage.BlobStore
	linkSecret string
	linkTTL    time.Duration
}

func NewDocumentService(repo repository.GeneratedRepository, blobs storage.BlobStore, linkSecret string, linkTTL time.Duration) *DocumentService {
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}
	return &DocumentService{repo: repo, blobs: blobs, linkSecret: linkSecret, linkTTL: linkTTL}
}

func (s *DocumentService) List(ctx context.Context, f repository.GeneratedFilter) ([]*document.Generated, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, &apperr.StorageError{Op: "list documents", Err: err}
	}
	return list, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*document.Generated, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, recordErr("get document", id, err, &apperr.DocumentNotFoundError{ID: id})
	}
	return d, nil
}

func (s *DocumentService) Content(ctx context.Context, id string) (*document.Generated, []byte, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := getBlob(ctx, s.blobs, d.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	return d, data, nil
}

// Delete removes the record first, which makes the document unreachable,
// then revokes outstanding links and removes the blob best effort.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return recordErr("delete document", id, err, &apperr.DocumentNotFoundError{ID: id})
	}
	if err := tokens.RevokeDocumentLinks(ctx, id, s.linkTTL); err != nil {
		logger.With("document", id).Warnf("link revocation failed: %v", err)
	}
	discardBlob(ctx, s.blobs, d.BlobKey)
	logger.With("document", id).Info("deleted document")
	return nil
}

// SignedLink issues a download token for an existing document.
func (s *DocumentService) SignedLink(ctx context.Context, id string) (*SignedLink, error) {
	if s.linkSecret == "" {
		return nil, ErrLinksDisabled
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tok, err := tokens.GenerateDownloadToken(s.linkSecret, id, s.linkTTL)
	if err != nil {
		return nil, err
	}
	link := &SignedLink{Token: tok, ExpiresAt: time.Now().Add(s.linkTTL).UTC()}
	direct, err := s.blobs.Presign(ctx, d.BlobKey, s.linkTTL)
	switch {
	case err == nil:
		link.DirectURL = direct
	case !errors.Is(err, storage.ErrPresignUnsupported):
		logger.With("document", id).Warnf("presign failed: %v", err)
	}
	return link, nil
}

// LinkSecret is the secret download links are verified with.
func (s *DocumentService) LinkSecret() string { return s.linkSecret }
