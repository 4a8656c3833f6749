package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/document"
	"github.com/insuredocs/docgen/internal/document/repository"
	"github.com/insuredocs/docgen/internal/docx"
	"github.com/insuredocs/docgen/internal/presets"
	"github.com/insuredocs/docgen/internal/storage"
	"github.com/insuredocs/docgen/internal/templating"
	"github.com/insuredocs/docgen/pkg/logger"
	"github.com/insuredocs/docgen/pkg/metrics"
)

const defaultCategory = "general"

// UploadInput is an uploaded template file with optional metadata.
type UploadInput struct {
	Filename    string
	Name        string
	Description string
	Category    string
	Data        []byte
}

// CreateInput builds a template from named text sections.
type CreateInput struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Sections    []presets.Section `json:"sections" binding:"required,min=1,dive"`
}

// TemplateService manages template records and their containers. Every
// content change recomputes the variable set and drops cached parse trees.
type TemplateService struct {
	repo  repository.TemplateRepository
	blobs storage.BlobStore
	cache *docx.Cache
}

func NewTemplateService(repo repository.TemplateRepository, blobs storage.BlobStore, cache *docx.Cache) *TemplateService {
	if cache == nil {
		cache = docx.NewCache(0)
	}
	return &TemplateService{repo: repo, blobs: blobs, cache: cache}
}

// Cache returns the parsed template cache shared with the generator.
func (s *TemplateService) Cache() *docx.Cache { return s.cache }

// Inspect validates a container and analyzes its variables. Containers
// whose control blocks do not parse are rejected here rather than at
// generation time.
func Inspect(data []byte) (templating.Analysis, error) {
	pkg, err := docx.Open(data)
	if err != nil {
		return templating.Analysis{}, err
	}
	if _, err := docx.Parse(pkg); err != nil {
		return templating.Analysis{}, err
	}
	text, err := pkg.Text()
	if err != nil {
		return templating.Analysis{}, err
	}
	return templating.Analyze(text), nil
}

func checkFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".docx") {
		return &apperr.TemplateFormatError{Reason: "only .docx files are allowed", Entry: name}
	}
	return nil
}

func blobKey(id, hash string) string {
	return storage.TemplateKey(id + "-" + hash[:12])
}

func (s *TemplateService) Upload(ctx context.Context, in UploadInput) (*document.Template, error) {
	if err := checkFilename(in.Filename); err != nil {
		return nil, err
	}
	base := filepath.Base(in.Filename)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	tpl := &document.Template{
		Name:        name,
		Description: in.Description,
		Category:    in.Category,
		Filename:    base,
	}
	return s.store(ctx, tpl, in.Data, "upload")
}

// Create builds a container from sections and stores it as a template.
func (s *TemplateService) Create(ctx context.Context, in CreateInput) (*document.Template, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &apperr.InvalidRequestError{Field: "name", Reason: "is required"}
	}
	if len(in.Sections) == 0 {
		return nil, &apperr.InvalidRequestError{Field: "sections", Reason: "at least one section is required"}
	}
	data, err := presets.Build(in.Sections)
	if err != nil {
		return nil, err
	}
	tpl := &document.Template{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		Filename:    strings.ReplaceAll(strings.ToLower(strings.TrimSpace(in.Name)), " ", "-") + ".docx",
	}
	return s.store(ctx, tpl, data, "sections")
}

// store writes the blob first and the record second; a failed record
// write removes the blob again.
func (s *TemplateService) store(ctx context.Context, tpl *document.Template, data []byte, source string) (*document.Template, error) {
	analysis, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	if tpl.Category == "" {
		tpl.Category = defaultCategory
	}
	tpl.ID = uuid.NewString()
	tpl.ContentHash = docx.ContentHash(data)
	tpl.BlobKey = blobKey(tpl.ID, tpl.ContentHash)
	tpl.Size = int64(len(data))
	tpl.Variables = analysis.Variables
	tpl.Sections = analysis.Sections

	if err := putBlob(ctx, s.blobs, tpl.BlobKey, data); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		discardBlob(ctx, s.blobs, tpl.BlobKey)
		return nil, &apperr.StorageError{Op: "create template", Key: tpl.ID, Err: err}
	}
	metrics.TemplateUploads.WithLabelValues(source).Inc()
	logger.With("template", tpl.ID).Infof("stored template %q with %d variables", tpl.Name, len(tpl.Variables))
	return tpl, nil
}

func (s *TemplateService) List(ctx context.Context, category string) ([]*document.Template, error) {
	list, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, &apperr.StorageError{Op: "list templates", Err: err}
	}
	return list, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (*document.Template, error) {
	tpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, recordErr("get template", id, err, &apperr.TemplateNotFoundError{ID: id})
	}
	return tpl, nil
}

// Content returns the template record together with its container.
func (s *TemplateService) Content(ctx context.Context, id string) (*document.Template, []byte, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := getBlob(ctx, s.blobs, tpl.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	return tpl, data, nil
}

// Patch edits metadata. Name and category may not end up empty.
func (s *TemplateService) Patch(ctx context.Context, id string, p document.TemplatePatch) (*document.Template, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		tpl.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		tpl.Description = *p.Description
	}
	if p.Category != nil {
		tpl.Category = strings.TrimSpace(*p.Category)
	}
	if tpl.Name == "" {
		return nil, &apperr.InvalidRequestError{Field: "name", Reason: "is required"}
	}
	if tpl.Category == "" {
		return nil, &apperr.InvalidRequestError{Field: "category", Reason: "is required"}
	}
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, recordErr("update template", id, err, &apperr.TemplateNotFoundError{ID: id})
	}
	return tpl, nil
}

// ReplaceContent swaps the container of an existing template. The new blob
// gets its own key so the record never points at a half-written object.
func (s *TemplateService) ReplaceContent(ctx context.Context, id, filename string, data []byte) (*document.Template, error) {
	if err := checkFilename(filename); err != nil {
		return nil, err
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	analysis, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	hash := docx.ContentHash(data)
	if hash == tpl.ContentHash {
		return tpl, nil
	}
	oldKey := tpl.BlobKey
	newKey := blobKey(id, hash)
	if err := putBlob(ctx, s.blobs, newKey, data); err != nil {
		return nil, err
	}
	tpl.BlobKey = newKey
	tpl.ContentHash = hash
	tpl.Size = int64(len(data))
	tpl.Filename = filepath.Base(filename)
	tpl.Variables = analysis.Variables
	tpl.Sections = analysis.Sections
	if err := s.repo.Update(ctx, tpl); err != nil {
		discardBlob(ctx, s.blobs, newKey)
		return nil, recordErr("update template", id, err, &apperr.TemplateNotFoundError{ID: id})
	}
	s.cache.Invalidate(id)
	if oldKey != newKey {
		discardBlob(ctx, s.blobs, oldKey)
	}
	metrics.TemplateUploads.WithLabelValues("replace").Inc()
	logger.With("template", id).Infof("replaced template content, %d variables", len(tpl.Variables))
	return tpl, nil
}

// Delete removes the record first and then, best effort, the container.
// Documents generated from the template are kept.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return recordErr("delete template", id, err, &apperr.TemplateNotFoundError{ID: id})
	}
	s.cache.Invalidate(id)
	discardBlob(ctx, s.blobs, tpl.BlobKey)
	logger.With("template", id).Info("deleted template")
	return nil
}
