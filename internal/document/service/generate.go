package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/clients"
	"github.com/insuredocs/docgen/internal/document"
	"github.com/insuredocs/docgen/internal/document/repository"
	"github.com/insuredocs/docgen/internal/docx"
	"github.com/insuredocs/docgen/internal/expr"
	"github.com/insuredocs/docgen/internal/policy"
	"github.com/insuredocs/docgen/internal/storage"
	"github.com/insuredocs/docgen/pkg/logger"
	"github.com/insuredocs/docgen/pkg/metrics"
)

// GenerateRequest is the payload of a generation call.
type GenerateRequest struct {
	TemplateID string         `json:"templateId" binding:"required"`
	ClientID   string         `json:"clientId"`
	PolicyType policy.Type    `json:"policyType"`
	Name       string         `json:"name"`
	Variables  map[string]any `json:"variables"`
	// Strict overrides the configured default when set.
	Strict *bool `json:"strict"`
	// AllowPartial continues without policy data when the client's policy
	// does not match its declared shape.
	AllowPartial bool `json:"allowPartial"`
}

// GenerateResult references the stored document.
type GenerateResult struct {
	Document *document.Generated `json:"document"`
	Warnings []string            `json:"warnings,omitempty"`
}

// GeneratorConfig holds rendering defaults.
type GeneratorConfig struct {
	Strict     bool
	DateLayout string
}

// Generator renders templates against merged client, policy and request
// data and persists the result.
type Generator struct {
	templates  *TemplateService
	docs       repository.GeneratedRepository
	blobs      storage.BlobStore
	clients    clients.Source
	normalizer policy.Normalizer
	strict     bool
	now        func() time.Time
}

// NewGenerator returns a generator; src may be nil when no client data is
// available, in which case requests naming a client fail.
func NewGenerator(templates *TemplateService, docs repository.GeneratedRepository, blobs storage.BlobStore, src clients.Source, cfg GeneratorConfig) *Generator {
	return &Generator{
		templates:  templates,
		docs:       docs,
		blobs:      blobs,
		clients:    src,
		normalizer: policy.NewNormalizer(cfg.DateLayout),
		strict:     cfg.Strict,
		now:        time.Now,
	}
}

// Generate renders and stores one document. Nothing is persisted unless
// rendering succeeds; the blob is written before the record and removed
// again when the record cannot be written.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (res *GenerateResult, err error) {
	start := g.now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
			if outcome == "" {
				outcome = "error"
			}
		}
		metrics.Renders.WithLabelValues(outcome).Inc()
	}()

	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, &apperr.InvalidRequestError{Field: "templateId", Reason: "is required"}
	}
	tpl, content, err := g.templates.Content(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	log := logger.With("template", tpl.ID, "client", req.ClientID)
	data, warnings, err := g.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	strict := g.strict
	if req.Strict != nil {
		strict = *req.Strict
	}
	out, err := g.render(tpl.ID, content, data, docx.Options{Strict: strict, DateLayout: g.layout()})
	if err != nil {
		log.Warnf("render failed: %v", err)
		return nil, err
	}
	metrics.RenderDuration.Observe(g.now().Sub(start).Seconds())

	doc := &document.Generated{
		ID:         uuid.NewString(),
		Name:       g.documentName(req.Name, tpl.Name),
		TemplateID: tpl.ID,
		ClientID:   req.ClientID,
		Size:       int64(len(out)),
		Variables:  Snapshot(data),
		CreatedAt:  g.now().UTC(),
	}
	if pid, ok := data["policy_id"].(string); ok {
		doc.PolicyID = pid
	}
	doc.BlobKey = storage.DocumentKey(doc.ID)

	if err := putBlob(ctx, g.blobs, doc.BlobKey, out); err != nil {
		return nil, err
	}
	if err := g.docs.Create(ctx, doc); err != nil {
		discardBlob(ctx, g.blobs, doc.BlobKey)
		return nil, &apperr.StorageError{Op: "create document", Key: doc.ID, Err: err}
	}
	log.Infof("generated document %s (%d bytes) in %s", doc.ID, doc.Size, g.now().Sub(start))
	return &GenerateResult{Document: doc, Warnings: warnings}, nil
}

func (g *Generator) render(templateID string, content []byte, data expr.Mapping, opts docx.Options) ([]byte, error) {
	job, err := docx.Load(content)
	if err != nil {
		return nil, err
	}
	if err := job.ParseWith(g.templates.Cache(), templateID); err != nil {
		return nil, err
	}
	if err := job.Render(data, opts); err != nil {
		return nil, err
	}
	return job.Serialize()
}

// resolve merges, in increasing precedence: the normalized policy, client
// fields, signature dates and the request variables.
func (g *Generator) resolve(ctx context.Context, req GenerateRequest) (expr.Mapping, []string, error) {
	data := expr.Mapping{}
	var warnings []string

	if req.ClientID != "" {
		if g.clients == nil {
			return nil, nil, &apperr.ClientNotFoundError{ID: req.ClientID}
		}
		client, err := g.clients.Get(ctx, req.ClientID)
		if err != nil {
			return nil, nil, err
		}
		addr, err := g.clients.DefaultAddress(ctx, req.ClientID)
		if err != nil {
			return nil, nil, err
		}
		pol, err := g.clients.ActivePolicy(ctx, req.ClientID, req.PolicyType)
		if err != nil {
			return nil, nil, err
		}
		if pol != nil {
			mapping, err := g.normalizer.Normalize(*pol)
			var integrity *apperr.DataIntegrityError
			switch {
			case err == nil:
				data.Merge(mapping)
				data["policy_id"] = pol.ID
			case errors.As(err, &integrity) && req.AllowPartial:
				warnings = append(warnings, err.Error())
				logger.With("policy", pol.ID).Warnf("continuing without policy data: %v", err)
			default:
				return nil, nil, err
			}
		}
		for k, v := range clients.Fields(client, addr, g.layout()) {
			data[k] = v
		}
	}

	today := g.now().UTC().Format(g.layout())
	data["representative_signature_date"] = today
	data["policyholder_signature_date"] = today

	for k, v := range req.Variables {
		expr.Walk(k, v, func(path string, value any) {
			if _, exists := data[path]; exists && isBlank(value) {
				return
			}
			data[path] = value
		})
	}
	if s, ok := req.Variables["coverage_limit"].(string); ok && !isBlank(s) {
		if n, err := policy.ParseCurrency(s); err == nil {
			data["coverage_limit_number"] = n
		}
	}
	return data, warnings, nil
}

func (g *Generator) layout() string {
	if g.normalizer.DateLayout != "" {
		return g.normalizer.DateLayout
	}
	return policy.DefaultDateLayout
}

func (g *Generator) documentName(requested, templateName string) string {
	if name := strings.TrimSpace(requested); name != "" {
		if !strings.HasSuffix(strings.ToLower(name), ".docx") {
			name += ".docx"
		}
		return name
	}
	return fmt.Sprintf("%s-%s.docx", templateName, g.now().UTC().Format("2006-01-02T15-04-05"))
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// Snapshot converts a render mapping into plain values suitable for JSON
// and BSON storage. Display types such as currency amounts are stored as
// the text that was rendered.
func Snapshot(data expr.Mapping) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, float64:
		return t
	case policy.Amount:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		return Snapshot(t)
	case expr.Mapping:
		return Snapshot(t)
	}
	return expr.Stringify(v)
}
