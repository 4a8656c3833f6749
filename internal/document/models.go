package document

import (
	"time"

	"github.com/insuredocs/docgen/internal/templating"
)

// Template is the stored metadata of an uploaded template container. The
// container itself lives in the blob store under BlobKey; Variables and
// Sections are derived from it and recomputed on every content change.
type Template struct {
	ID          string                `json:"id" bson:"id"`
	Name        string                `json:"name" bson:"name"`
	Description string                `json:"description,omitempty" bson:"description,omitempty"`
	Category    string                `json:"category" bson:"category"`
	Filename    string                `json:"filename,omitempty" bson:"filename,omitempty"`
	BlobKey     string                `json:"-" bson:"blobKey"`
	ContentHash string                `json:"contentHash" bson:"contentHash"`
	Size        int64                 `json:"size" bson:"size"`
	Variables   []templating.Variable `json:"variables" bson:"variables"`
	Sections    []templating.Section  `json:"sections,omitempty" bson:"sections,omitempty"`
	CreatedAt   time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// VariableNames returns the names of the template's variables in stored order.
func (t *Template) VariableNames() []string {
	out := make([]string, 0, len(t.Variables))
	for _, v := range t.Variables {
		out = append(out, v.Name)
	}
	return out
}

// TemplatePatch holds editable metadata; nil fields are left unchanged.
type TemplatePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// Generated is a rendered document. It is immutable once created.
type Generated struct {
	ID         string         `json:"id" bson:"id"`
	Name       string         `json:"name" bson:"name"`
	TemplateID string         `json:"templateId" bson:"templateId"`
	ClientID   string         `json:"clientId,omitempty" bson:"clientId,omitempty"`
	PolicyID   string         `json:"policyId,omitempty" bson:"policyId,omitempty"`
	BlobKey    string         `json:"-" bson:"blobKey"`
	Size       int64          `json:"size" bson:"size"`
	Variables  map[string]any `json:"variables" bson:"variables"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
}
