package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insuredocs/docgen/internal/document"
	"github.com/insuredocs/docgen/internal/templating"
)

func TestMemoryTemplatesCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTemplates()
	tpl := &document.Template{
		Name:      "Auto Policy",
		Category:  "policy",
		Variables: []templating.Variable{{Name: "policy_number", Type: templating.TypeText, Required: true}},
	}
	require.NoError(t, r.Create(ctx, tpl))
	require.NotEmpty(t, tpl.ID)
	require.False(t, tpl.CreatedAt.IsZero())

	got, err := r.Get(ctx, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, "Auto Policy", got.Name)
	require.Equal(t, []string{"policy_number"}, got.VariableNames())

	got.Name = "changed outside the store"
	again, err := r.Get(ctx, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, "Auto Policy", again.Name)

	again.Category = "claim"
	require.NoError(t, r.Update(ctx, again))
	list, err := r.List(ctx, "claim")
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = r.List(ctx, "policy")
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, r.Delete(ctx, tpl.ID))
	_, err = r.Get(ctx, tpl.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, tpl.ID), ErrNotFound)
	require.ErrorIs(t, r.Update(ctx, tpl), ErrNotFound)
}

func TestMemoryTemplatesListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTemplates()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, r.Create(ctx, &document.Template{Name: name}))
	}
	list, err := r.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "third", list[0].Name)
	require.Equal(t, "first", list[2].Name)
}

func TestMemoryGeneratedFilter(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryGenerated()
	require.NoError(t, r.Create(ctx, &document.Generated{Name: "a", TemplateID: "t1", ClientID: "c1"}))
	require.NoError(t, r.Create(ctx, &document.Generated{Name: "b", TemplateID: "t1", ClientID: "c2"}))
	require.NoError(t, r.Create(ctx, &document.Generated{Name: "c", TemplateID: "t2"}))

	all, err := r.List(ctx, GeneratedFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byTemplate, err := r.List(ctx, GeneratedFilter{TemplateID: "t1"})
	require.NoError(t, err)
	require.Len(t, byTemplate, 2)

	byClient, err := r.List(ctx, GeneratedFilter{TemplateID: "t1", ClientID: "c2"})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	require.Equal(t, "b", byClient[0].Name)

	r.FailCreate = 1
	require.Error(t, r.Create(ctx, &document.Generated{Name: "d"}))

	require.NoError(t, r.Delete(ctx, byClient[0].ID))
	_, err = r.Get(ctx, byClient[0].ID)
	require.ErrorIs(t, err, ErrNotFound)
}
