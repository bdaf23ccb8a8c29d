package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextgraph-ai/backend/tools"
)

func TestMakeSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "My Flow", "my-flow"},
		{"punctuation stripped", "Q4 Review: Risks!", "q4-review-risks"},
		{"dashes and spaces collapse", "a  -  b --- c", "a-b-c"},
		{"mixed case", "DeepDive", "deepdive"},
		{"unicode kept", "决策 分析", "决策-分析"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MakeSlug(tt.in))
		})
	}
}

func TestMakeSlugEmptyNameFallsBack(t *testing.T) {
	got := MakeSlug("!!!")
	assert.Len(t, got, 8)
	// Random fallback, so two calls differ.
	assert.NotEqual(t, got, MakeSlug("!!!"))
}

func newClockedStore() (*MemoryStore, *time.Time) {
	s := NewMemoryStore()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return s, &now
}

func TestCreateFillsDraftDefaults(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Name: "Bare", SystemPrompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, DefaultGraphSourceID, created.GraphSourceID)
	assert.Equal(t, DefaultModelID, created.ModelID)
	assert.Equal(t, tools.AllNames, created.EnabledTools)

	// The stored tool list is a copy, not an alias of the shared set.
	created.EnabledTools[0] = "mutated"
	assert.Equal(t, "get_schema", tools.AllNames[0])

	// Caller-supplied values survive untouched.
	custom, err := s.Create(ctx, Draft{
		Name:          "Custom",
		GraphSourceID: "staging",
		EnabledTools:  []string{tools.NameGetSchema},
		ModelID:       "other-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "staging", custom.GraphSourceID)
	assert.Equal(t, []string{tools.NameGetSchema}, custom.EnabledTools)
	assert.Equal(t, "other-model", custom.ModelID)
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Name: "Graph Tour"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "graph-tour", created.Slug)
	assert.Equal(t, DefaultModelID, created.ModelID)
	assert.False(t, created.Published)
	assert.NotNil(t, created.EnabledTools)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	bySlug, err := s.GetBySlug(ctx, "graph-tour")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Update(ctx, "missing", Draft{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Publish(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
}

func TestMemoryStoreUpdateRecomputesSlug(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Name: "Old Name", SystemPrompt: "p1"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, Draft{
		Name:         "New Name",
		SystemPrompt: "p2",
		EnabledTools: []string{"get_schema"},
		ModelID:      "other-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new-name", updated.Slug)
	assert.Equal(t, "p2", updated.SystemPrompt)
	assert.Equal(t, []string{"get_schema"}, updated.EnabledTools)
	assert.Equal(t, "other-model", updated.ModelID)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMemoryStorePublishRoundTrip(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Name: "Pub"})
	require.NoError(t, err)

	published, err := s.Publish(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
	assert.True(t, published.UpdatedAt.After(created.UpdatedAt))

	unpublished, err := s.Unpublish(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Published, unpublished.Published)
	assert.True(t, unpublished.UpdatedAt.After(published.UpdatedAt))
}

func TestMemoryStoreListOrderAndFilter(t *testing.T) {
	s, _ := newClockedStore()
	ctx := context.Background()

	a, err := s.Create(ctx, Draft{Name: "a"})
	require.NoError(t, err)
	b, err := s.Create(ctx, Draft{Name: "b"})
	require.NoError(t, err)
	_, err = s.Publish(ctx, a.ID)
	require.NoError(t, err)

	all, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// a was touched last, so it sorts first.
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	published, err := s.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, a.ID, published[0].ID)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Name: "gone"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, Draft{Name: "iso", EnabledTools: []string{"get_schema"}})
	require.NoError(t, err)
	created.EnabledTools[0] = "mutated"

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_schema"}, got.EnabledTools)
}
