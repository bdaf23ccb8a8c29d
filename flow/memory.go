package flow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Contents vanish with the process.
type MemoryStore struct {
	mu    sync.RWMutex
	flows map[string]*Flow

	// now is swappable so tests can verify updated_at monotonicity.
	now func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows: make(map[string]*Flow),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, draft Draft) (*Flow, error) {
	draft.normalize()
	now := s.now()
	f := &Flow{
		ID:            uuid.NewString(),
		Name:          draft.Name,
		GraphSourceID: draft.GraphSourceID,
		SystemPrompt:  draft.SystemPrompt,
		EnabledTools:  append([]string{}, draft.EnabledTools...),
		ModelID:       draft.ModelID,
		Published:     false,
		Slug:          MakeSlug(draft.Name),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = f
	return copyFlow(f), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFlow(f), nil
}

func (s *MemoryStore) GetBySlug(_ context.Context, slug string) (*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.flows {
		if f.Slug == slug {
			return copyFlow(f), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, publishedOnly bool) ([]*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Flow, 0, len(s.flows))
	for _, f := range s.flows {
		if publishedOnly && !f.Published {
			continue
		}
		out = append(out, copyFlow(f))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, draft Draft) (*Flow, error) {
	draft.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, ErrNotFound
	}
	f.Name = draft.Name
	f.GraphSourceID = draft.GraphSourceID
	f.SystemPrompt = draft.SystemPrompt
	f.EnabledTools = append([]string{}, draft.EnabledTools...)
	f.ModelID = draft.ModelID
	f.Slug = MakeSlug(draft.Name)
	f.UpdatedAt = s.now()
	return copyFlow(f), nil
}

func (s *MemoryStore) Publish(ctx context.Context, id string) (*Flow, error) {
	return s.setPublished(id, true)
}

func (s *MemoryStore) Unpublish(ctx context.Context, id string) (*Flow, error) {
	return s.setPublished(id, false)
}

func (s *MemoryStore) setPublished(id string, published bool) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, ErrNotFound
	}
	f.Published = published
	f.UpdatedAt = s.now()
	return copyFlow(f), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return ErrNotFound
	}
	delete(s.flows, id)
	return nil
}

func copyFlow(f *Flow) *Flow {
	out := *f
	out.EnabledTools = append([]string{}, f.EnabledTools...)
	return &out
}
