package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Fetcher retrieves the current schema from the graph database.
// *graph.Client satisfies this interface.
type Fetcher interface {
	FetchSchema(ctx context.Context) (*Document, error)
}

// Service owns the process-wide schema cache.
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.Mutex
	doc      *Document
	cachedAt time.Time
}

// NewService creates a schema service. The cache starts empty and is
// populated on the first Get or Refresh.
func NewService(fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, logger: logger}
}

// Get returns the cached schema, fetching it first if the cache is empty.
// When the initial fetch fails an empty document is returned together with
// the error; subsequent calls will retry.
func (s *Service) Get(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		return s.doc, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return &Document{}, err
	}
	return s.doc, nil
}

// Refresh re-reads the schema from the database. On failure the previous
// cache entry is kept untouched and the error is returned.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) error {
	doc, err := s.fetcher.FetchSchema(ctx)
	if err != nil {
		s.logger.Warn("schema refresh failed, keeping previous cache", "error", err)
		return fmt.Errorf("schema: refresh: %w", err)
	}
	s.doc = doc
	s.cachedAt = time.Now()
	return nil
}

// CachedAt returns when the cache was last successfully populated.
// The zero time means the cache has never been filled.
func (s *Service) CachedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedAt
}

// Summary returns the prompt-ready textual summary of the cached schema,
// fetching the schema first when the cache is empty. A fetch failure
// degrades to the "not available" text rather than an error: the agent can
// still run and fall back to the get_schema tool.
func (s *Service) Summary(ctx context.Context) string {
	doc, err := s.Get(ctx)
	if err != nil {
		return SummaryUnavailable
	}
	return Summarize(doc)
}
