package flow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenDB opens a Postgres connection pool for the flow store.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// PostgresStore is the durable Store backend.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore wraps an open bun database.
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the flows table and its indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Flow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("flow: creating table: %w", err)
	}
	for _, idx := range []struct{ name, column string }{
		{"idx_flows_published", "published"},
		{"idx_flows_slug", "slug"},
	} {
		if _, err := s.db.NewCreateIndex().
			Model((*Flow)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("flow: creating index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, draft Draft) (*Flow, error) {
	draft.normalize()
	now := time.Now().UTC()
	f := &Flow{
		ID:            uuid.NewString(),
		Name:          draft.Name,
		GraphSourceID: draft.GraphSourceID,
		SystemPrompt:  draft.SystemPrompt,
		EnabledTools:  draft.EnabledTools,
		ModelID:       draft.ModelID,
		Published:     false,
		Slug:          MakeSlug(draft.Name),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.db.NewInsert().Model(f).Exec(ctx); err != nil {
		return nil, fmt.Errorf("flow: insert: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Flow, error) {
	f := new(Flow)
	err := s.db.NewSelect().Model(f).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("flow: select by id: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Flow, error) {
	f := new(Flow)
	err := s.db.NewSelect().Model(f).Where("slug = ?", slug).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("flow: select by slug: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) List(ctx context.Context, publishedOnly bool) ([]*Flow, error) {
	var flows []*Flow
	q := s.db.NewSelect().Model(&flows).Order("updated_at DESC")
	if publishedOnly {
		q = q.Where("published IS TRUE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("flow: list: %w", err)
	}
	if flows == nil {
		flows = []*Flow{}
	}
	return flows, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, draft Draft) (*Flow, error) {
	draft.normalize()
	res, err := s.db.NewUpdate().
		Model((*Flow)(nil)).
		Set("name = ?", draft.Name).
		Set("graph_source_id = ?", draft.GraphSourceID).
		Set("system_prompt = ?", draft.SystemPrompt).
		Set("enabled_tools = ?", mustJSON(draft.EnabledTools)).
		Set("model_id = ?", draft.ModelID).
		Set("slug = ?", MakeSlug(draft.Name)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Publish(ctx context.Context, id string) (*Flow, error) {
	return s.setPublished(ctx, id, true)
}

func (s *PostgresStore) Unpublish(ctx context.Context, id string) (*Flow, error) {
	return s.setPublished(ctx, id, false)
}

func (s *PostgresStore) setPublished(ctx context.Context, id string, published bool) (*Flow, error) {
	res, err := s.db.NewUpdate().
		Model((*Flow)(nil)).
		Set("published = ?", published).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: set published: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().
		Model((*Flow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("flow: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// mustJSON renders the enabled tool list as a JSON array literal for the
// jsonb column. A []string cannot fail to marshal.
func mustJSON(tools []string) string {
	if tools == nil {
		tools = []string{}
	}
	raw, _ := json.Marshal(tools)
	return string(raw)
}

// compile-time interface checks for both backends
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
