package flow

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/contextgraph-ai/backend/tools"
)

// Draft defaults.
const (
	DefaultModelID       = "claude-sonnet-4-20250514"
	DefaultGraphSourceID = "default"
)

// Flow is a saved agent configuration. The JSON shape is both the API and
// the storage projection; timestamps travel as RFC 3339 strings.
type Flow struct {
	bun.BaseModel `bun:"table:flows,alias:f" json:"-"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	GraphSourceID string    `bun:"graph_source_id" json:"graph_source_id"`
	SystemPrompt  string    `bun:"system_prompt" json:"system_prompt"`
	EnabledTools  []string  `bun:"enabled_tools,type:jsonb" json:"enabled_tools"`
	ModelID       string    `bun:"model_id,notnull" json:"model_id"`
	Published     bool      `bun:"published,notnull,default:false" json:"published"`
	Slug          string    `bun:"slug" json:"slug"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Draft is the caller-supplied content of a create or update.
type Draft struct {
	Name          string   `json:"name"`
	GraphSourceID string   `json:"graph_source_id"`
	SystemPrompt  string   `json:"system_prompt"`
	EnabledTools  []string `json:"enabled_tools"`
	ModelID       string   `json:"model_id"`
}

// normalize fills draft defaults: the default graph source, the default
// model, and the full tool set when none is named.
func (d *Draft) normalize() {
	if d.GraphSourceID == "" {
		d.GraphSourceID = DefaultGraphSourceID
	}
	if d.ModelID == "" {
		d.ModelID = DefaultModelID
	}
	if len(d.EnabledTools) == 0 {
		d.EnabledTools = append([]string(nil), tools.AllNames...)
	}
}

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// MakeSlug derives a URL-friendly slug from a flow name. Names that
// normalize to nothing get a random eight-character fallback; collisions
// beyond that are not resolved.
func MakeSlug(name string) string {
	s := slugStrip.ReplaceAllString(name, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugCollapse.ReplaceAllString(s, "-")
	if s == "" {
		return uuid.NewString()[:8]
	}
	return s
}
