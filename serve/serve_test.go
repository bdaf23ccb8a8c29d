package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextgraph-ai/backend/agent"
	"github.com/contextgraph-ai/backend/config"
	"github.com/contextgraph-ai/backend/flow"
	"github.com/contextgraph-ai/backend/schema"
	"github.com/contextgraph-ai/backend/session"
)

type stubSchemas struct {
	doc        *schema.Document
	err        error
	refreshErr error
	refreshed  bool
}

func (s *stubSchemas) Get(context.Context) (*schema.Document, error) { return s.doc, s.err }
func (s *stubSchemas) Refresh(context.Context) error {
	s.refreshed = true
	return s.refreshErr
}
func (s *stubSchemas) Summary(context.Context) string { return "summary" }

type stubSuggester struct{ questions []string }

func (s *stubSuggester) Generate(context.Context) []string { return s.questions }

type stubVectors struct {
	rows     []map[string]any
	updated  int
	err      error
	lastType string
}

func (v *stubVectors) SearchDecisions(_ context.Context, _, _ string, _ int) ([]map[string]any, error) {
	v.lastType = "decisions"
	return v.rows, v.err
}
func (v *stubVectors) SearchPolicies(_ context.Context, _ string, _ int) ([]map[string]any, error) {
	v.lastType = "policies"
	return v.rows, v.err
}
func (v *stubVectors) FindPrecedents(_ context.Context, _, _ string, _ int) ([]map[string]any, error) {
	v.lastType = "precedents"
	return v.rows, v.err
}
func (v *stubVectors) FindSimilarDecisions(_ context.Context, _ string, _, _ float64, _ int) ([]map[string]any, error) {
	v.lastType = "similar"
	return v.rows, v.err
}
func (v *stubVectors) UpdateDecisionEmbedding(_ context.Context, id, _ string) (bool, error) {
	v.lastType = "update_decision"
	return id != "missing", v.err
}
func (v *stubVectors) UpdatePolicyEmbedding(_ context.Context, id, _ string) (bool, error) {
	v.lastType = "update_policy"
	return id != "missing", v.err
}
func (v *stubVectors) BackfillDecisionEmbeddings(context.Context, int) (int, error) {
	return v.updated, v.err
}

type stubSession struct {
	opts       agent.Options
	reply      *agent.Reply
	connectErr error
	gotHistory []agent.Message
}

func (s *stubSession) Connect(context.Context) error { return s.connectErr }
func (s *stubSession) Close()                        {}

func (s *stubSession) Query(_ context.Context, _ string, history []agent.Message) (*agent.Reply, error) {
	s.gotHistory = history
	return s.reply, nil
}

func (s *stubSession) Stream(_ context.Context, _ string, history []agent.Message, emit func(agent.Event) error) error {
	s.gotHistory = history
	events := []agent.Event{
		agent.ContextEvent{Type: agent.EventAgentContext, Context: agent.Context{Model: s.opts.Model, SystemPrompt: "p", AvailableTools: []string{"get_schema"}}},
		agent.TextEvent{Type: agent.EventText, Content: "hello "},
		agent.TextEvent{Type: agent.EventText, Content: "world"},
		agent.DoneEvent{Type: agent.EventDone, ToolCalls: []agent.ToolCall{}},
	}
	for _, e := range events {
		if err := emit(e); err != nil {
			return err
		}
	}
	return nil
}

type testEnv struct {
	server   *Server
	flows    *flow.MemoryStore
	sessions *session.MemoryStore
	schemas  *stubSchemas
	vectors  *stubVectors
	lastSess *stubSession
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		flows:    flow.NewMemoryStore(),
		sessions: session.NewMemoryStore(),
		schemas:  &stubSchemas{doc: &schema.Document{NodeLabels: []string{"Person"}}},
		vectors:  &stubVectors{rows: []map[string]any{{"id": "d1"}}, updated: 4},
	}
	factory := func(opts agent.Options) AgentSession {
		env.lastSess = &stubSession{
			opts:  opts,
			reply: &agent.Reply{Response: "the answer", ToolCalls: []agent.ToolCall{{Name: "get_schema", Input: map[string]any{}}}},
		}
		return env.lastSess
	}
	cfg := &config.Config{CORSOrigins: []string{"*"}}
	env.server = New(cfg, env.flows, env.sessions, env.schemas,
		&stubSuggester{questions: []string{"q1", "q2", "q3"}}, env.vectors, factory,
		slog.New(slog.DiscardHandler))
	env.handler = env.server.Router()
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFlowLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/flows/", flow.Draft{Name: "My Flow"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[flow.Flow](t, rec)
	assert.Equal(t, "my-flow", created.Slug)
	assert.False(t, created.Published)

	rec = env.do(t, http.MethodGet, "/api/flows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/flows/slug/my-flow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bySlug := decode[flow.Flow](t, rec)
	assert.Equal(t, created.ID, bySlug.ID)

	rec = env.do(t, http.MethodPut, "/api/flows/"+created.ID, flow.Draft{Name: "Renamed Flow"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[flow.Flow](t, rec)
	assert.Equal(t, "renamed-flow", updated.Slug)

	rec = env.do(t, http.MethodPost, "/api/flows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[flow.Flow](t, rec).Published)

	rec = env.do(t, http.MethodGet, "/api/flows/?published=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]flow.Flow](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/flows/"+created.ID+"/unpublish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[flow.Flow](t, rec).Published)

	rec = env.do(t, http.MethodDelete, "/api/flows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/flows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlowValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/flows/", flow.Draft{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/flows/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/flows/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]string](t, rec)
	assert.Equal(t, []string{"q1", "q2", "q3"}, body["questions"])
}

func TestSchemaEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/schema/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.schemas.refreshed)

	env.schemas.err = errors.New("down")
	rec = env.do(t, http.MethodGet, "/api/schema", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ChatResponse](t, rec)
	assert.Equal(t, "the answer", resp.Response)
	assert.NotEmpty(t, resp.SessionID)
	require.Len(t, resp.ToolCalls, 1)

	// The turn lands in the transcript store.
	entries, err := env.sessions.History(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "the answer", entries[1].Content)
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hi", FlowID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatFlowOverrides(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.flows.Create(context.Background(), flow.Draft{
		Name:         "Special",
		SystemPrompt: "be brief",
		EnabledTools: []string{"get_schema"},
		ModelID:      "special-model",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hi", FlowID: created.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "be brief", env.lastSess.opts.SystemPrompt)
	assert.Equal(t, []string{"get_schema"}, env.lastSess.opts.EnabledTools)
	assert.Equal(t, "special-model", env.lastSess.opts.Model)
}

func TestChatHistoryFallsBackToTranscript(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sessions.Append(context.Background(), "s1",
		session.Entry{Role: "user", Content: "earlier"},
		session.Entry{Role: "assistant", Content: "reply"},
	))

	rec := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "again", SessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.lastSess.gotHistory, 2)
	assert.Equal(t, "earlier", env.lastSess.gotHistory[0].Content)
}

func TestChatStreamSSE(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat/stream", ChatRequest{Message: "hello", SessionID: "s9"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var events []map[string]any
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	require.Len(t, events, 4)
	assert.Equal(t, "agent_context", events[0]["type"])
	assert.Equal(t, "text", events[1]["type"])
	assert.Equal(t, "done", events[3]["type"])

	// Accumulated text lands in the transcript.
	entries, err := env.sessions.History(context.Background(), "s9")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hello world", entries[1].Content)
}

func TestSessionHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sessions.Append(context.Background(), "abc",
		session.Entry{Role: "user", Content: "x"},
	))

	rec := env.do(t, http.MethodGet, "/api/sessions/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "abc", body["session_id"])
	assert.Len(t, body["messages"], 1)
}

func TestVectorSearch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/vector/search", map[string]any{"type": "decisions", "query": "fraud"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "decisions", env.vectors.lastType)

	rec = env.do(t, http.MethodPost, "/api/vector/search", map[string]any{"type": "precedents", "query": "past refunds"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "precedents", env.vectors.lastType)

	rec = env.do(t, http.MethodPost, "/api/vector/search", map[string]any{"type": "similar", "decision_id": "d1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "similar", env.vectors.lastType)

	rec = env.do(t, http.MethodPost, "/api/vector/search", map[string]any{"type": "decisions"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/vector/search", map[string]any{"type": "bogus", "query": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVectorEmbeddingUpdate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/vector/embeddings", map[string]any{"type": "decision", "id": "d1", "text": "updated reasoning"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "update_decision", env.vectors.lastType)
	assert.True(t, decode[map[string]bool](t, rec)["updated"])

	rec = env.do(t, http.MethodPost, "/api/vector/embeddings", map[string]any{"type": "policy", "id": "p1", "text": "updated description"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "update_policy", env.vectors.lastType)

	rec = env.do(t, http.MethodPost, "/api/vector/embeddings", map[string]any{"type": "decision", "id": "missing", "text": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/vector/embeddings", map[string]any{"type": "decision", "id": "d1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/vector/embeddings", map[string]any{"type": "widget", "id": "d1", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVectorBackfill(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/vector/backfill", map[string]any{"limit": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[map[string]int](t, rec)["updated"])
}
