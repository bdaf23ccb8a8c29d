package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/contextgraph-ai/backend/agent"
	"github.com/contextgraph-ai/backend/flow"
	"github.com/contextgraph-ai/backend/session"
)

// FlowPreviewConfig is an unsaved flow tried out directly from the editor.
type FlowPreviewConfig struct {
	SystemPrompt string   `json:"system_prompt"`
	EnabledTools []string `json:"enabled_tools"`
	ModelID      string   `json:"model_id"`
}

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Message             string             `json:"message"`
	SessionID           string             `json:"session_id"`
	ConversationHistory []agent.Message    `json:"conversation_history"`
	FlowID              string             `json:"flow_id"`
	FlowPreviewConfig   *FlowPreviewConfig `json:"flow_preview_config"`
}

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	Response  string           `json:"response"`
	SessionID string           `json:"session_id"`
	ToolCalls []agent.ToolCall `json:"tool_calls"`
}

// resolveOptions turns a chat request into session overrides. A flow id
// wins over a preview config.
func (s *Server) resolveOptions(r *http.Request, req *ChatRequest) (agent.Options, error) {
	if req.FlowID != "" {
		f, err := s.flows.Get(r.Context(), req.FlowID)
		if err != nil {
			return agent.Options{}, err
		}
		return agent.Options{
			SystemPrompt: f.SystemPrompt,
			EnabledTools: f.EnabledTools,
			Model:        f.ModelID,
		}, nil
	}
	if req.FlowPreviewConfig != nil {
		return agent.Options{
			SystemPrompt: req.FlowPreviewConfig.SystemPrompt,
			EnabledTools: req.FlowPreviewConfig.EnabledTools,
			Model:        req.FlowPreviewConfig.ModelID,
		}, nil
	}
	return agent.Options{}, nil
}

// history picks the request-supplied conversation, falling back to the
// stored transcript.
func (s *Server) history(r *http.Request, req *ChatRequest) []agent.Message {
	if len(req.ConversationHistory) > 0 {
		return req.ConversationHistory
	}
	if req.SessionID == "" {
		return nil
	}
	stored, err := s.sessions.History(r.Context(), req.SessionID)
	if err != nil {
		s.logger.Warn("transcript read failed", "session", req.SessionID, "error", err)
		return nil
	}
	history := make([]agent.Message, 0, len(stored))
	for _, e := range stored {
		history = append(history, agent.Message{Role: e.Role, Content: e.Content})
	}
	return history
}

func (s *Server) recordTurn(r *http.Request, sessionID, userMessage, assistantText string, toolCalls []string) {
	now := time.Now().UTC()
	err := s.sessions.Append(r.Context(), sessionID,
		session.Entry{Role: "user", Content: userMessage, CreatedAt: now},
		session.Entry{Role: "assistant", Content: assistantText, ToolCalls: toolCalls, CreatedAt: now},
	)
	if err != nil {
		s.logger.Warn("transcript append failed", "session", sessionID, "error", err)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "serve.chat")
	defer span.End()
	r = r.WithContext(ctx)

	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("chat.session_id", req.SessionID))

	opts, err := s.resolveOptions(r, &req)
	if errors.Is(err, flow.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "flow store unavailable")
		return
	}
	history := s.history(r, &req)

	sess := s.newSession(opts)
	if err := sess.Connect(r.Context()); err != nil {
		s.logger.Error("agent connect failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent unavailable")
		return
	}
	defer sess.Close()

	reply, err := sess.Query(r.Context(), req.Message, history)
	if err != nil {
		s.logger.Error("agent query failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent query failed")
		return
	}

	toolNames := make([]string, 0, len(reply.ToolCalls))
	for _, tc := range reply.ToolCalls {
		toolNames = append(toolNames, tc.Name)
	}
	s.recordTurn(r, req.SessionID, req.Message, reply.Response, toolNames)
	writeJSON(w, http.StatusOK, ChatResponse{
		Response:  reply.Response,
		SessionID: req.SessionID,
		ToolCalls: reply.ToolCalls,
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "serve.chat_stream",
		trace.WithAttributes(attribute.Bool("chat.stream", true)))
	defer span.End()
	r = r.WithContext(ctx)

	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	opts, err := s.resolveOptions(r, &req)
	if errors.Is(err, flow.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "flow store unavailable")
		return
	}
	history := s.history(r, &req)

	sess := s.newSession(opts)
	if err := sess.Connect(r.Context()); err != nil {
		s.logger.Error("agent connect failed", "error", err)
		writeError(w, http.StatusBadGateway, "agent unavailable")
		return
	}
	defer sess.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var assistantText strings.Builder
	var toolNames []string
	emit := func(e agent.Event) error {
		switch ev := e.(type) {
		case agent.TextEvent:
			assistantText.WriteString(ev.Content)
		case agent.ToolUseEvent:
			toolNames = append(toolNames, ev.Name)
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", raw); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := sess.Stream(r.Context(), req.Message, history, emit); err != nil {
		// Headers are gone; all we can do is log and drop the connection.
		s.logger.Error("agent stream failed", "session", req.SessionID, "error", err)
		return
	}
	s.recordTurn(r, req.SessionID, req.Message, assistantText.String(), toolNames)
}
