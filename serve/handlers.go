package serve

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	questions := s.suggester.Generate(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleSchemaGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.schemas.Get(r.Context())
	if err != nil {
		s.logger.Error("schema fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "graph unavailable")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSchemaRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.schemas.Refresh(r.Context()); err != nil {
		s.logger.Error("schema refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "graph unavailable")
		return
	}
	doc, err := s.schemas.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "graph unavailable")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := s.sessions.History(r.Context(), id)
	if err != nil {
		s.logger.Error("transcript read failed", "session", id, "error", err)
		writeError(w, http.StatusBadGateway, "session store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   entries,
	})
}

// vectorSearchRequest selects one of the search modes.
type vectorSearchRequest struct {
	Type             string  `json:"type"`
	Query            string  `json:"query"`
	Category         string  `json:"category"`
	DecisionID       string  `json:"decision_id"`
	SemanticWeight   float64 `json:"semantic_weight"`
	StructuralWeight float64 `json:"structural_weight"`
	Limit            int     `json:"limit"`
}

func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusBadRequest, "vector search not configured")
		return
	}
	var req vectorSearchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var rows []map[string]any
	var err error
	switch req.Type {
	case "decisions", "":
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		rows, err = s.vectors.SearchDecisions(r.Context(), req.Query, req.Category, req.Limit)
	case "policies":
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		rows, err = s.vectors.SearchPolicies(r.Context(), req.Query, req.Limit)
	case "precedents":
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		rows, err = s.vectors.FindPrecedents(r.Context(), req.Query, req.Category, req.Limit)
	case "similar":
		if req.DecisionID == "" {
			writeError(w, http.StatusBadRequest, "decision_id is required")
			return
		}
		sw, stw := req.SemanticWeight, req.StructuralWeight
		if sw == 0 && stw == 0 {
			sw, stw = 0.5, 0.5
		}
		rows, err = s.vectors.FindSimilarDecisions(r.Context(), req.DecisionID, sw, stw, req.Limit)
	default:
		writeError(w, http.StatusBadRequest, "unknown search type: "+req.Type)
		return
	}
	if err != nil {
		s.logger.Error("vector search failed", "type", req.Type, "error", err)
		writeError(w, http.StatusBadGateway, "vector search failed")
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": rows})
}

// handleVectorEmbeddings regenerates the stored embedding for one decision
// or policy from the supplied text.
func (s *Server) handleVectorEmbeddings(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusBadRequest, "vector search not configured")
		return
	}
	var req struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "id and text are required")
		return
	}

	var updated bool
	var err error
	switch req.Type {
	case "decision", "":
		updated, err = s.vectors.UpdateDecisionEmbedding(r.Context(), req.ID, req.Text)
	case "policy":
		updated, err = s.vectors.UpdatePolicyEmbedding(r.Context(), req.ID, req.Text)
	default:
		writeError(w, http.StatusBadRequest, "unknown embedding type: "+req.Type)
		return
	}
	if err != nil {
		s.logger.Error("embedding update failed", "type", req.Type, "id", req.ID, "error", err)
		writeError(w, http.StatusBadGateway, "embedding update failed")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "entity not found: "+req.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleVectorBackfill(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusBadRequest, "vector search not configured")
		return
	}
	var req struct {
		Limit int `json:"limit"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}
	updated, err := s.vectors.BackfillDecisionEmbeddings(r.Context(), req.Limit)
	if err != nil {
		s.logger.Error("embedding backfill failed", "error", err)
		writeError(w, http.StatusBadGateway, "embedding backfill failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
