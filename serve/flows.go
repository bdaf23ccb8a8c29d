package serve

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/contextgraph-ai/backend/flow"
)

func (s *Server) handleFlowCreate(w http.ResponseWriter, r *http.Request) {
	var draft flow.Draft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(draft.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := s.flows.Create(r.Context(), draft)
	if err != nil {
		s.logger.Error("flow create failed", "error", err)
		writeError(w, http.StatusBadGateway, "flow store unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleFlowList(w http.ResponseWriter, r *http.Request) {
	publishedOnly := r.URL.Query().Get("published") == "true"
	flows, err := s.flows.List(r.Context(), publishedOnly)
	if err != nil {
		s.logger.Error("flow list failed", "error", err)
		writeError(w, http.StatusBadGateway, "flow store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

func (s *Server) handleFlowGet(w http.ResponseWriter, r *http.Request) {
	f, err := s.flows.Get(r.Context(), chi.URLParam(r, "id"))
	s.respondFlow(w, f, err)
}

func (s *Server) handleFlowGetBySlug(w http.ResponseWriter, r *http.Request) {
	f, err := s.flows.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	s.respondFlow(w, f, err)
}

func (s *Server) handleFlowUpdate(w http.ResponseWriter, r *http.Request) {
	var draft flow.Draft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(draft.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	f, err := s.flows.Update(r.Context(), chi.URLParam(r, "id"), draft)
	s.respondFlow(w, f, err)
}

func (s *Server) handleFlowPublish(w http.ResponseWriter, r *http.Request) {
	f, err := s.flows.Publish(r.Context(), chi.URLParam(r, "id"))
	s.respondFlow(w, f, err)
}

func (s *Server) handleFlowUnpublish(w http.ResponseWriter, r *http.Request) {
	f, err := s.flows.Unpublish(r.Context(), chi.URLParam(r, "id"))
	s.respondFlow(w, f, err)
}

func (s *Server) handleFlowDelete(w http.ResponseWriter, r *http.Request) {
	err := s.flows.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, flow.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	if err != nil {
		s.logger.Error("flow delete failed", "error", err)
		writeError(w, http.StatusBadGateway, "flow store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) respondFlow(w http.ResponseWriter, f *flow.Flow, err error) {
	if errors.Is(err, flow.ErrNotFound) {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	if err != nil {
		s.logger.Error("flow store error", "error", err)
		writeError(w, http.StatusBadGateway, "flow store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, f)
}
