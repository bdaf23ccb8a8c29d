package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/contextgraph-ai/backend/agent"
	"github.com/contextgraph-ai/backend/config"
	"github.com/contextgraph-ai/backend/flow"
	"github.com/contextgraph-ai/backend/schema"
	"github.com/contextgraph-ai/backend/session"
)

// SchemaProvider is the schema service surface the handlers need.
type SchemaProvider interface {
	Get(ctx context.Context) (*schema.Document, error)
	Refresh(ctx context.Context) error
	Summary(ctx context.Context) string
}

// Suggester produces suggested questions; it never fails.
type Suggester interface {
	Generate(ctx context.Context) []string
}

// VectorService is the vector search surface the handlers need. It is nil
// when no embeddings provider is configured.
type VectorService interface {
	SearchDecisions(ctx context.Context, query, category string, limit int) ([]map[string]any, error)
	SearchPolicies(ctx context.Context, query string, limit int) ([]map[string]any, error)
	FindPrecedents(ctx context.Context, scenario, category string, limit int) ([]map[string]any, error)
	FindSimilarDecisions(ctx context.Context, decisionID string, semanticWeight, structuralWeight float64, limit int) ([]map[string]any, error)
	UpdateDecisionEmbedding(ctx context.Context, decisionID, reasoning string) (bool, error)
	UpdatePolicyEmbedding(ctx context.Context, policyID, description string) (bool, error)
	BackfillDecisionEmbeddings(ctx context.Context, limit int) (int, error)
}

// AgentSession is one connected conversation scope.
type AgentSession interface {
	Connect(ctx context.Context) error
	Close()
	Query(ctx context.Context, message string, history []agent.Message) (*agent.Reply, error)
	Stream(ctx context.Context, message string, history []agent.Message, emit func(agent.Event) error) error
}

// SessionFactory builds a session for the resolved overrides.
type SessionFactory func(opts agent.Options) AgentSession

// Server holds the wired dependencies behind the HTTP handlers.
type Server struct {
	cfg        *config.Config
	flows      flow.Store
	sessions   session.Store
	schemas    SchemaProvider
	suggester  Suggester
	vectors    VectorService
	newSession SessionFactory
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New wires a server. vectors may be nil.
func New(cfg *config.Config, flows flow.Store, sessions session.Store, schemas SchemaProvider,
	suggester Suggester, vectors VectorService, newSession SessionFactory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		flows:      flows,
		sessions:   sessions,
		schemas:    schemas,
		suggester:  suggester,
		vectors:    vectors,
		newSession: newSession,
		logger:     logger,
		tracer:     otel.Tracer("contextgraph.serve"),
	}
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)

		r.Route("/flows", func(r chi.Router) {
			r.Post("/", s.handleFlowCreate)
			r.Get("/", s.handleFlowList)
			r.Get("/slug/{slug}", s.handleFlowGetBySlug)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleFlowGet)
				r.Put("/", s.handleFlowUpdate)
				r.Delete("/", s.handleFlowDelete)
				r.Post("/publish", s.handleFlowPublish)
				r.Post("/unpublish", s.handleFlowUnpublish)
			})
		})

		r.Get("/suggestions", s.handleSuggestions)
		r.Get("/schema", s.handleSchemaGet)
		r.Post("/schema/refresh", s.handleSchemaRefresh)
		r.Get("/sessions/{id}", s.handleSessionHistory)

		r.Post("/vector/search", s.handleVectorSearch)
		r.Post("/vector/embeddings", s.handleVectorEmbeddings)
		r.Post("/vector/backfill", s.handleVectorBackfill)
	})

	return r
}

// Run serves until ctx is cancelled, then drains for up to 10 seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
