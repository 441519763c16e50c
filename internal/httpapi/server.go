// Package httpapi exposes the translation pipeline over a small JSON
// HTTP surface: blueprint generation, execution, and job inspection.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MimeLyc/blueprint-sub-translator/internal/agents"
	"github.com/MimeLyc/blueprint-sub-translator/internal/service"
	"github.com/MimeLyc/blueprint-sub-translator/internal/store"
)

// Translator is the orchestrator surface the server exposes.
// *service.Service satisfies it.
type Translator interface {
	GenerateBlueprint(ctx context.Context, sourceText string, settings service.Settings) (*service.BlueprintResult, error)
	ExecuteTranslation(ctx context.Context, jobID string, confirmed *agents.Blueprint, settings service.Settings) (*store.TranslationResult, error)
	GetJob(ctx context.Context, jobID string) (*store.TranslationJob, error)
}

type Server struct {
	translator Translator

	environment string
	defaults    service.Settings

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithEnvironment sets the deployment environment name. In
// "production", internal error details are not echoed to clients.
func WithEnvironment(env string) Option {
	return func(s *Server) {
		s.environment = env
	}
}

// WithDefaultSettings sets server-side translation defaults, applied
// when a request omits target_language, tone, or batch_size.
func WithDefaultSettings(defaults service.Settings) Option {
	return func(s *Server) {
		s.defaults = defaults
	}
}

func NewServer(translator Translator, opts ...Option) *Server {
	s := &Server{
		translator: translator,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/translations/blueprint", s.handleGenerateBlueprint)
	s.mux.HandleFunc("/api/translations/", s.handleTranslationByID)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
	})
}
