// Package router wires the HTTP surface: middleware stack, route table, and
// handler dependencies, mirroring the teacher's router.New(deps) pattern but
// trimmed to this service's routes (no auth groups — there is no account
// system in scope here).
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paperrag/agent/internal/handler"
	"github.com/paperrag/agent/internal/middleware"
	"github.com/paperrag/agent/internal/repository"
	"github.com/paperrag/agent/internal/service"
)

// Dependencies bundles everything route registration needs.
type Dependencies struct {
	Agent         *service.AgentService
	Conversations *repository.ConversationStore
	DB            handler.DBPinger
	Metrics       *middleware.Metrics
	MetricsReg    *prometheus.Registry
	FrontendURL   string
	Version       string
}

// New builds the chi.Mux serving this application's API.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/health", handler.Health(deps.DB, deps.Version))

	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	r.Post("/stream", handler.Chat(deps.Agent))

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", handler.ListConversations(deps.Conversations))
		r.Get("/{session_id}", handler.GetConversation(deps.Conversations))
		r.Delete("/{session_id}", handler.DeleteConversation(deps.Conversations))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
