// Package api is the HTTP surface: sources/destinations CRUD, manual sync
// triggers, status and history, the published ICS endpoints, health, and
// Prometheus metrics.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RobbyV2/caldav-to-ics/config"
	"github.com/RobbyV2/caldav-to-ics/engine"
	"github.com/RobbyV2/caldav-to-ics/publish"
	"github.com/RobbyV2/caldav-to-ics/store"
)

// Server bundles the collaborators every handler needs.
type Server struct {
	db        *store.DB
	eng       *engine.Engine
	publisher *publish.Publisher
	logger    *zap.Logger
	started   time.Time
}

// NewRouter builds the full chi router, wrapping it in a basic-auth
// perimeter when cfg enables one.
func NewRouter(db *store.DB, eng *engine.Engine, pub *publish.Publisher, logger *zap.Logger, cfg config.Config) http.Handler {
	s := &Server{db: db, eng: eng, publisher: pub, logger: logger, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))
	if cfg.AuthEnabled() {
		r.Use(func(next http.Handler) http.Handler {
			return basicAuth(cfg.AuthUsername, cfg.AuthPassword, cfg.AuthPasswordHash, next)
		})
	}

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/health/detailed", s.handleHealthDetailed)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ics/{path}", s.handleGetICS)

	api := chi.NewRouter()
	api.Route("/sources", func(r chi.Router) {
		r.Get("/", s.listSources)
		r.Post("/", s.createSource)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.updateSource)
			r.Delete("/", s.deleteSource)
			r.Post("/sync", s.syncSource)
			r.Get("/status", s.sourceStatus)
			r.Get("/history", s.sourceHistory)
			r.Post("/test", s.testSource)
		})
	})
	api.Route("/destinations", func(r chi.Router) {
		r.Get("/", s.listDestinations)
		r.Post("/", s.createDestination)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.updateDestination)
			r.Delete("/", s.deleteDestination)
			r.Post("/sync", s.syncDestination)
			r.Get("/status", s.destinationStatus)
			r.Get("/history", s.destinationHistory)
			r.Post("/test", s.testDestination)
		})
	})

	r.Mount("/api", api)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
