// Package server assembles the HTTP surface: routes, middleware, CORS, and
// static audio serving.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lunavoice/luna/pkg/engine"
	"github.com/lunavoice/luna/pkg/gateway/config"
	"github.com/lunavoice/luna/pkg/gateway/handlers"
	"github.com/lunavoice/luna/pkg/gateway/metrics"
	"github.com/lunavoice/luna/pkg/gateway/mw"
	"github.com/lunavoice/luna/pkg/history"
)

// APIPrefix is the base path of the REST surface.
const APIPrefix = "/api/v1"

type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  *engine.Engine
	history *history.Store
	metrics *metrics.Metrics
	router  *mux.Router
}

// Deps are the server's collaborators.
type Deps struct {
	Engine  *engine.Engine
	History *history.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  deps.Engine,
		history: deps.History,
		metrics: deps.Metrics,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	s.router.Handle("/healthz", handlers.Health{Engine: s.engine}).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// Synthesized reply audio, addressed by the refs in turn results.
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.AudioDir))))

	api := s.router.PathPrefix(APIPrefix).Subrouter()

	sessions := &handlers.Sessions{
		Engine:         s.engine,
		History:        s.history,
		Logger:         s.logger,
		MaxUploadBytes: s.cfg.MaxUploadBytes,
	}
	api.HandleFunc("/sessions/start", sessions.Start).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}", sessions.Get).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{session_id}/turn", sessions.Turn).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}/stop", sessions.Stop).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{session_id}/end", sessions.End).Methods(http.MethodPost)
	api.Handle("/sessions/{session_id}/events", handlers.NewEvents(s.engine, s.logger)).Methods(http.MethodGet)

	hist := &handlers.History{Store: s.history, Logger: s.logger}
	api.HandleFunc("/history", hist.List).Methods(http.MethodGet)
	api.HandleFunc("/history", hist.DeleteAll).Methods(http.MethodDelete)
	api.HandleFunc("/history/{session_id}", hist.Get).Methods(http.MethodGet)
	api.HandleFunc("/history/{session_id}", hist.Delete).Methods(http.MethodDelete)

	settings := &handlers.Settings{Store: s.history, Logger: s.logger}
	api.HandleFunc("/settings", settings.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings", settings.Save).Methods(http.MethodPost)
}

// Handler returns the fully wrapped handler chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		}).Handler(h)
	}
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
