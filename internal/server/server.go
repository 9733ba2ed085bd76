package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

// Server exposes the experimentation engine over a thin JSON HTTP surface.
type Server struct {
	engine    *engine.Engine
	store     *store.SQLiteStore
	host      string
	port      int
	logger    *slog.Logger
	router    *http.ServeMux
	startTime time.Time
}

func New(eng *engine.Engine, s *store.SQLiteStore, host string, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		engine:    eng,
		store:     s,
		host:      host,
		port:      port,
		logger:    logger,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/api/tests", s.handleTests)
	s.router.HandleFunc("/api/tests/", s.handleTestByID)
	s.router.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}
