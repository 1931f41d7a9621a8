package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/markdave123-py/pdfchat/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/pdfchat/internal/api/middlewares"
	"github.com/markdave123-py/pdfchat/internal/config"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        logger.ILogger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, log logger.ILogger, sessionSvc *services.SessionService, documentSvc *services.DocumentService) *Server {
	sessionHandler := handlers.NewSessionHandler(sessionSvc, log)
	docHandler := handlers.NewDocumentHandler(documentSvc, cfg.MaxPDFBytes(), log)
	chatHandler := handlers.NewChatHandler(sessionSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)
	// a request may carry an extraction and a completion
	r.Use(middleware.Timeout(cfg.ExtractionTimeout() + cfg.CompletionTimeout() + 30*time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// API routes
	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", sessionHandler.Health)

		api.Route("/sessions", func(sessions chi.Router) {
			sessions.Post("/", sessionHandler.CreateSession)
			sessions.Get("/", sessionHandler.ListSessions)

			sessions.Route("/{session_id}", func(s chi.Router) {
				s.Get("/", sessionHandler.GetSession)
				s.Delete("/", sessionHandler.DeleteSession)

				s.Post("/documents", docHandler.UploadDocuments)
				s.Get("/documents", docHandler.ListDocuments)
				s.Delete("/documents/{filename}", docHandler.RemoveDocument)

				s.Post("/chat", chatHandler.SendMessage)
				s.Get("/history", sessionHandler.GetHistory)
				s.Delete("/history", sessionHandler.ClearHistory)
				s.Get("/stats", sessionHandler.GetStats)
			})
		})
	})

	// Serve static files from the web directory
	if info, err := os.Stat(cfg.WebDir); err == nil && info.IsDir() {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	} else if cfg.WebDir != "" {
		log.Warn(module, "Web directory not found, UI disabled", map[string]interface{}{"web_dir": cfg.WebDir})
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(r, "pdfchat"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info(module, "HTTP server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(module, "Shutting down HTTP server...", nil)
	return s.httpServer.Shutdown(ctx)
}
