package mockapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"abisal/client/internal/config"
)

type Server struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

func NewServer(environment string, cfg config.MockAPIConfig, log zerolog.Logger) *Server {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		RequestID(),
		Logger(log),
		Recovery(log),
		CORS(cfg.AllowCORSOrigins),
	)

	NewHandlerSet(cfg, log).Register(engine.Group(""))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		engine: engine,
		server: srv,
		log:    log,
	}
}

// Engine exposes the router so tests can mount it on httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("mock api starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("mock api shutting down")
	return s.server.Shutdown(ctx)
}
