// internal/diag/server.go
package diag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tamzrod/meterbridge/internal/status"
)

// Source supplies the diagnostic state.
type Source interface {
	Snapshot() status.Snapshot
	Healthy() bool
}

// Server is the read-only diagnostics HTTP surface.
type Server struct {
	router *gin.Engine
	src    Source
	logger *zap.Logger
	server *http.Server
}

func NewServer(listen string, src Source, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router: gin.New(),
		src:    src,
		logger: logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("diagnostics listening", zap.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down diagnostics")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggerMiddleware(s.logger))

	s.router.GET("/health", s.health)
	s.router.GET("/status", s.status)
}

// GET /health
func (s *Server) health(c *gin.Context) {
	snap := s.src.Snapshot()
	code := http.StatusOK
	state := "ok"
	if !s.src.Healthy() {
		code = http.StatusServiceUnavailable
		state = "unavailable"
	}
	c.JSON(code, gin.H{
		"status":    state,
		"health":    snap.HealthName,
		"link":      snap.Link,
		"bus":       snap.BusConnected,
		"timestamp": time.Now().Unix(),
	})
}

// GET /status
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.src.Snapshot())
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("diagnostics request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
