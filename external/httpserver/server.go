package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Server serves the upload page and API. Uploads are transcribed inside the
// request, so only the header read is bounded.
type Server struct {
	addr   string
	router *gin.Engine
	server *http.Server
}

func NewServer(cfg *config.Config, h *Handlers, registry *prometheus.Registry) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(recovery())
	router.Use(requestID())
	router.Use(structuredLogging())
	router.MaxMultipartMemory = 32 << 20

	router.GET("/", h.Index)
	router.GET("/health", h.Health)
	router.POST("/upload", h.Upload)
	router.GET("/download/:filename", h.Download)
	router.GET("/jobs/:id", h.GetJob)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	return &Server{
		addr:   cfg.HTTPAddr,
		router: router,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen on %s: %w", s.addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}
