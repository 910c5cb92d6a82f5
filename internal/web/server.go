// Package web serves the blog generation form and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/1broseidon/blogsmith/internal/logging"
	"github.com/1broseidon/blogsmith/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service is the part of client.Client the handlers use.
type Service interface {
	Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult
	Transcribe(ctx context.Context, clip *models.Media) models.TranscriptionResult
}

// Options configures a Server.
type Options struct {
	// Models are offered in the form; the first one is the default.
	Models         []string
	AllowedOrigins []string
	Logger         logging.Logger
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc     Service
	models  []string
	logger  logging.Logger
	handler http.Handler
}

// NewServer builds the router.
func NewServer(svc Service, opts Options) *Server {
	s := &Server{
		svc:    svc,
		models: opts.Models,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = logging.NewDefaultLogger()
	}
	if len(s.models) == 0 {
		s.models = models.DefaultModels
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/", s.index)
	router.POST("/generate", s.generatePage)
	router.POST("/transcribe", s.transcribePage)

	api := router.Group("/api/v1")
	{
		api.POST("/generate", s.apiGenerate)
		api.POST("/transcribe", s.apiTranscribe)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	s.handler = router
	if len(opts.AllowedOrigins) > 0 {
		s.handler = cors.New(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", headerRequestID},
			ExposedHeaders: []string{headerRequestID},
		}).Handler(router)
	}

	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
