// Package api exposes stored series, ledgers, sweeps and on-demand runs over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"index-signal-lab/internal/observability"
	"index-signal-lab/internal/pipeline"
	"index-signal-lab/internal/storage"
)

// ServiceVersion is reported by /health.
const ServiceVersion = "1.0.0"

// Server holds the HTTP handlers' dependencies.
type Server struct {
	indexStore  storage.IndexSeriesStore
	ledgerStore storage.LedgerStore
	sweepStore  storage.SweepResultStore // optional
	runner      *pipeline.Runner
	metrics     *observability.Metrics
	logger      *zap.Logger
	validate    *validator.Validate
}

// Options for creating Server.
type Options struct {
	IndexStore  storage.IndexSeriesStore
	LedgerStore storage.LedgerStore
	SweepStore  storage.SweepResultStore
	Runner      *pipeline.Runner
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		indexStore:  opts.IndexStore,
		ledgerStore: opts.LedgerStore,
		sweepStore:  opts.SweepStore,
		runner:      opts.Runner,
		metrics:     opts.Metrics,
		logger:      logger,
		validate:    validator.New(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/v1")
	{
		v1.GET("/symbols", s.handleSymbols)
		v1.GET("/series/:symbol", s.handleSeries)
		v1.GET("/series/:symbol/ledger", s.handleLedger)
		v1.GET("/series/:symbol/sweep", s.handleSweep)
		v1.POST("/runs", s.handleRun)
	}
	return r
}

// NewHTTPServer wraps the router in an http.Server with conservative timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		)
	}
}
