// Package api exposes the administrative HTTP surface of the exchange.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"team-stock-exchange/internal/activity"
	"team-stock-exchange/internal/config"
	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/engine"
	"team-stock-exchange/internal/observability"
	"team-stock-exchange/internal/storage"
)

// Market is the part of market.Store served over HTTP.
type Market interface {
	GetInfo(ctx context.Context, symbol string) (*domain.Instrument, error)
	GetAllInfo(ctx context.Context) []*domain.Instrument
	GetPriceHistory(ctx context.Context, symbol string, limit int) ([]domain.PriceSample, error)
	SetPrice(ctx context.Context, symbol string, price int64) (*domain.Instrument, error)
	SetDisplayName(ctx context.Context, symbol, name string) (*domain.Instrument, error)
	ResetPrices(ctx context.Context) error
}

// Engine is the part of engine.Engine served over HTTP.
type Engine interface {
	Tick(ctx context.Context) engine.TickResult
	Stats() engine.Stats
}

// Server holds the HTTP handlers.
type Server struct {
	market  Market
	tracker *activity.Tracker
	catalog *config.Catalog
	engine  Engine
	ws      http.Handler
	logger  *zap.Logger
	started time.Time
}

// Options contains configuration for creating a Server.
type Options struct {
	Market  Market            // required
	Tracker *activity.Tracker // required
	Catalog *config.Catalog   // required
	Engine  Engine            // optional; engine routes return 503 without it
	WS      http.Handler      // optional websocket endpoint mounted at /ws
	Logger  *zap.Logger
}

// NewServer creates the HTTP handlers.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		market:  opts.Market,
		tracker: opts.Tracker,
		catalog: opts.Catalog,
		engine:  opts.Engine,
		ws:      opts.WS,
		logger:  logger.Named("api"),
		started: time.Now(),
	}
}

// Router builds the gin router.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/status", s.handleStatus)
	if s.ws != nil {
		r.GET("/ws", gin.WrapH(s.ws))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/instruments", s.listInstruments)
		v1.GET("/instruments/:symbol", s.getInstrument)
		v1.GET("/instruments/:symbol/history", s.getHistory)
		v1.PUT("/instruments/:symbol/price", s.setPrice)
		v1.PUT("/instruments/:symbol/name", s.setName)
		v1.POST("/market/reset", s.resetMarket)

		v1.GET("/activity", s.getActivity)
		v1.POST("/activity/reset", s.resetActivity)
		v1.POST("/activity/:key", s.recordActivity)

		v1.POST("/engine/tick", s.tick)
	}

	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string        `json:"status"`
	Uptime      string        `json:"uptime"`
	Instruments int           `json:"instruments"`
	Engine      *engine.Stats `json:"engine,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Instruments: len(s.catalog.Symbols()),
	}
	if s.engine != nil {
		stats := s.engine.Stats()
		resp.Engine = &stats
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps store errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
