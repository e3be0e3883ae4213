package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/collector"
	"StrategyLab/internal/config"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/report"
	"StrategyLab/internal/strategy"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Server exposes backtests and portfolio runs over HTTP.
type Server struct {
	cfg      *config.Config
	analyzer *analysis.Analyzer
	recorder recorder.Recorder
	limiter  *rate.Limiter
}

// New creates a Server. Request fields left out fall back to cfg.
func New(cfg *config.Config, an *analysis.Analyzer, rec recorder.Recorder) *Server {
	return &Server{
		cfg:      cfg,
		analyzer: an,
		recorder: rec,
		limiter:  rate.NewLimiter(10, 20),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.rateLimit())

	r.GET("/healthz", handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/backtest", s.handleBacktest)
	api.POST("/portfolio", s.handlePortfolio)
	api.GET("/runs", s.handleRuns)
	return r
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleBacktest(c *gin.Context) {
	var body backtestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.toRequest(s.cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.analyzer.RunTicker(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report.NewTickerView(res))
}

func (s *Server) handlePortfolio(c *gin.Context) {
	var body portfolioBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.toRequest(s.cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.analyzer.RunPortfolio(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report.NewPortfolioView(res))
}

func (s *Server) handleRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	runs, err := s.recorder.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if runs == nil {
		runs = []recorder.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// writeError maps caller mistakes and missing data to 400, everything else to 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, strategy.ErrInvalidParameter),
		errors.Is(err, strategy.ErrInsufficientData),
		errors.Is(err, collector.ErrDataUnavailable),
		errors.Is(err, analysis.ErrNoValidTickers):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected error: " + err.Error()})
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).Dur("latency", time.Since(start)).Msg("http request")
	}
}
