// Package server exposes the oracle and risk manager over REST. The acting
// identity comes from the X-Actor-ID header; role checks happen in the
// domain layer, not here.
package server

import (
	"context"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/defivault/riskcore/internal/config"
	"github.com/defivault/riskcore/internal/metrics"
	"github.com/defivault/riskcore/internal/oracle"
	"github.com/defivault/riskcore/internal/risk"
)

// Server is the HTTP front of the service.
type Server struct {
	cfg    config.HTTPServerConfig
	oracle *oracle.Oracle
	risk   *risk.Manager
	logger *zap.Logger

	engine *gin.Engine
	http   *http.Server
}

// New builds the router and binds all routes.
func New(cfg config.HTTPServerConfig, o *oracle.Oracle, m *risk.Manager, promMetrics *metrics.Metrics, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		oracle: o,
		risk:   m,
		logger: logger,
	}

	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(traceMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if promMetrics != nil {
		engine.GET("/metrics", gin.WrapH(promMetrics.Handler()))
	}

	v1 := engine.Group("/api/v1")
	if cfg.RateLimitRPS > 0 {
		v1.Use(newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).middleware())
	}

	orc := v1.Group("/oracle")
	{
		orc.POST("/tokens", s.addToken)
		orc.GET("/tokens", s.listTokens)
		orc.GET("/tokens/:token", s.getToken)
		orc.DELETE("/tokens/:token", s.removeToken)
		orc.POST("/writers", s.authorizeWriter)
		orc.DELETE("/writers/:target", s.deauthorizeWriter)
		orc.PUT("/prices/:token", s.updatePrice)
		orc.POST("/prices/:token/refresh", s.refreshPrice)
		orc.GET("/prices/:token", s.getPrice)
		orc.GET("/prices/:token/value", s.getTokenValue)
	}

	rsk := v1.Group("/risk")
	{
		rsk.PUT("/assets/:token", s.updateAssetRisk)
		rsk.GET("/assets/:token", s.getAssetRisk)
		rsk.PUT("/profiles", s.setRiskProfile)
		rsk.GET("/profiles/:user", s.getRiskProfile)
		rsk.POST("/positions/assess", s.assessPosition)
		rsk.POST("/positions/:user/:token/mark", s.markPosition)
		rsk.GET("/positions/:user/:token", s.getPosition)
		rsk.GET("/thresholds/:user/:token", s.checkThresholds)
		rsk.POST("/emergency-stop", s.emergencyStop)
		rsk.POST("/global/update", s.updateGlobalRisk)
		rsk.GET("/global", s.getGlobalRisk)
		rsk.PUT("/global/interval", s.setUpdateInterval)
		rsk.POST("/assessors", s.authorizeAssessor)
		rsk.DELETE("/assessors/:target", s.deauthorizeAssessor)
	}

	s.engine = engine
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
