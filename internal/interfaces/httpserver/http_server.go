package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/interfaces/httpserver/handlers/messagehandler"
	"github.com/jarvishq/jarvis-server/internal/interfaces/httpserver/handlers/telegramhandler"
	middleware "github.com/jarvishq/jarvis-server/internal/interfaces/httpserver/middlewares"
)

type HTTPServer struct {
	engine         *gin.Engine
	messageHandler *messagehandler.MessageHandler
	webhookHandler *telegramhandler.WebhookHandler
	config         *config.Config
}

func NewHTTPServer(
	messageHandler *messagehandler.MessageHandler,
	webhookHandler *telegramhandler.WebhookHandler,
	cfg *config.Config,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:         gin.New(),
		messageHandler: messageHandler,
		webhookHandler: webhookHandler,
		config:         cfg,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.LoggingMiddleware(logger.WithComponent("http")))
	server.engine.Use(middleware.MetricsMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return server
}

func (s *HTTPServer) registerRoutes() {
	protected := s.engine.Group("/v1")
	protected.Use(middleware.ServiceKeyAuth(s.config.ServiceKey))

	protected.POST("/messages", s.messageHandler.HandleMessage)
	protected.POST("/telegram/webhook", s.webhookHandler.HandleUpdate)
}

func (s *HTTPServer) Run() error {
	s.registerRoutes()
	return s.engine.Run(fmt.Sprintf(":%d", s.config.HTTPPort))
}

// RunMetrics serves the Prometheus scrape endpoint on its own port,
// outside the service key guard.
func (s *HTTPServer) RunMetrics() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", s.config.MetricsPort), mux)
}
