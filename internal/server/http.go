package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	chatservice "github.com/leapstack-ai/sop-copilot-backend/internal/chat/service"
	"github.com/leapstack-ai/sop-copilot-backend/internal/conf"
	docservice "github.com/leapstack-ai/sop-copilot-backend/internal/document/service"
	"github.com/leapstack-ai/sop-copilot-backend/internal/pkg/logger"
	sopservice "github.com/leapstack-ai/sop-copilot-backend/internal/sop/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	chatService *chatservice.ChatService,
	sopService *sopservice.SOPService,
	documentService *docservice.DocumentService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes
	api := router.Group("/api/v1")
	chatService.RegisterRoutes(api)
	sopService.RegisterRoutes(api)
	documentService.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
