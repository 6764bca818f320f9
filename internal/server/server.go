package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"corechat/internal/config"
	"corechat/internal/handler"
	"corechat/internal/middleware"
	"corechat/internal/transport/httpdto"
	"corechat/internal/websocket"
	"corechat/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ProductionEnv  = "production"
	DevelopmentEnv = "development"
	TestEnv        = "test"
)

type Handlers struct {
	Channel  *handler.ChannelHandler
	Message  *handler.MessageHandler
	Upload   *handler.UploadHandler
	Presence *handler.PresenceHandler
	WS       *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	switch cfg.Server.Environment {
	case ProductionEnv:
		gin.SetMode(gin.ReleaseMode)
	case TestEnv:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// SetupRoutes wires middleware and routes. identityMW guards every API
// route; the websocket endpoint resolves identity itself during the
// handshake.
func (s *Server) SetupRoutes(handlers *Handlers, identityMW gin.HandlerFunc, healthCheck func(ctx context.Context) error) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/healthz", func(c *gin.Context) {
		if err := healthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/ws", handlers.WS.Connect)

	api := s.engine.Group("", identityMW)

	channels := api.Group("/channels")
	{
		channels.POST("", handlers.Channel.Create)
		channels.GET("/team/:teamId", handlers.Channel.ListTeamChannels)
		channels.GET("/direct/:userId", handlers.Channel.GetOrCreateDirect)
		channels.GET("/:id", handlers.Channel.Get)
		channels.PUT("/:id", handlers.Channel.Update)
		channels.DELETE("/:id", handlers.Channel.Delete)
		channels.POST("/:id/archive", handlers.Channel.Archive)
		channels.POST("/:id/unarchive", handlers.Channel.Unarchive)
		channels.POST("/:id/members", handlers.Channel.AddMembers)
		channels.DELETE("/:id/members/:userId", handlers.Channel.RemoveMember)
		channels.POST("/:id/read", handlers.Channel.MarkRead)
	}

	messages := api.Group("/messages")
	{
		messages.POST("", handlers.Message.Create)
		messages.POST("/search", handlers.Message.Search)
		messages.POST("/mentions/read", handlers.Message.MarkMentionsRead)
		messages.GET("/channel/:channelId", handlers.Message.ListChannelMessages)
		messages.GET("/thread/:threadId", handlers.Message.ListThread)
		messages.GET("/:id", handlers.Message.Get)
		messages.PUT("/:id", handlers.Message.Update)
		messages.DELETE("/:id", handlers.Message.Delete)
		messages.POST("/:id/reactions", handlers.Message.ToggleReaction)
	}

	api.POST("/upload", handlers.Upload.Presign)
	api.GET("/users/:userId/presence", handlers.Presence.Get)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.Server.Port)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
