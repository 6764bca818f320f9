package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"corechat/internal/config"
	"corechat/internal/events"
	"corechat/internal/handler"
	"corechat/internal/identity"
	"corechat/internal/middleware"
	appredis "corechat/internal/redis"
	"corechat/internal/repository"
	"corechat/internal/roster"
	"corechat/internal/server"
	"corechat/internal/services"
	"corechat/internal/storage"
	"corechat/internal/websocket"
	"corechat/pkg/database"
	"corechat/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	mode := logger.DevelopmentMode
	if cfg.Server.Environment == server.ProductionEnv {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.ApplyRawMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		log.Fatalf("Failed to build identity resolver: %v", err)
	}

	channelRepo := repository.NewChannelRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	presenceRepo := repository.NewPresenceRepository(pool)

	hub := websocket.NewHub(l)
	go hub.Run(ctx)

	// Single-instance default: events go straight to the local hub. With
	// redis configured, publish through the bus and bridge back in so
	// every instance sees every room's traffic.
	var publisher events.Publisher = websocket.NewHubPublisher(hub)
	var presenceCache services.PresenceCache
	if cfg.Redis.Addr != "" {
		redisClient := appredis.NewClient(cfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			l.Errorf("redis unreachable, falling back to in-process fan-out: %v", err)
		} else {
			bus := events.NewRedisBus(redisClient)
			publisher = bus
			bridge := websocket.NewRedisBridge(bus, hub)
			go func() {
				if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
					l.Errorf("redis bridge stopped: %v", err)
				}
			}()
			presenceCache = appredis.NewPresenceCache(redisClient, 0)
		}
	}

	var storageClient *storage.Client
	if cfg.S3.Bucket != "" {
		storageClient, err = storage.NewClient(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to build storage client: %v", err)
		}
	}

	rosterClient := roster.NewClient(cfg.Roster)

	channelService := services.NewChannelService(channelRepo, rosterClient, publisher, l)
	messageService := services.NewMessageService(messageRepo, channelRepo, publisher, l)
	presenceService := services.NewPresenceService(presenceRepo, presenceCache, channelRepo, publisher, l)
	uploadService := services.NewUploadService(storageClient, l)

	authorizer := websocket.NewRoomAuthorizer(channelRepo)
	wsHandler := websocket.NewHandler(resolver, hub, authorizer, presenceService, l)

	handlers := &server.Handlers{
		Channel:  handler.NewChannelHandler(channelService),
		Message:  handler.NewMessageHandler(messageService),
		Upload:   handler.NewUploadHandler(uploadService),
		Presence: handler.NewPresenceHandler(presenceService),
		WS:       wsHandler,
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, middleware.IdentityMiddleware(resolver), pool.Ping)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

func buildResolver(cfg *config.Config) (identity.Resolver, error) {
	switch cfg.Auth.Mode {
	case "header":
		return identity.NewHeaderResolver(), nil
	case "token":
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("token auth mode requires JWT_SECRET")
		}
		return identity.NewTokenResolver(cfg.Auth.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
