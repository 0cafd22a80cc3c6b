package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SamadritaSarkar339/monstac/internal/config"
	"github.com/SamadritaSarkar339/monstac/internal/handler"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	"github.com/SamadritaSarkar339/monstac/internal/presence"
	"github.com/SamadritaSarkar339/monstac/internal/service"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	"github.com/SamadritaSarkar339/monstac/pkg/database"
	"github.com/SamadritaSarkar339/monstac/pkg/jwt"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
	"github.com/SamadritaSarkar339/monstac/pkg/middleware"
	"github.com/SamadritaSarkar339/monstac/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "realtime-service"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting realtime-service")

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	st := store.NewGormStore(db)
	defer st.Close()

	if err := st.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	wsHub := hub.NewHub()

	// Initialize the event bus feed; the service degrades gracefully
	// without it
	feed := service.NewFeed(nil)
	ps, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize pubsub, feed events disabled")
	} else {
		defer ps.Close()
		feed = service.NewFeed(ps)
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("connected to event bus")

		// Mirror events relayed by peer instances into the local hub
		consumer := service.NewFeedConsumer(ps, wsHub, feed.Origin())
		if err := consumer.Start(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to start feed consumer")
		} else {
			defer consumer.Stop()
		}
	}

	// Initialize registries
	reg := presence.NewRegistry(wsHub, feed)

	// Initialize services
	chatSvc := service.NewChatService(st, wsHub, feed)
	dmSvc := service.NewDMService(st, wsHub, feed)
	callSvc := service.NewCallService(wsHub, feed)

	// Auth
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	auth := middleware.NewAuthMiddleware(tokens)

	// Handlers
	wsHandler := handler.NewWSHandler(wsHub, cfg.WebSocket, reg, chatSvc, dmSvc, callSvc, tokens)
	httpHandler := handler.NewHTTPHandler(reg, chatSvc, dmSvc, auth)

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(pkglog.GinMiddleware(*logger), gin.Recovery())

	httpHandler.RegisterRoutes(router)
	router.GET("/ws", wsHandler.HandleWebSocket)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("realtime-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down realtime-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("realtime-service stopped")
}
