package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"community-bot-backend/internal/common/config"
	"community-bot-backend/internal/common/logger"
	"community-bot-backend/internal/common/middleware"
	"community-bot-backend/internal/features/archive"
	"community-bot-backend/internal/features/eventlog"
	eventlogHTTP "community-bot-backend/internal/features/eventlog/delivery/http"
	giveawayHTTP "community-bot-backend/internal/features/giveaway/delivery/http"
	giveawayRedis "community-bot-backend/internal/features/giveaway/repository/redis"
	giveawayService "community-bot-backend/internal/features/giveaway/service"
	invitesCache "community-bot-backend/internal/features/invites/cache"
	invitesHTTP "community-bot-backend/internal/features/invites/delivery/http"
	invitesRedis "community-bot-backend/internal/features/invites/repository/redis"
	invitesService "community-bot-backend/internal/features/invites/service"
	"community-bot-backend/internal/features/moderation"
	moderationHTTP "community-bot-backend/internal/features/moderation/delivery/http"
	moderationRedis "community-bot-backend/internal/features/moderation/repository/redis"
	moderationService "community-bot-backend/internal/features/moderation/service"
	"community-bot-backend/internal/platform/chat"
	"community-bot-backend/internal/platform/mongo"
	"community-bot-backend/internal/platform/redis"
	"community-bot-backend/internal/workers"
)

func main() {
	cfg := config.Load()

	logger.Init("community-bot-backend", cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store initialization failures are the only ones allowed to halt
	// startup; everything after this degrades instead of crashing.
	redisClient, err := redis.Open(ctx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Redis connection established")

	var archiveSvc *archive.Service
	var mongoClient *mongo.Client
	if cfg.Mongo.URI != "" {
		mongoClient, err = mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to archive database")
		}
		archiveSvc = archive.New(mongoClient.Database())
		logger.Info().Msg("Archive database connected")
	} else {
		logger.Info().Msg("MONGO_URI not set, archival disabled")
	}

	events, err := eventlog.Open(cfg.Log.Dir, redisClient.Client, logger.Component("eventlog"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open event log")
	}
	defer events.Close()

	chatClient := chat.NewRESTClient(cfg.Chat.APIBaseURL, cfg.Chat.BotToken, cfg.Chat.RequestsPerSecond)

	giveawayRepo := giveawayRedis.NewRedisGiveawayRepository(redisClient.Client)
	creditRepo := invitesRedis.NewRedisCreditRepository(redisClient.Client)
	warningRepo := moderationRedis.NewRedisWarningRepository(redisClient.Client)

	scheduler := giveawayService.New(giveawayRepo, chatClient, events, logger.Component("giveaway"))
	reconciler := invitesService.New(chatClient, invitesCache.New(), creditRepo, events, archiveSvc,
		cfg.Chat.WelcomeChannelID, logger.Component("invites"))
	moderator := moderationService.New(moderation.NewFilter(cfg.Moderation.BadWords), warningRepo, events,
		logger.Component("moderation"))

	// Restart recovery: rebuild completion timers from persisted deadlines
	// and give every known guild an invite baseline, before any events are
	// processed.
	if err := scheduler.ResumeAll(ctx); err != nil {
		logger.Error().Err(err).Msg("Giveaway resume pass failed")
	}
	reconciler.WarmUp(ctx, cfg.Chat.GuildIDs)

	streamWorker := workers.NewEventStreamWorker(redisClient, reconciler, moderator, archiveSvc,
		logger.Component("event_stream"))
	go streamWorker.Start(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(logger.Component("http")))
	router.Use(middleware.Logger(logger.Component("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", "X-Request-ID", "X-Staff-Token"}
	router.Use(cors.New(corsConfig))

	staffOnly := middleware.StaffOnly(logger.Component("auth"), cfg.Auth.StaffTokens)

	v1 := router.Group("/api/v1")
	giveawayHTTP.NewHandler(scheduler, logger.Component("giveaway_http")).RegisterRoutes(v1, staffOnly)
	invitesHTTP.NewHandler(reconciler, logger.Component("invites_http")).RegisterRoutes(v1)
	moderationHTTP.NewHandler(moderator, archiveSvc, logger.Component("moderation_http")).RegisterRoutes(v1)
	eventlogHTTP.NewHandler(events, logger.Component("eventlog_http")).RegisterRoutes(v1, staffOnly)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "community-bot-backend",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		checkCtx, checkCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer checkCancel()

		if err := redisClient.Ping(checkCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now().UTC()})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	cancel() // stops the stream worker

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	scheduler.Stop()

	if mongoClient != nil {
		if err := mongoClient.Close(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to close archive database")
		}
	}

	logger.Info().Msg("Server exited")
}
