package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifeline/config"
	"lifeline/controllers"
	"lifeline/database"
	"lifeline/middleware"
	"lifeline/models"
	"lifeline/repositories"
	"lifeline/routes"
	"lifeline/services"
	"lifeline/utils"
	"lifeline/websocket"
	"lifeline/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	// MongoDB is optional: without it facilities come from the built-in list and
	// contacts and reports are unavailable.
	var db *mongo.Database
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL, cfg.SeedFacilities)
		if err != nil {
			logrus.Warnf("MongoDB unavailable, running without persistence: %v", err)
			db = nil
		} else {
			defer database.Disconnect()
		}
	}

	redisClient := initRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	validator := utils.NewValidationService()
	catalog, err := services.NewDefaultCatalogService(validator)
	if err != nil {
		logrus.Fatal("Invalid emergency catalog: ", err)
	}

	// Notification providers
	clients := config.InitNotificationClients(context.Background(), cfg)
	sms := services.NewSMSService(clients.Twilio, cfg.TwilioPhoneNumber, cfg.SMSPerSecond)
	push := services.NewPushService(clients.FCM)
	email := services.NewEmailService(clients.SendGrid, cfg.EmailFrom, cfg.EmailFromName)
	channels := services.NotificationChannels{
		Hotline:  services.NewHotlineChannel(sms, cfg.EmergencyHotlineNumber),
		Facility: services.NewFacilityChannel(push),
		Contact:  services.NewContactChannel(sms, push, email),
	}

	// Persistence-backed collaborators, or their fallbacks
	var (
		facilities   services.FacilityLookup
		contacts     services.ContactDirectoryFactory
		archive      services.ReportArchiver
		contactStore controllers.ContactStore
		reportStore  controllers.ReportStore
	)
	if db != nil {
		contactRepo := repositories.NewContactRepository(db)
		reportRepo := repositories.NewReportRepository(db)

		facilities = repositories.NewFacilityRepository(db, cfg.FacilityRadiusKm)
		contacts = func(userID string) services.ContactDirectory { return contactRepo.ForUser(userID) }
		archive = reportRepo
		contactStore = contactRepo
		reportStore = reportRepo
	} else {
		facilities = services.NewStaticFacilityProvider(services.DemoFacilities(), cfg.FacilityRadiusKm)
		contacts = func(string) services.ContactDirectory { return services.StaticContactDirectory(nil) }
	}

	// WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	sessions := services.NewSessionService(catalog, facilities, channels, contacts, archive, hub, services.SessionConfig{
		LocationTimeout:     cfg.LocationTimeout,
		HotlineGrace:        cfg.HotlineLocationGrace,
		TrackingInterval:    cfg.LocationTrackingInterval,
		PositionMaxAge:      cfg.PositionMaxAge,
		FanoutTimeout:       cfg.NotifyFanoutTimeout,
		FacilityConcurrency: cfg.FacilityConcurrency,
		CountdownCadence:    cfg.CountdownCadence,
		DefaultLanguage:     models.Language(cfg.DefaultLanguage),
		DefaultAudioEnabled: cfg.DefaultAudioEnabled,
	})

	cleanup := workers.NewCleanupWorker(sessions, workers.CleanupWorkerConfig{
		SessionIdleTTL:      cfg.SessionIdleTTL,
		SessionReapInterval: cfg.SessionReapInterval,
	})
	if err := cleanup.Start(); err != nil {
		logrus.Fatal("Failed to start cleanup worker: ", err)
	}

	auth := middleware.NewAuthMiddleware(utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL))
	router := routes.SetupRoutes(routes.RouterConfig{
		Environment:      cfg.Environment,
		CORSOrigins:      cfg.CORSOrigins,
		RateLimitRequest: cfg.RateLimitRequest,
		RateLimitWindow:  time.Duration(cfg.RateLimitWindow) * time.Minute,
	}, &routes.Controllers{
		Wizard:    controllers.NewWizardController(sessions, validator),
		Category:  controllers.NewCategoryController(catalog),
		Contact:   controllers.NewContactController(contactStore, validator),
		Report:    controllers.NewReportController(reportStore),
		WebSocket: controllers.NewWebSocketController(hub, auth, sessions),
		Health:    controllers.NewHealthController(cfg.Version, db != nil, redisClient, hub, sessions),
	}, auth, redisClient)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("🚑 Lifeline server starting on port ", cfg.Port)
		logrus.Info("📱 WebSocket endpoint: /ws/:sessionId")
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	cleanup.Stop()
	sessions.Shutdown()
	hub.Shutdown()

	logrus.Info("✅ Server shutdown complete")
}

// initRedis returns nil when Redis cannot be reached; rate limiting then stays in memory
func initRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}

	client := config.InitRedis(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Warnf("Redis unavailable, using in-memory rate limiting: %v", err)
		client.Close()
		return nil
	}

	logrus.Info("✅ Connected to Redis")
	return client
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
