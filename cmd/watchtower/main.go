package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/watchtower-ops/watchtower/internal/config"
	"github.com/watchtower-ops/watchtower/internal/database"
	"github.com/watchtower-ops/watchtower/internal/escalation"
	"github.com/watchtower-ops/watchtower/internal/handlers"
	"github.com/watchtower-ops/watchtower/internal/jobs"
	"github.com/watchtower-ops/watchtower/internal/middleware"
	"github.com/watchtower-ops/watchtower/internal/notify"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Watchtower escalation engine...")

	// Initialize JWT authentication middleware
	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/auth/login",
		},
	})
	log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	db := database.GetDB()

	// Seed escalation rules from file when configured
	if cfg.SLARulesFile != "" {
		applied, err := escalation.SeedRulesFromFile(db, cfg.SLARulesFile)
		if err != nil {
			log.Fatalf("Failed to seed escalation rules from %s: %v", cfg.SLARulesFile, err)
		}
		log.Printf("Escalation rules seeded: %d rules applied from %s", applied, cfg.SLARulesFile)
	}

	// Notification channels in tier order. Unconfigured gateways stay in the
	// cascade and record failed attempts, so the fallback chain is visible in
	// the audit trail.
	gateway := notify.NewGatewayClient(cfg.ChannelTimeout)
	channels := []notify.Channel{
		notify.NewPushChannel(gateway, cfg.PushGatewayURL),
		notify.NewRecordChannel(db),
		notify.NewEmailChannel(gateway, cfg.EmailGatewayURL),
		notify.NewSMSChannel(gateway, cfg.SMSGatewayURL),
		notify.NewAudioChannel(gateway, cfg.AudioGatewayURL),
		notify.NewVisualChannel(gateway, cfg.VisualGatewayURL),
		notify.NewBroadcastChannel(gateway, cfg.BroadcastGatewayURL),
	}
	dispatcher := escalation.NewDispatcher(channels)
	log.Printf("Notification cascade initialized with %d tiers", len(channels))

	// Emergency failover path
	contactCaller := notify.NewContactCaller(gateway, cfg.ContactGatewayURL)
	protocolActivator := notify.NewProtocolActivator(gateway, cfg.ProtocolGatewayURL)

	var ops escalation.OpsNotifier
	if slackOps := escalation.NewSlackOpsNotifier(cfg.SlackOpsWebhookURL); slackOps != nil {
		ops = slackOps
		log.Printf("Slack ops notifications enabled")
	}
	failover := escalation.NewFailoverController(db, contactCaller, protocolActivator, ops)

	// Live escalation feed for ops dashboards
	eventFeed := handlers.NewEventFeedHandler()

	// Reporter, directory, SLA resolver, engine
	reporter := escalation.NewReporter(db, eventFeed)
	engine := escalation.NewEngine(db,
		escalation.NewSLAResolver(db),
		escalation.NewDirectory(db),
		dispatcher,
		failover,
		reporter,
	)
	engine.DisplayTargets = cfg.DisplayTargets

	// Initialize handlers
	httpHandler := handlers.NewHTTPHandler()
	escalationHandler := handlers.NewEscalationHandler(db, engine, reporter)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	escalationHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)
	eventFeed.SetupRoutes(mux)

	// Wrap all routes with CORS middleware first, then JWT authentication
	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Optional built-in poller. Deployments driven by an external cron hit
	// POST /escalation-check instead and leave this disabled.
	stopMonitor := make(chan struct{})
	if cfg.PollInterval > 0 {
		monitor := jobs.NewEscalationMonitor(engine)
		go monitor.Start(cfg.PollInterval, stopMonitor)
		log.Printf("Built-in escalation poller enabled (every %s)", cfg.PollInterval)
	} else {
		log.Printf("Built-in escalation poller disabled; expecting external POST /escalation-check")
	}

	log.Printf("Escalation check endpoint: http://localhost:%d/escalation-check", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("Live feed endpoint: ws://localhost:%d/ws/escalations", cfg.HTTPPort)

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stopMonitor)

	log.Println("Shutting down HTTP server...")
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
