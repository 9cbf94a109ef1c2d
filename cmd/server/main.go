package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/devakowakou/backend-rdv/internal/config"     // Internal config loader
	"github.com/devakowakou/backend-rdv/internal/database"   // MySQL pool constructor
	"github.com/devakowakou/backend-rdv/internal/handler"    // HTTP handlers
	"github.com/devakowakou/backend-rdv/internal/middleware" // rate limiting middleware
	"github.com/devakowakou/backend-rdv/internal/queue"      // notification publisher and consumer
	"github.com/devakowakou/backend-rdv/internal/repository" // credential store
	"github.com/devakowakou/backend-rdv/internal/router"     // Internal router setup
	"github.com/devakowakou/backend-rdv/internal/service"    // account service
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close() // pool owned by process lifetime, closed on shutdown

	// Redis is optional: without it the auth endpoints simply run unthrottled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	// Wire the store and collaborators explicitly; no package-level state.
	accounts := repository.NewAccountRepo(db)
	notifier := queue.NewPublisher()
	svc := service.NewAccountService(cfg, accounts, notifier)

	// Drain the notification queues in the background for the life of the
	// process.  The consumer reconnects on broker failures by itself.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(svc), cfg.JWTSecret, limiter)
	router.RegisterUsers(e, handler.NewUserHandler(svc), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
