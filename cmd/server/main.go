package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"leapsdash/internal/analytics"
	"leapsdash/internal/api"
	"leapsdash/internal/config"
	"leapsdash/internal/database"
	"leapsdash/internal/kafka"
	"leapsdash/internal/marketdata"
	"leapsdash/internal/redis"
	"leapsdash/internal/scheduler"
)

func main() {
	// Optional .env for local runs
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	defer db.Close()
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Market data: provider + cache + simulator fallback
	var mdClient *marketdata.Client
	if cfg.Market.APIKey != "" {
		mdClient = marketdata.NewClient(cfg.Market.BaseURL, cfg.Market.APIKey)
	} else {
		log.Println("No market API key configured, running on simulated prices")
	}
	simulator := marketdata.NewSimulator(0, time.Now().UnixNano())
	market := marketdata.NewService(mdClient, redisClient, simulator,
		cfg.Market.Symbol, time.Duration(cfg.Market.CacheTTL)*time.Second)

	// Create Kafka producer
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.PositionsTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and start Kafka consumer for trade fills
	consumer := kafka.NewTradesConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.FillsTopic,
		cfg.Kafka.ConsumerGroup,
		db,
	)
	go func() {
		log.Printf("Starting Kafka trades consumer for topic: %s (group: %s)",
			cfg.Kafka.FillsTopic, cfg.Kafka.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka trades consumer error: %v", err)
		}
	}()

	// Morning update scheduler
	sched := scheduler.New(market, ctx)
	if err := sched.AddMorningUpdate(cfg.Analytics.MorningCronSpec); err != nil {
		log.Fatalf("Invalid morning cron spec %q: %v", cfg.Analytics.MorningCronSpec, err)
	}
	sched.Start()

	// Set up HTTP handler and routes
	handler := api.NewHandler(db, producer, market, cfg.Analytics.SellScanWindow,
		analytics.IndicatorOptions{
			RSIPeriod: cfg.Analytics.RSIPeriod,
			EMAFast:   cfg.Analytics.EMAFast,
			EMASlow:   cfg.Analytics.EMASlow,
		})
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context to stop Kafka consumer and scheduler jobs
	cancel()
	sched.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close Kafka consumer
	if err := consumer.Close(); err != nil {
		log.Printf("Error closing Kafka consumer: %v", err)
	}

	log.Println("Server stopped")
}

func runMigrations(databaseUrl string) error {
	// The "file://" prefix tells the migrate library to use the file driver
	m, err := migrate.New(
		"file://./db/migrations",
		databaseUrl)
	if err != nil {
		return err
	}

	// Apply all available migrations up to the latest version
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
