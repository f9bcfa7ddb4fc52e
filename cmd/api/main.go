// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/analytics"
	"github.com/your-org/cinema-backend/internal/domain/cart"
	"github.com/your-org/cinema-backend/internal/domain/favorite"
	"github.com/your-org/cinema-backend/internal/domain/interaction"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/domain/payment"
	"github.com/your-org/cinema-backend/internal/domain/user"
	"github.com/your-org/cinema-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/cinema-backend/internal/infrastructure/database/redis"
	"github.com/your-org/cinema-backend/internal/infrastructure/queue"
	"github.com/your-org/cinema-backend/internal/interfaces/http"
	"github.com/your-org/cinema-backend/internal/interfaces/http/routes"
	"github.com/your-org/cinema-backend/internal/pkg/email"
	"github.com/your-org/cinema-backend/internal/pkg/logger"
	"github.com/your-org/cinema-backend/internal/pkg/pdf"
	"github.com/your-org/cinema-backend/internal/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	appLogger := logger.New(cfg)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB())

	if cfg.IsDevelopment() && cfg.Database.ResetOnStart {
		if err := migration.DropAllTables(); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
	}

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.Printf("Warning: Data seeding failed: %v", err)
		}
		if err := migration.GetTableInfo(); err != nil {
			log.Printf("Warning: Could not read table info: %v", err)
		}
	}

	// Email delivery, optionally through RabbitMQ
	mailer := email.NewEmailService(cfg, appLogger)
	if cfg.External.Email.Transport == "amqp" {
		publisher, err := queue.NewEmailPublisher(cfg.External.Queue.URL, cfg.External.Queue.EmailQueue, appLogger)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		mailer.SetDispatcher(publisher)

		consumer := queue.NewEmailConsumer(cfg.External.Queue.URL, cfg.External.Queue.EmailQueue, mailer, appLogger)
		go consumer.Run(ctx)
		log.Printf("📨 Email jobs go through queue %s", cfg.External.Queue.EmailQueue)
	}

	// Object storage for avatars
	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise storage: %v", err)
	}
	uploadsRoot := ""
	if local, ok := store.(*storage.LocalStorage); ok {
		uploadsRoot = local.Root()
	}

	// Expired token cleanup
	go user.NewTokenCleaner(db.GetDB(), appLogger, cfg.Tokens.CleanupInterval).Run(ctx)

	// Domain services
	gormDB := db.GetDB()
	orderService := order.NewService(gormDB, cfg, appLogger)
	services := &routes.Services{
		Accounts:     user.NewService(gormDB, cfg, appLogger, mailer),
		UserAdmin:    user.NewAdminService(gormDB, cfg),
		Profiles:     user.NewProfileService(gormDB, cfg, appLogger, store),
		Movies:       movie.NewService(gormDB, cfg),
		Metadata:     movie.NewMetadataService(gormDB, cfg),
		Interactions: interaction.NewService(gormDB, cfg, appLogger),
		Favorites:    favorite.NewService(gormDB, cfg),
		Cart:         cart.NewService(gormDB, cfg),
		Orders:       orderService,
		Invoices:     orderService,
		Receipts:     pdf.NewService(cfg),
		Payments: payment.NewService(gormDB, cfg, appLogger, payment.NewStripeGateway(cfg),
			redisClient, mailer, orderService),
		Analytics: analytics.NewService(gormDB, cfg),
	}

	log.Println("✅ All systems operational!")

	server := http.NewServer(cfg, http.Options{
		Logger:      appLogger,
		Database:    db,
		Redis:       redisClient,
		Services:    services,
		UploadsRoot: uploadsRoot,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")
	stop()

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	log.Println("✅ Server shutdown completed")
}
