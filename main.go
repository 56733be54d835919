package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/auth"
	auth_api "ms-booking/internal/auth/api"
	"ms-booking/internal/booking"
	booking_api "ms-booking/internal/booking/api"
	bookingdb "ms-booking/internal/booking/db"
	rediswrap "ms-booking/internal/booking/redis"
	"ms-booking/internal/catalog"
	catalog_api "ms-booking/internal/catalog/api"
	catalogdb "ms-booking/internal/catalog/db"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/tickets/qr"
)

func buildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := buildDSN(cfg.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	migrateOpts := migrations.DefaultOptions()
	migrateOpts.MigrationsDir = getEnvDefault("MIGRATIONS_DIR", migrateOpts.MigrationsDir)
	migrateOpts.SeedData = os.Getenv("SEED_DEMO_DATA") == "true"
	if migrateOpts.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrateOpts)
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		logger.Info("DATABASE", "Migrations applied")
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Kafka.Brokers))

		requiredTopics := []string{
			cfg.Kafka.Topics.BookingRecorded,
			cfg.Kafka.Topics.PaymentToggled,
			cfg.Kafka.Topics.BookingsNormalized,
			cfg.Kafka.Topics.MovieDeleted,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, booking events will not be streamed")
	}

	bookingDB := &bookingdb.DB{Bun: bunDB}
	catalogDB := &catalogdb.DB{Bun: bunDB}
	redisStore := rediswrap.NewRedis(redisClient)

	var bookingEvents booking.KafkaPublisher
	var catalogEvents catalog.KafkaPublisher
	if producer != nil {
		bookingEvents = producer
		catalogEvents = producer
	}

	bookingService := booking.NewBookingService(bookingDB, redisStore, redisStore, bookingEvents, cfg.Cinema.SeatsTotal)
	catalogService := catalog.NewCatalogService(catalogDB, bookingDB, bookingService, redisStore, redisStore,
		catalogEvents, cfg.Cinema.SeatsTotal, cfg.Cinema.DefaultTimings)
	authService := auth.NewAuthService(bookingDB, cfg.Auth)
	ticketGen := qr.NewTicketGenerator(cfg.Auth.QRTicketSecret)

	// Converge the store on boot: merge any fragmented rows left behind by a
	// crash and rebuild the ledger before serving traffic.
	logger.Info("APP", "Running startup normalization and reconciliation")
	if err := bookingService.FixData(); err != nil {
		logger.Error("RECONCILE", fmt.Sprintf("Startup reconcile failed: %v", err))
	}

	bookingHandler := booking_api.NewHandler(bookingService, catalogService, ticketGen, logger)
	catalogHandler := catalog_api.NewHandler(catalogService, logger)
	authHandler := auth_api.NewHandler(authService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/api/movies", catalogHandler.ListMovies)
	r.Get("/api/movies/{movieIdx}", catalogHandler.GetMovie)
	logger.Info("ROUTER", "Public auth and catalog endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api/bookings", func(r chi.Router) {
			r.Post("/", bookingHandler.CreateBooking)
			r.Get("/", bookingHandler.MyBookings)
			r.Get("/ticket", bookingHandler.GetTicket)
		})
		logger.Info("ROUTER", "Booking routes registered under /api/bookings")

		r.Route("/api/watchlist", func(r chi.Router) {
			r.Get("/", bookingHandler.Watchlist)
			r.Post("/", bookingHandler.ToggleWatchlist)
		})
		logger.Info("ROUTER", "Watchlist routes registered under /api/watchlist")

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/bookings", bookingHandler.AllBookings)
			r.Post("/bookings/{email}/{entryIdx}/toggle", bookingHandler.TogglePaid)
			r.Post("/fix-data", bookingHandler.FixData)
			r.Get("/stats", bookingHandler.Stats)

			r.Post("/movies", catalogHandler.AddMovie)
			r.Put("/movies/{movieIdx}", catalogHandler.EditMovie)
			r.Delete("/movies/{movieIdx}", catalogHandler.DeleteMovie)
		})
		logger.Info("ROUTER", "Admin routes registered under /api/admin")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Booking Service shutdown complete")
	}
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
