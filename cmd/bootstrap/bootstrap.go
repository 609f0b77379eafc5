package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nursera-booking-server/config"
	deliveryHttp "nursera-booking-server/internal/delivery/http"
	"nursera-booking-server/internal/delivery/http/handler"
	"nursera-booking-server/internal/delivery/http/middleware"
	"nursera-booking-server/internal/delivery/ws"
	"nursera-booking-server/internal/infrastructure/cache"
	"nursera-booking-server/internal/infrastructure/database"
	"nursera-booking-server/internal/repository"
	"nursera-booking-server/internal/service"
	"nursera-booking-server/internal/usecase"
	"nursera-booking-server/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Sweeper     *service.BookingSweeper
	Bridge      *ws.RedisBridge
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initialize(); err != nil {
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// initialize wires repositories, services, usecases, handlers and the server
func (app *App) initialize() error {
	cfg := app.Config
	db := app.DB
	redisClient := app.RedisClient

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository()
	medicRepo := repository.NewMedicRepository()
	patientRepo := repository.NewPatientRepository()

	// Initialize services
	ledger := service.NewAvailabilityLedger(db, redisClient, log)
	notifier := service.NewRedisNotifier(redisClient, log)
	smsSender := service.NewTwilioSMSSender(cfg.SMS, log)

	// Seed the availability ledger from the medics table
	syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ledger.SyncAll(syncCtx); err != nil {
		return fmt.Errorf("failed to sync availability ledger: %w", err)
	}

	// Initialize usecases
	bookingUsecase := usecase.NewBookingUsecase(db, log, cfg.Booking, bookingRepo, medicRepo, patientRepo, ledger, notifier, smsSender)
	medicUsecase := usecase.NewMedicUsecase(db, log, medicRepo, bookingRepo, ledger)

	// Initialize real-time fan-out
	hub := ws.NewHub(log)
	app.Bridge = ws.NewRedisBridge(redisClient, hub, log)

	// Initialize timeout sweeper
	if cfg.Booking.TTL > 0 {
		app.Sweeper = service.NewBookingSweeper(bookingUsecase, cfg.Booking.SweepInterval, log)
	}

	// Initialize handlers
	bookingHandler := handler.NewBookingHandler(bookingUsecase, customValidator)
	medicHandler := handler.NewMedicHandler(medicUsecase, customValidator)
	wsHandler := handler.NewWSHandler(hub, log)

	// Initialize middleware
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(bookingHandler, medicHandler, wsHandler, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:    serverAddr,
		Handler: httpRouter,
	}

	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	app.Bridge.Start()
	if app.Sweeper != nil {
		app.Sweeper.Start()
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop background workers
	if app.Sweeper != nil {
		app.Sweeper.Stop()
	}
	app.Bridge.Stop()

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
