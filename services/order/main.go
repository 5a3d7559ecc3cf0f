package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/api"
	"github.com/storefront/platform/services/order/internal/auth"
	"github.com/storefront/platform/services/order/internal/config"
	"github.com/storefront/platform/services/order/internal/invoice"
	"github.com/storefront/platform/services/order/internal/kafka"
	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/repository"
	"github.com/storefront/platform/services/order/internal/service"
)

func main() {
	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "order-service: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.Info("Starting Order Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(cfg.MigrationsPath, cfg.DatabaseURL, logger); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	policy, err := lifecycle.PolicyByName(cfg.TransitionPolicy)
	if err != nil {
		logger.WithError(err).Fatal("Invalid ORDER_TRANSITION_POLICY")
	}

	orderRepo := repository.NewOrderRepository(dbPool, logger)

	kafkaProducer := kafka.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic, logger)
	defer kafkaProducer.Close()

	orderService := service.NewOrderService(orderRepo, kafkaProducer, policy, cfg.Currency, logger)

	fulfillment := kafka.NewFulfillmentConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaFulfillmentTopic,
		cfg.KafkaConsumerGroupID,
		orderService,
		logger,
	)
	defer fulfillment.Close()

	go func() {
		if err := fulfillment.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Fulfillment consumer stopped")
		}
	}()

	jwtAuth, err := auth.NewJWTAuth(ctx, cfg.Auth0Domain, cfg.Auth0Audience, cfg.AuthClaimNamespace)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialise JWT authentication")
	}

	orderHandler := api.NewOrderHandler(orderService, invoice.NewInvoiceGenerator(cfg.InvoiceSeller), logger)
	router := setupRouter(orderHandler, jwtAuth, &cfg, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Order Service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func setupRouter(orderHandler *api.OrderHandler, authz auth.Authorizer, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}))

	api.RegisterRoutes(router, orderHandler, authz, cfg.InternalAPIToken)
	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"status_code": c.Writer.Status(),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  time.Since(start).Milliseconds(),
		})
		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Warn("Request completed with server error")
		default:
			entry.Info("Request completed")
		}
	}
}

func runMigrations(source, databaseURL string, logger *logrus.Logger) error {
	// golang-migrate goes through lib/pq, which defaults to sslmode=require;
	// in-cluster DATABASE_URLs need ?sslmode=disable.
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No new migrations to run")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}
