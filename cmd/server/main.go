// cmd/server/main.go
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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/database"
	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/router"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}
	logrus.WithField("locales", i18n.Languages()).Debug("Loaded message catalogs")

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
	}
	if cfg.Catalog.SeedFile != "" {
		if _, err := database.SeedCatalog(db, cfg.Catalog.SeedFile); err != nil {
			logrus.WithError(err).Fatal("Failed to seed card catalog")
		}
	}

	var locker services.Locker
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to redis")
		}
		locker = services.NewRedisLocker(rdb, cfg.Redis.LockTTL)
		logrus.WithField("addr", cfg.Redis.Addr()).Info("Recompute lock backed by redis")
	}

	svc, err := router.NewServices(store.NewPGStore(db), cfg, locker)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}
	defer svc.Notification.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go svc.Dispatcher.Run(workerCtx)

	r := router.Initialize(svc, cfg, database.NewPinger(db))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	if err := svc.Dispatcher.Stop(ctx); err != nil {
		logrus.WithError(err).Warn("Inventory event dispatcher did not stop in time")
	}

	logrus.Info("Server exited")
}
