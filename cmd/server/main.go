package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"campus_bus/internal/config"
	"campus_bus/internal/logger"
	"campus_bus/internal/routes"
	"campus_bus/internal/tracking"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}

	logger.Setup(logger.Options{
		File:   settings.LogFile,
		Level:  settings.LogLevel,
		Stdout: settings.LogStdout,
	})

	if err := config.InitDB(settings); err != nil {
		logrus.Fatalf("Database error: %v", err)
	}
	db := config.GetDB()

	opts := []tracking.Option{
		tracking.WithHub(tracking.NewHub()),
		tracking.WithStopRadius(settings.StopRadiusMeters),
	}
	if settings.RedisAddr != "" {
		rdb, err := tracking.NewRedisClient(settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
		if err != nil {
			// the database alone still serves every read
			logrus.WithError(err).Warn("Redis unavailable, running without location mirror.")
		} else {
			defer rdb.Close()
			opts = append(opts, tracking.WithMirror(tracking.NewRedisMirror(rdb, settings.RedisTTL)))
		}
	}
	svc := tracking.NewService(db, opts...)

	r := routes.SetupRouter(settings, db, svc)
	server := &http.Server{
		Addr:              "0.0.0.0:" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server running at :%s", settings.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logrus.Info("Shutdown signal received.")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown error.")
		return
	}
	logrus.Info("Server shut down successfully.")
}
