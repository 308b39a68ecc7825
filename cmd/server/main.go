/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Load YAML configuration, or defaults when no file is given
  3. Build the logger
  4. Initialize SQLite store
  5. Create processor, API handler and router
  6. Start the month-close scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: $ATTENDANCE_CONFIG)
  -port    HTTP server port, overrides server.listen_addr
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

ENVIRONMENT:
  ATTENDANCE_CONFIG  Path of the YAML configuration file

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -config=./config.yaml
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("ATTENDANCE_CONFIG"), "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logrus.Fatalf("load configuration: %v", err)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Server.ListenAddr = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("build logger: %v", err)
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	processor := attendance.NewProcessor(cfg.Policy.Options(), cfg.Policy.Workers, logger)
	handler := api.NewHandler(store, processor, logger)
	router := api.NewRouter(handler)

	scheduler := api.NewMonthCloseScheduler(handler, cfg.Schedule.MonthCloseInterval)
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Server.ListenAddr,
			"database": cfg.Database.Path,
			"workers":  cfg.Policy.Workers,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}

	logger.Info("server stopped")
}
