package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obbygo/obbygo/internal/transport"
	"github.com/obbygo/obbygo/pkg/database"
	"github.com/obbygo/obbygo/pkg/logger"
	"github.com/obbygo/obbygo/pkg/metrics"
)

// Config holds all server configuration, read from the environment.
type Config struct {
	Port           string
	SQLiteURI      string
	GlobalPassword string
	SaveInterval   time.Duration
}

func main() {
	logger.Init()

	config := Config{
		Port:           getEnv("PORT", "6522"),
		SQLiteURI:      os.Getenv("SQLITE_URI"),
		GlobalPassword: os.Getenv("GLOBAL_PASSWORD"),
		SaveInterval:   time.Duration(getEnvInt("SAVE_INTERVAL_SECONDS", 60)) * time.Second,
	}

	logger.Info("starting obbygo server")
	logger.Info("port: %s", config.Port)

	hub, err := transport.NewHub(config.GlobalPassword)
	if err != nil {
		log.Fatalf("generate server identity: %v", err)
	}
	hub.Metrics = metrics.New()

	var db *database.Database
	if config.SQLiteURI != "" {
		logger.Info("database: %s", config.SQLiteURI)
		db, err = database.New(config.SQLiteURI)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		saved, err := db.LoadSession()
		if err != nil {
			log.Fatalf("load session: %v", err)
		}
		hub.LoadSnapshot(saved)
		logger.Info("loaded %d user(s), %d document(s) from storage", len(saved.Users), len(saved.Documents))
	} else {
		logger.Info("database: disabled (in-memory only)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if db != nil {
		go runSaveLoop(ctx, hub, db, config.SaveInterval)
	}

	mux := http.NewServeMux()
	mux.Handle("/", hub)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + config.Port, Handler: mux}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
		if db != nil {
			if err := db.SaveSession(hub.Snapshot()); err != nil {
				logger.Error("final save: %v", err)
			}
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	addr := fmt.Sprintf(":%s", config.Port)
	logger.Info("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// runSaveLoop periodically checkpoints the hub's whole state to storage,
// so a crash loses at most one interval's worth of edits.
func runSaveLoop(ctx context.Context, hub *transport.Hub, db *database.Database, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.SaveSession(hub.Snapshot()); err != nil {
				logger.Error("periodic save: %v", err)
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
