/*
main.go - Server startup

PURPOSE:
  Wires the SQLite store, the report and capture services, and the HTTP
  router together, then runs the server with graceful shutdown.

CONFIGURATION:
  Environment variables (BILLING_ prefix) with flag overrides:

	BILLING_ADDR          listen address      (-addr, default :8080)
	BILLING_DB_PATH       sqlite file path    (-db, default billing.db)
	BILLING_CORS_ORIGINS  comma-separated CORS allow-list

SHUTDOWN:
  SIGINT/SIGTERM drains in-flight requests for up to 30 seconds before
  closing the store.
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/condokit/billing-engine/api"
	"github.com/condokit/billing-engine/store/sqlite"
)

type config struct {
	Addr        string   `envconfig:"ADDR" default:":8080"`
	DBPath      string   `envconfig:"DB_PATH" default:"billing.db"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

func main() {
	var cfg config
	if err := envconfig.Process("billing", &cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	addr := flag.String("addr", cfg.Addr, "Listen address")
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Billing engine listening on %s (db: %s)", *addr, *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
