package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"bookchain-backend/pkg/container"
)

// startServices performs health checks and starts the probe endpoint
func startServices(c *container.Container) error {
	log.Println("============================================")
	log.Println("Bookchain Worker Starting...")
	log.Println("============================================")

	checks := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"Postgres", c.DB.HealthCheck},
		{"Redis", c.Cache.Ping},
	}

	for _, check := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := check.fn(ctx)
		cancel()
		if err != nil {
			log.Printf("[Startup] %s: %v\n", check.name, err)
			return fmt.Errorf("%s check failed: %w", check.name, err)
		}
		log.Printf("[Startup] %s: OK\n", check.name)
	}

	go startHealthCheckServer()

	return nil
}

// startHealthCheckServer serves liveness and readiness probes
func startHealthCheckServer() {
	http.HandleFunc("/health", healthCheckHandler)
	http.HandleFunc("/ready", readyCheckHandler)

	log.Println("[Health] Starting health check server on :9999")
	if err := http.ListenAndServe(":9999", nil); err != nil {
		log.Printf("[Health] Failed to start: %v\n", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"UP","service":"bookchain-worker"}`))
}

func readyCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"READY"}`))
}
