package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"meshforge.dev/server/ai3d"
	"meshforge.dev/server/config"
	"meshforge.dev/server/controller"
	"meshforge.dev/server/rawlog"
	"meshforge.dev/server/redis_repository"
	"meshforge.dev/server/repository"
	"meshforge.dev/server/tc3"
	"meshforge.dev/server/tracker"
)

func main() {
	log.Println("Starting Hunyuan 3D bridge...")

	cfg := config.Load()

	// Refuse to start with unsignable credentials; a request that can
	// never verify must not be sent at all.
	signer, err := tc3.New(cfg.SecretID, cfg.SecretKey)
	if err != nil {
		log.Fatalf("Invalid credentials: %v", err)
	}

	store, janitorCancel := buildStore(cfg)
	defer janitorCancel()

	var logger tracker.ResponseLogger
	if cfg.RawLogDir != "" {
		l, err := rawlog.New(cfg.RawLogDir)
		if err != nil {
			log.Fatalf("Failed to set up raw response logging: %v", err)
		}
		logger = l
		log.Printf("Raw responses logged to %s", cfg.RawLogDir)
	}

	client := ai3d.NewClient(signer, cfg.Region)
	jobs := tracker.New(client, store, tracker.Config{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.MaxPollAttempts,
		Workers:     cfg.PollWorkers,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	})

	c := controller.Controller{Tracker: jobs, Store: store}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/generate-3d", c.Generate3D)
	r.Get("/job-status/{jobID}", c.JobStatus)
	r.Delete("/jobs/{jobID}", c.CancelJob)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	go func() {
		log.Printf("Listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	jobs.Shutdown(shutdownCtx)
	log.Println("Bridge stopped")
}

// buildStore wires the configured JobStore and, for the in-memory variant,
// starts its eviction janitor.
func buildStore(cfg *config.Config) (repository.JobStore, context.CancelFunc) {
	if cfg.JobStore == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Using Redis job store")
		return redis_repository.NewStore(client, cfg.RedisPrefix, cfg.JobTTL), func() { client.Close() }
	}

	store := repository.NewMemoryStore(cfg.JobTTL)
	janitorCtx, cancel := context.WithCancel(context.Background())
	go store.StartJanitor(janitorCtx, cfg.JanitorInterval)
	return store, cancel
}
