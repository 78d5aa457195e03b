package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridgeline-intel/prospector/internal/adapter/handler"
	"github.com/ridgeline-intel/prospector/internal/adapter/notifier"
	"github.com/ridgeline-intel/prospector/internal/adapter/probe"
	"github.com/ridgeline-intel/prospector/internal/adapter/repository"
	"github.com/ridgeline-intel/prospector/internal/config"
	"github.com/ridgeline-intel/prospector/internal/core/ports"
	"github.com/ridgeline-intel/prospector/internal/core/scan"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (this is fine if the environment is already set)")
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	// Scoring configuration
	weights, thresholds, err := config.LoadScoring(cfg.ScoringFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	profile, err := config.LoadProfile(cfg.ProfileFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Metrics
	probe.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Probes and orchestrator
	client := probe.NewClient(nil, probe.DefaultClientConfig())
	limiter := probe.NewSourceLimiter(probe.DefaultBudgets())

	probes := []ports.SourceProbe{
		probe.NewGitHubProbe(client, limiter, cfg.GitHubToken, "", profile),
		probe.NewJobBoardProbe(client, limiter, cfg.JobBoardAPIKey, cfg.JobBoardURL, profile),
		probe.NewHackerNewsProbe(client, limiter, "", profile),
		probe.NewNPMRegistryProbe(client, limiter, "", profile),
	}
	for _, p := range probes {
		if p.Enabled() {
			log.Printf("✅ Source %s enabled", p.ID())
		} else {
			log.Printf("⚠️  Source %s disabled (missing credentials)", p.ID())
		}
	}

	normalizer := scan.NewNormalizer(scan.DefaultKindTables(), weights)
	orch, err := scan.New(probes, normalizer, weights, thresholds, scan.Config{
		ProbeTimeout:        cfg.ProbeTimeout,
		MaxConcurrentProbes: cfg.MaxConcurrentProbes,
		MaxConcurrentScans:  cfg.MaxConcurrentScans,
		SubjectPacing:       cfg.SubjectPacing,
	})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Report store (optional - only if DATABASE_URL configured)
	var repo ports.ReportRepository
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer dbPool.Close()
		repo = repository.NewPostgresRepository(dbPool)
		log.Println("✅ Report store enabled")
	} else {
		log.Println("⚠️  Report store disabled (no DATABASE_URL)")
	}

	// Slack notifier (optional - only if token configured)
	var slackNotifier *notifier.SlackNotifier
	if cfg.SlackToken != "" {
		slackNotifier = notifier.NewSlackNotifier(cfg.SlackToken, cfg.SlackChannel)
		log.Println("✅ Slack notifier enabled")
	} else {
		log.Println("⚠️  Slack notifier disabled (no SLACK_BOT_TOKEN)")
	}

	// HTTP router
	router := mux.NewRouter()

	restHandler := handler.NewRestHandler(orch, repo, slackNotifier)

	router.HandleFunc("/api/v1/health", restHandler.Health).Methods("GET")

	router.HandleFunc("/api/v1/scan", restHandler.Scan).Methods("GET")
	router.HandleFunc("/api/v1/scans", restHandler.ScanBatch).Methods("POST")
	router.HandleFunc("/api/v1/reports", restHandler.Reports).Methods("GET")
	router.HandleFunc("/api/v1/reports/export", restHandler.ExportReports).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Use(loggingMiddleware)
	if cfg.APIAuthToken == "" {
		log.Println("⚠️  Warning: REST_API_AUTH_TOKEN not set - auth disabled")
	}
	router.Use(authMiddleware(cfg.APIAuthToken))

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Minute, // a full batch scan can run close to its 30 minute deadline
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Prospector REST API listening on port %s", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("→ %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		log.Printf("← %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func authMiddleware(expectedToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health check
			if r.URL.Path == "/api/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			// If no token configured, allow all requests (development mode)
			if expectedToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Authorization") != "Bearer "+expectedToken {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
