// Package main provides the unified tracker server:
// - Sync (scheduled): NeoWs feed ingestion and risk scoring
// - REST API: asteroid catalog, analyses, statistics, hazard stream
// - Metrics: Prometheus endpoint with health and status
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"neo-tracker/internal/api"
	"neo-tracker/internal/domain"
	"neo-tracker/internal/ingestion"
	"neo-tracker/internal/neows"
	"neo-tracker/internal/neows/stub"
	"neo-tracker/internal/observability"
	"neo-tracker/internal/risk"
	"neo-tracker/internal/storage"
	chstore "neo-tracker/internal/storage/clickhouse"
	"neo-tracker/internal/storage/memory"
	"neo-tracker/internal/storage/migrations"
	pgstore "neo-tracker/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	listenAddr   string
	metricsAddr  string
	syncInterval time.Duration

	// Stores
	stores *allStores

	// Components
	runner *ingestion.Runner
	hub    *api.Hub
	logger *log.Logger

	// State
	mu          sync.Mutex
	syncStarted time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	asteroidStore    storage.AsteroidStore
	approachStore    storage.ApproachStore
	riskHistoryStore storage.RiskHistoryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	apiKey := flag.String("nasa-api-key", os.Getenv("NASA_API_KEY"), "NASA API key for the NeoWs feed")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	listenAddr := flag.String("listen-addr", ":8080", "API HTTP address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	syncInterval := flag.Duration("sync-interval", 6*time.Hour, "Feed sync interval")
	windowDays := flag.Int("window-days", neows.MaxFeedWindowDays, "Feed window size in days (max 7)")
	alertLevel := flag.String("alert-level", "high", "Minimum risk level that triggers a hazard alert")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	useStub := flag.Bool("use-stub", false, "Use the built-in deterministic feed instead of NeoWs")
	distanceHigh := flag.Float64("distance-high-km", 0, "Override the high-risk miss distance breakpoint (km)")
	diameterHigh := flag.Float64("diameter-high-km", 0, "Override the high-risk diameter breakpoint (km)")
	velocityHigh := flag.Float64("velocity-high-kmh", 0, "Override the high-risk velocity breakpoint (km/h)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *apiKey == "" && !*useStub {
		logger.Fatal("--nasa-api-key is required (use --use-stub for the built-in feed)")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	level := domain.ParseRiskLevel(*alertLevel)
	if level == "" {
		logger.Fatalf("Invalid --alert-level %q", *alertLevel)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores (runs migrations for the real backends)
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create feed source
	var source ingestion.FeedSource
	if *useStub {
		logger.Println("Using built-in deterministic feed")
		source = stub.New()
	} else {
		source = neows.NewClient(*apiKey)
	}

	// Create components
	hub := api.NewHub(nil, log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lshortfile))
	thresholds := risk.ThresholdsWith(risk.ThresholdOverrides{
		DistanceHighKm:  *distanceHigh,
		DiameterHighKm:  *diameterHigh,
		VelocityHighKmh: *velocityHigh,
	})
	engine := risk.NewEngine(thresholds,
		risk.WithLogger(log.New(os.Stdout, "[risk] ", log.LstdFlags|log.Lshortfile)))
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:       source,
		Engine:       engine,
		Asteroids:    stores.asteroidStore,
		Approaches:   stores.approachStore,
		History:      stores.riskHistoryStore,
		Alerts:       hub,
		SyncInterval: *syncInterval,
		WindowDays:   *windowDays,
		AlertLevel:   level,
		Logger:       log.New(os.Stdout, "[sync] ", log.LstdFlags|log.Lshortfile),
	})

	server := &Server{
		listenAddr:   *listenAddr,
		metricsAddr:  *metricsAddr,
		syncInterval: *syncInterval,
		stores:       stores,
		runner:       runner,
		hub:          hub,
		logger:       logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start metrics server
	go server.startMetricsServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		asteroids := memory.NewAsteroidStore()
		approaches := memory.NewApproachStore()
		asteroids.AttachApproaches(approaches)
		stores := &allStores{
			asteroidStore:    asteroids,
			approachStore:    approaches,
			riskHistoryStore: memory.NewRiskHistoryStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (catalog)
		asteroidStore: pgstore.NewAsteroidStore(pool),
		approachStore: pgstore.NewApproachStore(pool),

		// ClickHouse stores (analytics)
		riskHistoryStore: chstore.NewRiskHistoryStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	// Create error channel for goroutines
	errCh := make(chan error, 2)

	// Start feed sync in background
	go func() {
		s.mu.Lock()
		s.syncStarted = time.Now()
		s.mu.Unlock()

		err := s.runner.Run(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("sync: %w", err)
		}
	}()

	// Start API server in background
	apiServer := &http.Server{
		Addr: s.listenAddr,
		Handler: api.NewServer(api.ServerOptions{
			Asteroids:  s.stores.asteroidStore,
			Approaches: s.stores.approachStore,
			History:    s.stores.riskHistoryStore,
			Syncer:     s.runner,
			Hub:        s.hub,
			Logger:     log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
		}).Routes(),
	}
	go func() {
		s.logger.Printf("Starting API server on %s", s.listenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Wait for context cancellation or error
	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}

	// Drain connected stream clients, then stop accepting requests.
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("API server shutdown: %v", err)
	}

	return runErr
}

// startMetricsServer starts the HTTP server for health/metrics/status.
func (s *Server) startMetricsServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("Metrics server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	SyncStarted   time.Time `json:"sync_started"`
	SyncInterval  string    `json:"sync_interval"`
	StreamClients int       `json:"stream_clients"`
	TrackedCount  int       `json:"tracked_count"`
}

// handleStatus returns current server status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.syncStarted
	s.mu.Unlock()

	count, err := s.stores.asteroidStore.Count(r.Context())
	if err != nil {
		s.logger.Printf("Status: count asteroids: %v", err)
	}

	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(started).Round(time.Second).String(),
		SyncStarted:   started,
		SyncInterval:  s.syncInterval.String(),
		StreamClients: s.hub.ClientCount(),
		TrackedCount:  count,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
