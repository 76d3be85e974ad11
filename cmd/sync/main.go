// Package main provides a one-shot backfill of the asteroid catalog:
// it walks a date range through the NeoWs feed in week-sized windows,
// stores every object it finds and scores each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"neo-tracker/internal/ingestion"
	"neo-tracker/internal/neows"
	"neo-tracker/internal/neows/stub"
	"neo-tracker/internal/risk"
	chstore "neo-tracker/internal/storage/clickhouse"
	"neo-tracker/internal/storage/memory"
	"neo-tracker/internal/storage/migrations"
	pgstore "neo-tracker/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

func main() {
	loadEnvFile()

	apiKey := flag.String("nasa-api-key", os.Getenv("NASA_API_KEY"), "NASA API key for the NeoWs feed")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	fromStr := flag.String("from", "", "Backfill start date (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Backfill end date (YYYY-MM-DD), defaults to today")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	useStub := flag.Bool("use-stub", false, "Use the built-in deterministic feed instead of NeoWs")
	rescore := flag.Bool("rescore", false, "Recompute assessments for the stored catalog instead of backfilling")
	distanceHigh := flag.Float64("distance-high-km", 0, "Override the high-risk miss distance breakpoint (km)")
	diameterHigh := flag.Float64("diameter-high-km", 0, "Override the high-risk diameter breakpoint (km)")
	velocityHigh := flag.Float64("velocity-high-kmh", 0, "Override the high-risk velocity breakpoint (km/h)")

	flag.Parse()

	logger := log.New(os.Stdout, "[backfill] ", log.LstdFlags|log.Lshortfile)

	if *apiKey == "" && !*useStub && !*rescore {
		logger.Fatal("--nasa-api-key is required (use --use-stub for the built-in feed)")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for a dry run)")
	}
	if *fromStr == "" && !*rescore {
		logger.Fatal("--from is required (or use --rescore)")
	}

	overrides := risk.ThresholdOverrides{
		DistanceHighKm:  *distanceHigh,
		DiameterHighKm:  *diameterHigh,
		VelocityHighKmh: *velocityHigh,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, cleanup, err := buildRunner(ctx, *apiKey, *postgresDSN, *clickhouseDSN, overrides, *useMemory, *useStub, logger)
	if err != nil {
		logger.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	if *rescore {
		scored, err := runner.RescoreAll(ctx)
		if err != nil {
			logger.Fatalf("Rescore failed after %d objects: %v", scored, err)
		}
		logger.Printf("Rescore complete: %d objects", scored)
		return
	}

	from, err := time.Parse(dateLayout, *fromStr)
	if err != nil {
		logger.Fatalf("Invalid --from %q: %v", *fromStr, err)
	}
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if *toStr != "" {
		if to, err = time.Parse(dateLayout, *toStr); err != nil {
			logger.Fatalf("Invalid --to %q: %v", *toStr, err)
		}
	}
	if to.Before(from) {
		logger.Fatalf("--to %s is before --from %s", to.Format(dateLayout), from.Format(dateLayout))
	}

	logger.Printf("Backfilling %s .. %s", from.Format(dateLayout), to.Format(dateLayout))

	var total ingestion.SyncResult
	windows := 0
	for start := from; !start.After(to); start = start.AddDate(0, 0, neows.MaxFeedWindowDays) {
		end := start.AddDate(0, 0, neows.MaxFeedWindowDays)
		if end.After(to) {
			end = to
		}

		result, err := runner.SyncWindow(ctx, start, end)
		if err != nil {
			logger.Fatalf("Window %s .. %s failed: %v", start.Format(dateLayout), end.Format(dateLayout), err)
		}

		windows++
		total.Fetched += result.Fetched
		total.Stored += result.Stored
		total.Scored += result.Scored
		total.Failed += result.Failed
		logger.Printf("Window %s .. %s: fetched %d, stored %d, scored %d, failed %d",
			start.Format(dateLayout), end.Format(dateLayout),
			result.Fetched, result.Stored, result.Scored, result.Failed)
	}

	logger.Printf("Backfill complete: %d windows, fetched %d, stored %d, scored %d, failed %d",
		windows, total.Fetched, total.Stored, total.Scored, total.Failed)
	if total.Failed > 0 {
		os.Exit(1)
	}
}

// buildRunner wires the feed source, stores and scoring engine.
func buildRunner(ctx context.Context, apiKey, postgresDSN, clickhouseDSN string, overrides risk.ThresholdOverrides, useMemory, useStub bool, logger *log.Logger) (*ingestion.Runner, func(), error) {
	var source ingestion.FeedSource
	if useStub {
		source = stub.New()
	} else {
		source = neows.NewClient(apiKey)
	}

	opts := ingestion.RunnerOptions{
		Source: source,
		Engine: risk.NewEngine(risk.ThresholdsWith(overrides)),
		Logger: logger,
	}

	if useMemory {
		asteroids := memory.NewAsteroidStore()
		approaches := memory.NewApproachStore()
		asteroids.AttachApproaches(approaches)
		opts.Asteroids = asteroids
		opts.Approaches = approaches
		opts.History = memory.NewRiskHistoryStore()
		return ingestion.NewRunner(opts), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	opts.Asteroids = pgstore.NewAsteroidStore(pool)
	opts.Approaches = pgstore.NewApproachStore(pool)
	opts.History = chstore.NewRiskHistoryStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return ingestion.NewRunner(opts), cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
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
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
