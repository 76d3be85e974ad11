// Package ingestion synchronizes the asteroid catalog from the NeoWs
// feed and keeps risk assessments current.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/neows"
	"neo-tracker/internal/observability"
	"neo-tracker/internal/risk"
	"neo-tracker/internal/storage"
)

// Runner orchestrates feed synchronization and risk scoring.
type Runner struct {
	source       FeedSource
	engine       *risk.Engine
	asteroids    storage.AsteroidStore
	approaches   storage.ApproachStore
	history      storage.RiskHistoryStore
	alerts       AlertSink
	syncInterval time.Duration
	windowDays   int
	alertLevel   domain.RiskLevel
	now          func() time.Time
	logger       *log.Logger

	// Overlap guard: a manual trigger must not race the ticker.
	mu      sync.Mutex
	running bool
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source     FeedSource
	Engine     *risk.Engine
	Asteroids  storage.AsteroidStore
	Approaches storage.ApproachStore
	History    storage.RiskHistoryStore // optional
	Alerts     AlertSink                // optional

	SyncInterval time.Duration // default: 6h
	WindowDays   int           // default: 7 (feed maximum)
	// Minimum level that triggers an alert. Default: high.
	AlertLevel domain.RiskLevel
	Now        func() time.Time
	Logger     *log.Logger
}

// NewRunner creates a new sync runner.
func NewRunner(opts RunnerOptions) *Runner {
	syncInterval := opts.SyncInterval
	if syncInterval == 0 {
		syncInterval = 6 * time.Hour
	}

	windowDays := opts.WindowDays
	if windowDays <= 0 || windowDays > neows.MaxFeedWindowDays {
		windowDays = neows.MaxFeedWindowDays
	}

	alertLevel := opts.AlertLevel
	if alertLevel == "" {
		alertLevel = domain.RiskHigh
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		source:       opts.Source,
		engine:       opts.Engine,
		asteroids:    opts.Asteroids,
		approaches:   opts.Approaches,
		history:      opts.History,
		alerts:       opts.Alerts,
		syncInterval: syncInterval,
		windowDays:   windowDays,
		alertLevel:   alertLevel,
		now:          now,
		logger:       logger,
	}
}

// SyncResult contains statistics from one sync run.
type SyncResult struct {
	Fetched    int           `json:"fetched"`
	Stored     int           `json:"stored"`
	Scored     int           `json:"scored"`
	Failed     int           `json:"failed"`
	Alerted    int           `json:"alerted"`
	WindowFrom time.Time     `json:"window_from"`
	WindowTo   time.Time     `json:"window_to"`
	Duration   time.Duration `json:"duration"`
}

// ErrSyncInProgress is returned when a sync is requested while another
// run holds the overlap guard.
var ErrSyncInProgress = fmt.Errorf("sync already in progress")

// Run starts the scheduled sync loop with an immediate first run.
// It blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("[sync] runner started, interval %v, window %d days", r.syncInterval, r.windowDays)

	if _, err := r.SyncNow(ctx); err != nil && ctx.Err() == nil {
		r.logger.Printf("[sync] initial sync failed: %v", err)
	}

	ticker := time.NewTicker(r.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Println("[sync] runner stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.SyncNow(ctx); err != nil && ctx.Err() == nil {
				r.logger.Printf("[sync] scheduled sync failed: %v", err)
			}
		}
	}
}

// SyncNow synchronizes the default window starting today.
func (r *Runner) SyncNow(ctx context.Context) (*SyncResult, error) {
	start := r.now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, r.windowDays)
	return r.SyncWindow(ctx, start, end)
}

// SyncWindow synchronizes a specific date window. Per-object failures
// are counted and logged but never abort the run.
func (r *Runner) SyncWindow(ctx context.Context, start, end time.Time) (*SyncResult, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	began := time.Now()
	result := &SyncResult{WindowFrom: start, WindowTo: end}

	objects, err := r.source.FetchFeed(ctx, start, end)
	if err != nil {
		observability.RecordSyncRun("error", time.Since(began).Seconds())
		return result, fmt.Errorf("fetch feed: %w", err)
	}
	result.Fetched = len(objects)
	observability.RecordObjectsFetched(len(objects))
	r.logger.Printf("[sync] fetched %d objects for %s..%s",
		len(objects), start.Format("2006-01-02"), end.Format("2006-01-02"))

	for i := range objects {
		if ctx.Err() != nil {
			observability.RecordSyncRun("cancelled", time.Since(began).Seconds())
			return result, ctx.Err()
		}
		if err := r.syncObject(ctx, &objects[i], start, result); err != nil {
			result.Failed++
			observability.RecordObjectFailed()
			r.logger.Printf("[sync] object %s failed: %v", objects[i].NeoReferenceID, err)
		}
	}

	result.Duration = time.Since(began)
	observability.RecordSyncRun("ok", result.Duration.Seconds())
	observability.MarkSyncSuccess(float64(r.now().Unix()))
	r.logger.Printf("[sync] done: fetched=%d stored=%d scored=%d failed=%d alerted=%d in %v",
		result.Fetched, result.Stored, result.Scored, result.Failed, result.Alerted, result.Duration)
	return result, nil
}

// syncObject upserts one object, rescores it, and records history.
func (r *Runner) syncObject(ctx context.Context, obj *neows.NeoObject, observed time.Time, result *SyncResult) error {
	ast, approaches := neows.Transform(obj, observed)
	if ast.NeoID == "" {
		return fmt.Errorf("object without id")
	}

	if err := r.asteroids.Upsert(ctx, ast); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if err := r.approaches.ReplaceForNeo(ctx, ast.NeoID, approaches); err != nil {
		return fmt.Errorf("replace approaches: %w", err)
	}
	result.Stored++
	observability.RecordObjectUpserted()
	observability.RecordApproachesStored(len(approaches))

	analysis, err := r.score(ctx, ast, approaches)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	result.Scored++
	observability.RecordAssessment(string(analysis.RiskLevel), analysis.OverallScore)

	if r.alerts != nil && ast.IsPotentiallyHazardous && levelAtLeast(analysis.RiskLevel, r.alertLevel) {
		r.alerts.PublishAlert(ast.NeoID, ast.Name, analysis.OverallScore, string(analysis.RiskLevel))
		result.Alerted++
		observability.RecordAlertPublished()
	}
	return nil
}

// score runs the engine for one asteroid and persists the result.
func (r *Runner) score(ctx context.Context, ast *domain.Asteroid, approaches []*domain.CloseApproach) (*domain.RiskAnalysis, error) {
	in := buildInput(ast, approaches, r.now().UTC())

	analysis, err := r.engine.Calculate(in)
	if err != nil {
		observability.RecordDegradedAssessment()
		return nil, err
	}

	blob, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	if err := r.asteroids.UpdateRisk(ctx, ast.NeoID, analysis.OverallScore, analysis.RiskLevel, blob); err != nil {
		return nil, fmt.Errorf("update risk: %w", err)
	}

	if r.history != nil {
		point := historyPoint(ast.NeoID, analysis, r.now().UTC())
		if err := r.history.InsertBulk(ctx, []*domain.RiskHistoryPoint{point}); err != nil {
			// History is best-effort; the assessment itself landed.
			r.logger.Printf("[sync] history insert for %s failed: %v", ast.NeoID, err)
		}
	}
	return analysis, nil
}

// RescoreAll recomputes assessments for every stored asteroid, paging
// through the catalog. Used when thresholds change.
func (r *Runner) RescoreAll(ctx context.Context) (int, error) {
	const pageSize = 200
	scored := 0

	for offset := 0; ; offset += pageSize {
		batch, err := r.asteroids.List(ctx, domain.Sort{Field: domain.SortByName}, domain.Page{Limit: pageSize, Offset: offset})
		if err != nil {
			return scored, fmt.Errorf("list asteroids: %w", err)
		}
		if len(batch) == 0 {
			return scored, nil
		}

		for _, ast := range batch {
			if ctx.Err() != nil {
				return scored, ctx.Err()
			}
			approaches, err := r.approaches.ListByNeoID(ctx, ast.NeoID)
			if err != nil {
				r.logger.Printf("[sync] rescore %s: list approaches: %v", ast.NeoID, err)
				continue
			}
			if _, err := r.score(ctx, ast, approaches); err != nil {
				r.logger.Printf("[sync] rescore %s failed: %v", ast.NeoID, err)
				continue
			}
			scored++
		}
	}
}

// buildInput assembles an engine input from stored state. The next
// upcoming approach is preferred; with none it falls back to the
// closest recorded pass.
func buildInput(ast *domain.Asteroid, approaches []*domain.CloseApproach, now time.Time) risk.Input {
	in := risk.Input{
		NeoID:                  ast.NeoID,
		DiameterKm:             ast.AvgDiameterKm(),
		IsPotentiallyHazardous: ast.IsPotentiallyHazardous,
		IsSentryObject:         ast.IsSentryObject,
		AbsoluteMagnitude:      ast.AbsoluteMagnitude,
	}

	ap := domain.NextUpcoming(approaches, now)
	if ap == nil {
		ap = domain.ClosestOf(approaches)
	}
	if ap == nil && len(approaches) > 0 {
		ap = approaches[0]
	}
	if ap != nil {
		in.MissDistanceKm = ap.MissDistanceKm
		in.VelocityKmh = ap.RelativeVelocityKmh
		at := ap.ApproachAt
		in.ApproachAt = &at
	}
	return in
}

func historyPoint(neoID string, analysis *domain.RiskAnalysis, at time.Time) *domain.RiskHistoryPoint {
	return &domain.RiskHistoryPoint{
		NeoID:               neoID,
		AssessedAt:          at,
		RiskScore:           analysis.OverallScore,
		RiskLevel:           analysis.RiskLevel,
		Confidence:          analysis.Confidence,
		SizeScore:           analysis.FactorScores[string(risk.FactorSize)],
		DistanceScore:       analysis.FactorScores[string(risk.FactorDistance)],
		VelocityScore:       analysis.FactorScores[string(risk.FactorVelocity)],
		TimeScore:           analysis.FactorScores[string(risk.FactorTimeToApproach)],
		ClassificationScore: analysis.FactorScores[string(risk.FactorClassification)],
	}
}

// levelAtLeast orders categorical levels for alert gating.
func levelAtLeast(level, min domain.RiskLevel) bool {
	rank := map[domain.RiskLevel]int{
		domain.RiskVeryLow:  0,
		domain.RiskLow:      1,
		domain.RiskMedium:   2,
		domain.RiskHigh:     3,
		domain.RiskVeryHigh: 4,
		domain.RiskCritical: 5,
	}
	lr, ok := rank[level]
	if !ok {
		return false
	}
	mr, ok := rank[min]
	if !ok {
		return false
	}
	return lr >= mr
}
