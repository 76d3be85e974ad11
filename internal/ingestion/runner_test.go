package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/neows"
	"neo-tracker/internal/neows/stub"
	"neo-tracker/internal/risk"
	"neo-tracker/internal/storage/memory"
)

var testAnchor = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	alerts []string
}

func (s *recordingSink) PublishAlert(neoID, _ string, _ float64, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, neoID)
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

type failingSource struct{ err error }

func (f *failingSource) FetchFeed(context.Context, time.Time, time.Time) ([]neows.NeoObject, error) {
	return nil, f.err
}

func testRunner(t *testing.T, source FeedSource, sink AlertSink) (*Runner, *memory.AsteroidStore, *memory.ApproachStore, *memory.RiskHistoryStore) {
	t.Helper()

	asteroids := memory.NewAsteroidStore()
	approaches := memory.NewApproachStore()
	asteroids.AttachApproaches(approaches)
	history := memory.NewRiskHistoryStore()

	engine := risk.NewEngine(risk.DefaultThresholds(), risk.WithClock(func() time.Time { return testAnchor }))

	runner := NewRunner(RunnerOptions{
		Source:     source,
		Engine:     engine,
		Asteroids:  asteroids,
		Approaches: approaches,
		History:    history,
		Alerts:     sink,
		Now:        func() time.Time { return testAnchor },
	})
	return runner, asteroids, approaches, history
}

func TestRunner_SyncWindow(t *testing.T) {
	source := stub.New(stub.WithAnchor(testAnchor))
	sink := &recordingSink{}
	runner, asteroids, approaches, history := testRunner(t, source, sink)
	ctx := context.Background()

	result, err := runner.SyncWindow(ctx, testAnchor, testAnchor.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("SyncWindow: %v", err)
	}

	if result.Fetched != 5 {
		t.Errorf("expected 5 fetched, got %d", result.Fetched)
	}
	if result.Stored != 5 {
		t.Errorf("expected 5 stored, got %d", result.Stored)
	}
	if result.Scored != 5 {
		t.Errorf("expected 5 scored, got %d", result.Scored)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", result.Failed)
	}

	// The Apophis-like object is hazardous, large, and passing close.
	got, err := asteroids.GetByNeoID(ctx, "2099942")
	if err != nil {
		t.Fatalf("GetByNeoID: %v", err)
	}
	if got.RiskScore == nil {
		t.Fatal("expected risk score set")
	}
	if *got.RiskScore < 50 {
		t.Errorf("expected high score for close hazardous object, got %v", *got.RiskScore)
	}
	if got.RiskLevel == "" || got.RiskLevel == string(domain.RiskUnknown) {
		t.Errorf("unexpected risk level %q", got.RiskLevel)
	}

	var analysis domain.RiskAnalysis
	if err := json.Unmarshal(got.RiskAnalysis, &analysis); err != nil {
		t.Fatalf("unmarshal analysis blob: %v", err)
	}
	if analysis.OverallScore != *got.RiskScore {
		t.Errorf("blob score %v disagrees with column %v", analysis.OverallScore, *got.RiskScore)
	}

	aps, err := approaches.ListByNeoID(ctx, "2099942")
	if err != nil {
		t.Fatalf("ListByNeoID: %v", err)
	}
	if len(aps) != 1 {
		t.Errorf("expected 1 approach stored, got %d", len(aps))
	}

	points, err := history.GetByNeoID(ctx, "2099942")
	if err != nil {
		t.Fatalf("history GetByNeoID: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 history point, got %d", len(points))
	}
	if points[0].RiskScore != *got.RiskScore {
		t.Errorf("history score %v disagrees with column %v", points[0].RiskScore, *got.RiskScore)
	}

	// Hazardous close objects alert; distant and tiny ones do not.
	ids := sink.ids()
	if len(ids) == 0 {
		t.Fatal("expected at least one alert")
	}
	for _, id := range ids {
		if id == "3726710" || id == "2001036" {
			t.Errorf("unexpected alert for %s", id)
		}
	}
}

func TestRunner_SyncWindow_RepeatIsIdempotent(t *testing.T) {
	source := stub.New(stub.WithAnchor(testAnchor))
	runner, asteroids, _, history := testRunner(t, source, nil)
	ctx := context.Background()

	if _, err := runner.SyncWindow(ctx, testAnchor, testAnchor.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if _, err := runner.SyncWindow(ctx, testAnchor, testAnchor.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	n, err := asteroids.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 asteroids after resync, got %d", n)
	}

	// History is append-only: two runs, two points.
	points, err := history.GetByNeoID(ctx, "2099942")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(points) != 2 {
		t.Errorf("expected 2 history points, got %d", len(points))
	}
}

func TestRunner_SyncWindow_PerObjectFailureIsolated(t *testing.T) {
	// One object has no id in any field; the rest of the feed lands.
	objs := []neows.NeoObject{
		{Name: "broken"},
		{
			ID:             "54016476",
			NeoReferenceID: "54016476",
			Name:           "(2020 SW)",
		},
	}
	runner, asteroids, _, _ := testRunner(t, &staticSource{objs: objs}, nil)

	result, err := runner.SyncWindow(context.Background(), testAnchor, testAnchor.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("SyncWindow: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", result.Failed)
	}
	if result.Stored != 1 {
		t.Errorf("expected 1 stored, got %d", result.Stored)
	}

	if _, err := asteroids.GetByNeoID(context.Background(), "54016476"); err != nil {
		t.Errorf("expected surviving object stored: %v", err)
	}
}

type staticSource struct{ objs []neows.NeoObject }

func (s *staticSource) FetchFeed(context.Context, time.Time, time.Time) ([]neows.NeoObject, error) {
	return s.objs, nil
}

func TestRunner_SyncWindow_FetchError(t *testing.T) {
	wantErr := errors.New("feed down")
	runner, _, _, _ := testRunner(t, &failingSource{err: wantErr}, nil)

	_, err := runner.SyncWindow(context.Background(), testAnchor, testAnchor.AddDate(0, 0, 7))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped feed error, got %v", err)
	}
}

func TestRunner_RescoreAll(t *testing.T) {
	source := stub.New(stub.WithAnchor(testAnchor))
	runner, asteroids, _, history := testRunner(t, source, nil)
	ctx := context.Background()

	if _, err := runner.SyncWindow(ctx, testAnchor, testAnchor.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("sync: %v", err)
	}

	n, err := runner.RescoreAll(ctx)
	if err != nil {
		t.Fatalf("RescoreAll: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 rescored, got %d", n)
	}

	got, err := asteroids.GetByNeoID(ctx, "2099942")
	if err != nil {
		t.Fatalf("GetByNeoID: %v", err)
	}
	if got.RiskScore == nil {
		t.Fatal("expected risk score after rescore")
	}

	points, _ := history.GetByNeoID(ctx, "2099942")
	if len(points) != 2 {
		t.Errorf("expected 2 history points after sync+rescore, got %d", len(points))
	}
}
