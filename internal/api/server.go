// Package api exposes the tracked asteroid catalog over HTTP: a JSON
// REST surface plus a WebSocket stream of hazard alerts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/ingestion"
	"neo-tracker/internal/observability"
	"neo-tracker/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// hazardousScanLimit bounds how many upcoming approaches the
	// hazardous endpoint joins against the catalog.
	hazardousScanLimit = 500
)

// Syncer triggers an on-demand catalog sync. Implemented by the
// ingestion runner.
type Syncer interface {
	SyncNow(ctx context.Context) (*ingestion.SyncResult, error)
}

// ServerOptions configures the API server.
type ServerOptions struct {
	Asteroids  storage.AsteroidStore
	Approaches storage.ApproachStore
	History    storage.RiskHistoryStore

	// Syncer handles POST /api/v1/sync. Optional; the endpoint returns
	// 503 when absent.
	Syncer Syncer

	// Hub serves GET /api/v1/stream. Optional; the endpoint returns 503
	// when absent.
	Hub *Hub

	Logger *log.Logger
	Now    func() time.Time
}

// Server handles HTTP requests against the asteroid catalog.
type Server struct {
	asteroids  storage.AsteroidStore
	approaches storage.ApproachStore
	history    storage.RiskHistoryStore
	syncer     Syncer
	hub        *Hub
	logger     *log.Logger
	now        func() time.Time
}

// NewServer creates an API server with the given options.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		asteroids:  opts.Asteroids,
		approaches: opts.Approaches,
		history:    opts.History,
		syncer:     opts.Syncer,
		hub:        opts.Hub,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Routes returns the HTTP handler for all API endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.instrument("/healthz", s.handleHealth))
	mux.HandleFunc("GET /api/v1/asteroids", s.instrument("/api/v1/asteroids", s.handleListAsteroids))
	mux.HandleFunc("GET /api/v1/asteroids/{neo_id}", s.instrument("/api/v1/asteroids/{neo_id}", s.handleGetAsteroid))
	mux.HandleFunc("GET /api/v1/asteroids/{neo_id}/analysis", s.instrument("/api/v1/asteroids/{neo_id}/analysis", s.handleGetAnalysis))
	mux.HandleFunc("GET /api/v1/asteroids/{neo_id}/approaches", s.instrument("/api/v1/asteroids/{neo_id}/approaches", s.handleGetApproaches))
	mux.HandleFunc("GET /api/v1/asteroids/{neo_id}/history", s.instrument("/api/v1/asteroids/{neo_id}/history", s.handleGetHistory))
	mux.HandleFunc("GET /api/v1/statistics", s.instrument("/api/v1/statistics", s.handleStatistics))
	mux.HandleFunc("GET /api/v1/hazardous", s.instrument("/api/v1/hazardous", s.handleHazardous))
	mux.HandleFunc("POST /api/v1/sync", s.instrument("/api/v1/sync", s.handleSync))
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	return mux
}

// instrument wraps a handler with request duration metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	}
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// asteroidResponse is the JSON shape for a catalog entry.
type asteroidResponse struct {
	NeoID                  string     `json:"neo_id"`
	Name                   string     `json:"name"`
	NASAJPLURL             string     `json:"nasa_jpl_url,omitempty"`
	AbsoluteMagnitude      *float64   `json:"absolute_magnitude_h"`
	EstimatedDiameterMinKm *float64   `json:"estimated_diameter_min_km"`
	EstimatedDiameterMaxKm *float64   `json:"estimated_diameter_max_km"`
	IsPotentiallyHazardous bool       `json:"is_potentially_hazardous"`
	IsSentryObject         bool       `json:"is_sentry_object"`
	RiskScore              *float64   `json:"risk_score"`
	RiskLevel              string     `json:"risk_level,omitempty"`
	FirstObserved          *time.Time `json:"first_observed,omitempty"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toAsteroidResponse(a *domain.Asteroid) asteroidResponse {
	return asteroidResponse{
		NeoID:                  a.NeoID,
		Name:                   a.Name,
		NASAJPLURL:             a.NASAJPLURL,
		AbsoluteMagnitude:      a.AbsoluteMagnitude,
		EstimatedDiameterMinKm: a.EstimatedDiameterMinKm,
		EstimatedDiameterMaxKm: a.EstimatedDiameterMaxKm,
		IsPotentiallyHazardous: a.IsPotentiallyHazardous,
		IsSentryObject:         a.IsSentryObject,
		RiskScore:              a.RiskScore,
		RiskLevel:              a.RiskLevel,
		FirstObserved:          a.FirstObserved,
		UpdatedAt:              a.UpdatedAt,
	}
}

// approachResponse is the JSON shape for a close approach.
type approachResponse struct {
	NeoID               string    `json:"neo_id"`
	ApproachAt          time.Time `json:"approach_at"`
	RelativeVelocityKmh *float64  `json:"relative_velocity_kmh"`
	RelativeVelocityKms *float64  `json:"relative_velocity_kms"`
	MissDistanceKm      *float64  `json:"miss_distance_km"`
	MissDistanceLunar   *float64  `json:"miss_distance_lunar"`
	OrbitingBody        string    `json:"orbiting_body,omitempty"`
}

func toApproachResponse(ap *domain.CloseApproach) approachResponse {
	return approachResponse{
		NeoID:               ap.NeoID,
		ApproachAt:          ap.ApproachAt,
		RelativeVelocityKmh: ap.RelativeVelocityKmh,
		RelativeVelocityKms: ap.RelativeVelocityKms,
		MissDistanceKm:      ap.MissDistanceKm,
		MissDistanceLunar:   ap.MissDistanceLunar,
		OrbitingBody:        ap.OrbitingBody,
	}
}

// listResponse is the JSON envelope for paged asteroid results.
type listResponse struct {
	Items  []asteroidResponse `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAsteroids(w http.ResponseWriter, r *http.Request) {
	filter, sortBy, page, err := parseSearchQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.asteroids.Search(r.Context(), filter, sortBy, page)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	items := make([]asteroidResponse, 0, len(result.Items))
	for _, a := range result.Items {
		items = append(items, toAsteroidResponse(a))
	}
	s.writeJSON(w, http.StatusOK, listResponse{
		Items:  items,
		Total:  result.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (s *Server) handleGetAsteroid(w http.ResponseWriter, r *http.Request) {
	a, err := s.asteroids.GetByNeoID(r.Context(), r.PathValue("neo_id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "asteroid not found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAsteroidResponse(a))
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.asteroids.GetByNeoID(r.Context(), r.PathValue("neo_id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "asteroid not found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if len(a.RiskAnalysis) == 0 {
		s.writeError(w, http.StatusNotFound, "asteroid has no risk analysis yet")
		return
	}

	var analysis domain.RiskAnalysis
	if err := json.Unmarshal(a.RiskAnalysis, &analysis); err != nil {
		s.serverError(w, r, fmt.Errorf("decode stored analysis for %s: %w", a.NeoID, err))
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleGetApproaches(w http.ResponseWriter, r *http.Request) {
	neoID := r.PathValue("neo_id")
	if _, err := s.asteroids.GetByNeoID(r.Context(), neoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "asteroid not found")
			return
		}
		s.serverError(w, r, err)
		return
	}

	approaches, err := s.approaches.ListByNeoID(r.Context(), neoID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	items := make([]approachResponse, 0, len(approaches))
	for _, ap := range approaches {
		items = append(items, toApproachResponse(ap))
	}
	s.writeJSON(w, http.StatusOK, items)
}

// historyPointResponse is the JSON shape for one risk assessment sample.
type historyPointResponse struct {
	NeoID      string    `json:"neo_id"`
	AssessedAt time.Time `json:"assessed_at"`
	RiskScore  float64   `json:"risk_score"`
	RiskLevel  string    `json:"risk_level"`
	Confidence float64   `json:"confidence"`

	SizeScore           float64 `json:"size_score"`
	DistanceScore       float64 `json:"distance_score"`
	VelocityScore       float64 `json:"velocity_score"`
	TimeScore           float64 `json:"time_score"`
	ClassificationScore float64 `json:"classification_score"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	neoID := r.PathValue("neo_id")
	if _, err := s.asteroids.GetByNeoID(r.Context(), neoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "asteroid not found")
			return
		}
		s.serverError(w, r, err)
		return
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var points []*domain.RiskHistoryPoint
	if from != nil || to != nil {
		start, end := time.Time{}, s.now().UTC()
		if from != nil {
			start = *from
		}
		if to != nil {
			end = *to
		}
		points, err = s.history.GetByTimeRange(r.Context(), neoID, start, end)
	} else {
		points, err = s.history.GetByNeoID(r.Context(), neoID)
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	items := make([]historyPointResponse, 0, len(points))
	for _, p := range points {
		items = append(items, historyPointResponse{
			NeoID:               p.NeoID,
			AssessedAt:          p.AssessedAt,
			RiskScore:           p.RiskScore,
			RiskLevel:           string(p.RiskLevel),
			Confidence:          p.Confidence,
			SizeScore:           p.SizeScore,
			DistanceScore:       p.DistanceScore,
			VelocityScore:       p.VelocityScore,
			TimeScore:           p.TimeScore,
			ClassificationScore: p.ClassificationScore,
		})
	}
	s.writeJSON(w, http.StatusOK, items)
}

// statisticsResponse is the JSON shape for catalog statistics.
type statisticsResponse struct {
	TotalCount     int            `json:"total_count"`
	HazardousCount int            `json:"hazardous_count"`
	SentryCount    int            `json:"sentry_count"`
	ByRiskLevel    map[string]int `json:"by_risk_level"`
	MeanRiskScore  float64        `json:"mean_risk_score"`
	MaxRiskScore   float64        `json:"max_risk_score"`

	NextApproachNeoID string     `json:"next_approach_neo_id,omitempty"`
	NextApproachAt    *time.Time `json:"next_approach_at,omitempty"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.asteroids.Statistics(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	byLevel := make(map[string]int, len(stats.ByRiskLevel))
	for level, n := range stats.ByRiskLevel {
		byLevel[string(level)] = n
	}
	s.writeJSON(w, http.StatusOK, statisticsResponse{
		TotalCount:        stats.TotalCount,
		HazardousCount:    stats.HazardousCount,
		SentryCount:       stats.SentryCount,
		ByRiskLevel:       byLevel,
		MeanRiskScore:     stats.MeanRiskScore,
		MaxRiskScore:      stats.MaxRiskScore,
		NextApproachNeoID: stats.NextApproachNeoID,
		NextApproachAt:    stats.NextApproachAt,
	})
}

// hazardousEntry pairs a hazardous asteroid with its next approach.
type hazardousEntry struct {
	Asteroid asteroidResponse `json:"asteroid"`
	Approach approachResponse `json:"approach"`
}

func (s *Server) handleHazardous(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r, "limit", 20)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upcoming, err := s.approaches.Upcoming(r.Context(), s.now().UTC(), hazardousScanLimit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	// Keep only the earliest upcoming approach per object.
	seen := make(map[string]bool)
	entries := make([]hazardousEntry, 0)
	for _, ap := range upcoming {
		if seen[ap.NeoID] {
			continue
		}
		seen[ap.NeoID] = true

		a, err := s.asteroids.GetByNeoID(r.Context(), ap.NeoID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			s.serverError(w, r, err)
			return
		}
		if !a.IsPotentiallyHazardous {
			continue
		}
		entries = append(entries, hazardousEntry{
			Asteroid: toAsteroidResponse(a),
			Approach: toApproachResponse(ap),
		})
	}

	// Closest first; approaches with unknown miss distance sort last.
	sort.SliceStable(entries, func(i, j int) bool {
		mi, mj := entries[i].Approach.MissDistanceKm, entries[j].Approach.MissDistanceKm
		switch {
		case mi == nil:
			return false
		case mj == nil:
			return true
		default:
			return *mi < *mj
		}
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "sync is not enabled on this server")
		return
	}

	result, err := s.syncer.SyncNow(r.Context())
	if err != nil {
		if errors.Is(err, ingestion.ErrSyncInProgress) {
			s.writeError(w, http.StatusConflict, "a sync is already in progress")
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, "streaming is not enabled on this server")
		return
	}
	s.hub.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
