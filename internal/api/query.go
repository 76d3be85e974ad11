package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"neo-tracker/internal/domain"
)

// parseSearchQuery translates list query parameters into a search filter,
// sort and page. Unknown values are rejected rather than ignored.
func parseSearchQuery(r *http.Request) (domain.SearchFilter, domain.Sort, domain.Page, error) {
	var (
		filter domain.SearchFilter
		sortBy domain.Sort
		page   domain.Page
	)
	q := r.URL.Query()

	filter.NameContains = q.Get("name")

	var err error
	if filter.Hazardous, err = parseBoolParam(q.Get("hazardous"), "hazardous"); err != nil {
		return filter, sortBy, page, err
	}
	if filter.Sentry, err = parseBoolParam(q.Get("sentry"), "sentry"); err != nil {
		return filter, sortBy, page, err
	}

	if v := q.Get("risk_level"); v != "" {
		level := domain.RiskLevel(v)
		if !level.IsValid() {
			return filter, sortBy, page, fmt.Errorf("invalid risk_level %q", v)
		}
		filter.RiskLevel = &level
	}

	if filter.MinDiameterKm, err = parseFloatParam(q.Get("min_diameter_km"), "min_diameter_km"); err != nil {
		return filter, sortBy, page, err
	}
	if filter.MaxDiameterKm, err = parseFloatParam(q.Get("max_diameter_km"), "max_diameter_km"); err != nil {
		return filter, sortBy, page, err
	}
	if filter.MaxMissKm, err = parseFloatParam(q.Get("max_miss_km"), "max_miss_km"); err != nil {
		return filter, sortBy, page, err
	}

	if filter.ApproachAfter, err = parseTimeParam(q.Get("approach_after"), "approach_after"); err != nil {
		return filter, sortBy, page, err
	}
	if filter.ApproachUntil, err = parseTimeParam(q.Get("approach_until"), "approach_until"); err != nil {
		return filter, sortBy, page, err
	}

	if v := q.Get("sort"); v != "" {
		field := domain.SortField(v)
		if !field.IsValid() {
			return filter, sortBy, page, fmt.Errorf("invalid sort field %q", v)
		}
		sortBy.Field = field
	}
	switch v := q.Get("order"); v {
	case "", "asc":
	case "desc":
		sortBy.Descending = true
	default:
		return filter, sortBy, page, fmt.Errorf("invalid order %q, want asc or desc", v)
	}

	if page.Limit, err = parseIntValue(q.Get("limit"), "limit", defaultListLimit); err != nil {
		return filter, sortBy, page, err
	}
	if page.Limit > maxListLimit {
		page.Limit = maxListLimit
	}
	if page.Offset, err = parseIntValue(q.Get("offset"), "offset", 0); err != nil {
		return filter, sortBy, page, err
	}

	return filter, sortBy, page, nil
}

// parseTimeRange reads optional from/to query parameters.
func parseTimeRange(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if from, err = parseTimeParam(q.Get("from"), "from"); err != nil {
		return nil, nil, err
	}
	if to, err = parseTimeParam(q.Get("to"), "to"); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to is before from")
	}
	return from, to, nil
}

func parseBoolParam(v, name string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q, want true or false", name, v)
	}
	return &b, nil
}

func parseFloatParam(v, name string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil, fmt.Errorf("invalid %s %q, want a non-negative number", name, v)
	}
	return &f, nil
}

// parseTimeParam accepts RFC 3339 timestamps or bare dates.
func parseTimeParam(v, name string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s %q, want RFC 3339 or YYYY-MM-DD", name, v)
}

func parseIntValue(v, name string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q, want a non-negative integer", name, v)
	}
	return n, nil
}

func parsePositiveInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q, want a positive integer", name, v)
	}
	return n, nil
}
