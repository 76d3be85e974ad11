package domain

import "time"

// SortField identifies a sortable asteroid attribute.
type SortField string

const (
	SortByName      SortField = "name"
	SortByRiskScore SortField = "risk_score"
	SortByDiameter  SortField = "diameter"
	SortByUpdatedAt SortField = "updated_at"
)

// IsValid checks if the sort field is a known value.
func (f SortField) IsValid() bool {
	switch f {
	case SortByName, SortByRiskScore, SortByDiameter, SortByUpdatedAt:
		return true
	}
	return false
}

// Sort describes result ordering. Zero value means store default
// (updated_at descending).
type Sort struct {
	Field      SortField
	Descending bool
}

// Page describes result pagination. Limit 0 means store default.
type Page struct {
	Limit  int
	Offset int
}

// SearchFilter holds optional asteroid search criteria. Nil/empty fields
// are not applied.
type SearchFilter struct {
	NameContains  string     // case-insensitive substring match
	Hazardous     *bool      // filter by PHO flag
	Sentry        *bool      // filter by Sentry flag
	RiskLevel     *RiskLevel // filter by categorical level
	MinDiameterKm *float64   // average diameter lower bound
	MaxDiameterKm *float64   // average diameter upper bound
	MaxMissKm     *float64   // closest approach within this distance
	ApproachAfter *time.Time // has an approach at/after this time
	ApproachUntil *time.Time // has an approach at/before this time
}

// IsZero reports whether no criteria are set.
func (f SearchFilter) IsZero() bool {
	return f == SearchFilter{}
}

// PagedAsteroids is a page of search results with the total match count.
type PagedAsteroids struct {
	Items []*Asteroid
	Total int
}
