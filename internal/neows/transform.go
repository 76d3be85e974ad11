package neows

import (
	"strconv"
	"strings"
	"time"

	"neo-tracker/internal/domain"
)

// Transform converts a raw API object into the domain asteroid plus its
// close-approach events. Malformed approach entries are skipped rather
// than failing the whole object; numeric fields that fail to parse
// come out nil.
func Transform(obj *NeoObject, observed time.Time) (*domain.Asteroid, []*domain.CloseApproach) {
	ast := &domain.Asteroid{
		NeoID:                  neoID(obj),
		Name:                   cleanName(obj.Name),
		NASAJPLURL:             obj.NASAJPLURL,
		AbsoluteMagnitude:      obj.AbsoluteMagnitudeH,
		IsPotentiallyHazardous: obj.IsPotentiallyHazardous,
		IsSentryObject:         obj.IsSentryObject,
	}
	if !observed.IsZero() {
		t := observed.UTC()
		ast.FirstObserved = &t
	}
	if km := obj.EstimatedDiameter.Kilometers; km != nil {
		ast.EstimatedDiameterMinKm = km.Min
		ast.EstimatedDiameterMaxKm = km.Max
	}

	approaches := make([]*domain.CloseApproach, 0, len(obj.CloseApproachData))
	for i := range obj.CloseApproachData {
		ap := transformApproach(ast.NeoID, &obj.CloseApproachData[i])
		if ap == nil {
			continue
		}
		approaches = append(approaches, ap)
	}
	return ast, approaches
}

func neoID(obj *NeoObject) string {
	if obj.NeoReferenceID != "" {
		return obj.NeoReferenceID
	}
	return obj.ID
}

// cleanName strips the wrapping parentheses NASA puts around provisional
// designations, e.g. "(2024 YR4)" -> "2024 YR4". Embedded parentheses in
// named objects like "99942 Apophis (2004 MN4)" are left alone.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		return strings.TrimSpace(name[1 : len(name)-1])
	}
	return name
}

func transformApproach(neoID string, raw *RawApproach) *domain.CloseApproach {
	at, ok := parseApproachTime(raw)
	if !ok {
		return nil
	}
	ap := &domain.CloseApproach{
		NeoID:        neoID,
		ApproachAt:   at,
		OrbitingBody: raw.OrbitingBody,
	}
	ap.RelativeVelocityKmh = parseFloat(raw.RelativeVelocity.KilometersPerHour)
	ap.RelativeVelocityKms = parseFloat(raw.RelativeVelocity.KilometersPerSecond)
	ap.MissDistanceKm = parseFloat(raw.MissDistance.Kilometers)
	ap.MissDistanceLunar = parseFloat(raw.MissDistance.Lunar)
	return ap
}

// parseApproachTime prefers the epoch timestamp, falling back to the
// full then the date-only string forms.
func parseApproachTime(raw *RawApproach) (time.Time, bool) {
	if raw.EpochDateCloseMs > 0 {
		return time.UnixMilli(raw.EpochDateCloseMs).UTC(), true
	}
	if raw.CloseApproachDateFull != "" {
		// e.g. "2029-Apr-13 21:46"
		if t, err := time.Parse("2006-Jan-02 15:04", raw.CloseApproachDateFull); err == nil {
			return t.UTC(), true
		}
	}
	if raw.CloseApproachDate != "" {
		if t, err := time.Parse("2006-01-02", raw.CloseApproachDate); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}
