// Package stub provides a deterministic in-process NeoWs feed source for
// tests and offline development. It serves a fixed roster of objects
// whose approach dates are shifted relative to a configurable anchor
// time, so pipelines exercising it see stable scores.
package stub

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"neo-tracker/internal/neows"
)

// Source serves canned feed data. It satisfies the same surface the
// ingestion runner consumes from the live client.
type Source struct {
	anchor  time.Time
	objects []neows.NeoObject
}

// Option configures a Source.
type Option func(*Source)

// WithAnchor pins the reference time approach dates are computed from.
func WithAnchor(t time.Time) Option {
	return func(s *Source) { s.anchor = t.UTC() }
}

// WithObjects replaces the built-in roster entirely.
func WithObjects(objs []neows.NeoObject) Option {
	return func(s *Source) { s.objects = objs }
}

// New returns a stub source with the default roster.
func New(opts ...Option) *Source {
	s := &Source{anchor: time.Now().UTC()}
	for _, opt := range opts {
		opt(s)
	}
	if s.objects == nil {
		s.objects = defaultRoster(s.anchor)
	}
	return s
}

// FetchFeed returns the roster objects whose approach falls inside
// [start, end], grouped the way the live feed endpoint groups them.
func (s *Source) FetchFeed(_ context.Context, start, end time.Time) ([]neows.NeoObject, error) {
	feed := &neows.FeedResponse{NearEarthObjects: map[string][]neows.NeoObject{}}
	for _, obj := range s.objects {
		at, ok := objectApproach(&obj)
		if !ok {
			continue
		}
		if at.Before(start) || at.After(end.Add(24*time.Hour)) {
			continue
		}
		key := at.Format("2006-01-02")
		feed.NearEarthObjects[key] = append(feed.NearEarthObjects[key], obj)
		feed.ElementCount++
	}
	return feed.Objects(), nil
}

// Lookup returns the roster object with the given id.
func (s *Source) Lookup(_ context.Context, neoID string) (*neows.NeoObject, error) {
	for i := range s.objects {
		if s.objects[i].NeoReferenceID == neoID || s.objects[i].ID == neoID {
			obj := s.objects[i]
			return &obj, nil
		}
	}
	return nil, fmt.Errorf("stub: object %s not found", neoID)
}

func objectApproach(obj *neows.NeoObject) (time.Time, bool) {
	if len(obj.CloseApproachData) == 0 {
		return time.Time{}, false
	}
	ms := obj.CloseApproachData[0].EpochDateCloseMs
	if ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// defaultRoster covers the interesting scoring regimes: a large
// hazardous flyby, a close small rock, a distant harmless object, and
// one with no diameter estimate at all.
func defaultRoster(anchor time.Time) []neows.NeoObject {
	return []neows.NeoObject{
		object("2099942", "99942 Apophis (2004 MN4)", 19.7, fp(0.31), fp(0.68), true, false,
			approach(anchor.Add(48*time.Hour), 30600, 31000)),
		object("3542519", "(2010 PK9)", 21.8, fp(0.11), fp(0.26), true, false,
			approach(anchor.Add(24*time.Hour), 52000, 820000)),
		object("54016476", "(2020 SW)", 26.3, fp(0.007), fp(0.016), false, false,
			approach(anchor.Add(96*time.Hour), 27700, 27000)),
		object("3726710", "(2015 RC)", 24.3, nil, nil, false, false,
			approach(anchor.Add(144*time.Hour), 35000, 5600000)),
		object("2001036", "1036 Ganymed (1924 TD)", 9.2, fp(34.8), fp(41.6), false, false,
			approach(anchor.Add(120*time.Hour), 29500, 56000000)),
	}
}

func object(id, name string, magnitude float64, dmin, dmax *float64, hazardous, sentry bool, ap neows.RawApproach) neows.NeoObject {
	obj := neows.NeoObject{
		ID:                     id,
		NeoReferenceID:         id,
		Name:                   name,
		NASAJPLURL:             "https://ssd.jpl.nasa.gov/tools/sbdb_lookup.html#/?sstr=" + id,
		AbsoluteMagnitudeH:     &magnitude,
		IsPotentiallyHazardous: hazardous,
		IsSentryObject:         sentry,
		CloseApproachData:      []neows.RawApproach{ap},
	}
	if dmin != nil || dmax != nil {
		obj.EstimatedDiameter.Kilometers = &neows.DiameterRange{Min: dmin, Max: dmax}
	}
	return obj
}

func approach(at time.Time, velocityKmh, missKm float64) neows.RawApproach {
	at = at.UTC()
	return neows.RawApproach{
		CloseApproachDate:     at.Format("2006-01-02"),
		CloseApproachDateFull: at.Format("2006-Jan-02 15:04"),
		EpochDateCloseMs:      at.UnixMilli(),
		RelativeVelocity: neows.RawVelocity{
			KilometersPerHour:   strconv.FormatFloat(velocityKmh, 'f', 4, 64),
			KilometersPerSecond: strconv.FormatFloat(velocityKmh/3600, 'f', 6, 64),
		},
		MissDistance: neows.RawDistance{
			Kilometers:   strconv.FormatFloat(missKm, 'f', 3, 64),
			Lunar:        strconv.FormatFloat(missKm/384400*400, 'f', 4, 64),
			Astronomical: strconv.FormatFloat(missKm/149597870.7, 'f', 10, 64),
		},
		OrbitingBody: "Earth",
	}
}

func fp(v float64) *float64 { return &v }
