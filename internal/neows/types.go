package neows

import "sort"

// FeedResponse is the raw feed endpoint response. Objects are grouped by
// approach date string (YYYY-MM-DD).
type FeedResponse struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]NeoObject `json:"near_earth_objects"`
}

// Objects flattens the per-date grouping into a single slice, ordered by
// date key for determinism.
func (f *FeedResponse) Objects() []NeoObject {
	dates := make([]string, 0, len(f.NearEarthObjects))
	for date := range f.NearEarthObjects {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var out []NeoObject
	for _, date := range dates {
		out = append(out, f.NearEarthObjects[date]...)
	}
	return out
}

// BrowseResponse is the raw browse endpoint response.
type BrowseResponse struct {
	Page             BrowsePage  `json:"page"`
	NearEarthObjects []NeoObject `json:"near_earth_objects"`
}

// BrowsePage holds browse pagination metadata.
type BrowsePage struct {
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
	Number        int `json:"number"`
}

// NeoObject is a raw NEO record as served by the API.
type NeoObject struct {
	ID                     string            `json:"id"`
	NeoReferenceID         string            `json:"neo_reference_id"`
	Name                   string            `json:"name"`
	NASAJPLURL             string            `json:"nasa_jpl_url"`
	AbsoluteMagnitudeH     *float64          `json:"absolute_magnitude_h"`
	EstimatedDiameter      EstimatedDiameter `json:"estimated_diameter"`
	IsPotentiallyHazardous bool              `json:"is_potentially_hazardous_asteroid"`
	IsSentryObject         bool              `json:"is_sentry_object"`
	CloseApproachData      []RawApproach     `json:"close_approach_data"`
}

// EstimatedDiameter holds per-unit diameter estimates. Only kilometers
// are consumed.
type EstimatedDiameter struct {
	Kilometers *DiameterRange `json:"kilometers"`
}

// DiameterRange is a min/max diameter estimate.
type DiameterRange struct {
	Min *float64 `json:"estimated_diameter_min"`
	Max *float64 `json:"estimated_diameter_max"`
}

// RawApproach is a raw close-approach entry. Numeric values arrive as
// strings on the wire.
type RawApproach struct {
	CloseApproachDate     string      `json:"close_approach_date"`
	CloseApproachDateFull string      `json:"close_approach_date_full"`
	EpochDateCloseMs      int64       `json:"epoch_date_close_approach"`
	RelativeVelocity      RawVelocity `json:"relative_velocity"`
	MissDistance          RawDistance `json:"miss_distance"`
	OrbitingBody          string      `json:"orbiting_body"`
}

// RawVelocity holds string-encoded velocity readings.
type RawVelocity struct {
	KilometersPerSecond string `json:"kilometers_per_second"`
	KilometersPerHour   string `json:"kilometers_per_hour"`
}

// RawDistance holds string-encoded distance readings.
type RawDistance struct {
	Astronomical string `json:"astronomical"`
	Lunar        string `json:"lunar"`
	Kilometers   string `json:"kilometers"`
}
