package domain

import (
	"errors"
	"strings"
	"time"
)

// Country labels produced by ResolveCountry.
const (
	CountryUnknown      = "Unknown"
	CountryUnitedStates = "United States"
)

// Normalization failures. Callers skip and log the offending feature rather
// than aborting the cycle.
var (
	ErrMissingID   = errors.New("feature has no id")
	ErrMissingTime = errors.New("feature has no event time")
)

// usStates is the set of 50 two-letter U.S. state codes used by the country
// heuristic. DC and the territories are deliberately absent; their events
// keep the raw qualifier.
var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {},
	"IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {}, "MA": {},
	"MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {},
	"NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {},
	"OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {}, "TN": {},
	"TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {},
	"WY": {},
}

// NormalizeFeature turns one raw feed feature into the canonical Event.
// It fails only on features missing the fields the pipeline cannot work
// without: the id (dedup key) and the origin time (retention key).
func NormalizeFeature(raw RawFeature) (Event, error) {
	if raw.ID == "" {
		return Event{}, ErrMissingID
	}
	if raw.Properties.Time == 0 {
		return Event{}, ErrMissingTime
	}

	return Event{
		ID:         raw.ID,
		Kind:       KindSeismic,
		Location:   raw.Properties.Place,
		Country:    ResolveCountry(raw.Properties.Place),
		Magnitude:  raw.Properties.Mag,
		OccurredAt: time.UnixMilli(raw.Properties.Time).UTC(),
		IngestedAt: clock.Now().UTC(),
	}, nil
}

// ResolveCountry derives a display country from the trailing comma-separated
// segment of a place string. See the package documentation for the exact
// heuristic and its known limitations.
func ResolveCountry(place string) string {
	parts := strings.Split(place, ",")
	if len(parts) < 2 {
		return CountryUnknown
	}

	candidate := strings.TrimSpace(parts[len(parts)-1])
	if _, ok := usStates[strings.ToUpper(candidate)]; ok {
		return CountryUnitedStates
	}
	return candidate
}
