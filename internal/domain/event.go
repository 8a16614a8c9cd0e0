package domain

import "time"

// KindSeismic is the event kind for earthquake records. It is currently the
// only kind the pipeline produces.
const KindSeismic = "earthquake"

// RawFeed is the USGS GeoJSON summary feed envelope.
type RawFeed struct {
	Features []RawFeature `json:"features"`
}

// RawFeature is one unprocessed feature from the feed.
type RawFeature struct {
	ID         string        `json:"id"`
	Properties RawProperties `json:"properties"`
}

// RawProperties holds the feature fields the pipeline consumes.
type RawProperties struct {
	Place string   `json:"place"`
	Mag   *float64 `json:"mag"`  // null while the event is under review
	Time  int64    `json:"time"` // origin time, epoch milliseconds
}

// Event is the canonical hazard record. Immutable once stored: the store
// never updates an existing id, so a record reflects the feed's first
// observation of that event.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"type"`
	Location   string    `json:"location"`
	Country    string    `json:"country"`
	Magnitude  *float64  `json:"magnitude"`
	OccurredAt time.Time `json:"time"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Subscription is a Web Push endpoint registration. The pipeline treats it as
// an opaque addressable sink; only the push sender reads its fields.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// SubscriptionKeys carries the client's encryption material.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}
