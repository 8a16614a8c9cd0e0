// Package domain models earthquake events from the USGS real-time feeds.
//
// # Data Source
//
// Events originate from the USGS earthquake summary feeds, available at
// https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/. The service
// polls the GeoJSON variant on a fixed interval; each feature carries a
// feed-assigned id that is stable across polls, which makes it the
// deduplication key for the whole pipeline.
//
// # USGS Feed Conventions
//
// Place format:
//
//	"<distance and direction> of <place>, <qualifier>"  →  e.g. "5km SW of Reno, NV"
//	The trailing comma-separated qualifier is a U.S. state code for domestic
//	events and usually a country name otherwise. Some places carry no
//	qualifier at all (e.g. "South Sandwich Islands region").
//
// Time format:
//
//	properties.time is the event origin time in epoch milliseconds, assigned
//	by the upstream network. It is the event time, not the ingestion time.
//
// Magnitude:
//
//	properties.mag may be null while an event is still being reviewed, so it
//	stays a pointer end to end rather than collapsing to zero.
//
// # Country Resolution
//
// [ResolveCountry] derives a display country from the last comma-separated
// segment of the place string: a segment matching one of the 50 two-letter
// state codes becomes "United States", any other segment is kept verbatim,
// and a place with no comma resolves to "Unknown". This is a lossy,
// feed-format-dependent approximation — not geocoding. Places with more than
// two segments still use only the last one.
package domain
