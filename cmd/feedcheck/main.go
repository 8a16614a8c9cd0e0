// Command feedcheck fetches a USGS GeoJSON feed (or reads one from disk) and
// reports how it normalizes: feature counts, malformed records, the country
// distribution, and magnitude coverage. Useful for eyeballing a new feed URL
// before pointing the service at it.
//
// Usage:
//
//	go run ./cmd/feedcheck -url https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson
//	go run ./cmd/feedcheck -file testdata/feed_sample.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/quake-alert-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

func main() {
	url := flag.String("url", "", "feed URL to fetch")
	file := flag.String("file", "", "feed file to read instead of fetching")
	timeout := flag.Duration("timeout", 10*time.Second, "fetch timeout")
	flag.Parse()

	if (*url == "") == (*file == "") {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "exactly one of -url or -file is required")
		os.Exit(1)
	}

	features, err := loadFeatures(*url, *file, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	report(features)
}

func loadFeatures(url, file string, timeout time.Duration) ([]domain.RawFeature, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var feed domain.RawFeed
		if err := json.Unmarshal(data, &feed); err != nil {
			return nil, fmt.Errorf("decode feed: %w", err)
		}
		return feed.Features, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client := usgs.NewClient(url, timeout, slog.Default())
	return client.Fetch(ctx)
}

func report(features []domain.RawFeature) {
	countries := map[string]int{}
	malformed := 0
	withMagnitude := 0
	var minMag, maxMag float64
	first := true

	for _, feature := range features {
		event, err := domain.NormalizeFeature(feature)
		if err != nil {
			malformed++
			fmt.Printf("  malformed %q: %v\n", feature.ID, err)
			continue
		}
		countries[event.Country]++
		if event.Magnitude != nil {
			withMagnitude++
			if first || *event.Magnitude < minMag {
				minMag = *event.Magnitude
			}
			if first || *event.Magnitude > maxMag {
				maxMag = *event.Magnitude
			}
			first = false
		}
	}

	fmt.Println("=== Feed Normalization Report ===")
	fmt.Printf("Features:       %d\n", len(features))
	fmt.Printf("Malformed:      %d\n", malformed)
	fmt.Printf("With magnitude: %d\n", withMagnitude)
	if withMagnitude > 0 {
		fmt.Printf("Magnitude span: %g to %g\n", minMag, maxMag)
	}

	names := make([]string, 0, len(countries))
	for name := range countries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if countries[names[i]] != countries[names[j]] {
			return countries[names[i]] > countries[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Println("\nBy country:")
	for _, name := range names {
		fmt.Printf("  %-24s %d\n", name, countries[name])
	}
}
