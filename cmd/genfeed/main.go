// Command genfeed generates a synthetic USGS-shaped GeoJSON feed fixture.
// It uses the actual domain package with a fixed clock so fixtures stay
// reproducible and normalize the same way real feed pages do.
//
// Usage:
//
//	go run ./cmd/genfeed -out testdata/feed_sample.json -count 20
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

var baseDate = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

// places cycles through the location shapes the normalizer has to handle:
// US state codes, foreign countries, multi-segment places, and no comma at all.
var places = []string{
	"10km N of Ridgecrest, CA",
	"5km SW of Anchorage, AK",
	"Near the coast of Honshu, Japan",
	"South Sandwich Islands region",
	"12km E of Pahala, Hawaii, HI",
	"offshore Valparaiso, Chile",
	"central Mid-Atlantic Ridge",
	"3km NNW of San Juan, PR",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the GeoJSON fixture")
	count := flag.Int("count", 20, "number of features to generate")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fixed clock for reproducible IngestedAt when fixtures are normalized.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.Add(6 * time.Hour)))
	defer domain.SetClock(nil)

	feed := buildFeed(*count)

	// Normalize every feature once so a fixture that would be rejected by
	// the pipeline never ships.
	for _, feature := range feed.Features {
		if _, err := domain.NormalizeFeature(feature); err != nil {
			return fmt.Errorf("generated feature %s does not normalize: %w", feature.ID, err)
		}
	}

	if err := writeJSON(*out, feed); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d features: %s", len(feed.Features), *out)
	return nil
}

func buildFeed(count int) domain.RawFeed {
	features := make([]domain.RawFeature, 0, count)
	for i := 0; i < count; i++ {
		mag := 1.5 + float64(i%60)/10
		feature := domain.RawFeature{
			ID: fmt.Sprintf("gen%08d", i),
			Properties: domain.RawProperties{
				Place: places[i%len(places)],
				Mag:   &mag,
				Time:  baseDate.Add(time.Duration(i) * 3 * time.Minute).UnixMilli(),
			},
		}
		// Every ninth event is still under review and has no magnitude yet.
		if i%9 == 8 {
			feature.Properties.Mag = nil
		}
		features = append(features, feature)
	}
	return domain.RawFeed{Features: features}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
