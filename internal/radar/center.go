package radar

import (
	"context"
	"log"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultCenter is the geographic centre of the contiguous US.
var DefaultCenter = weather.Coordinates{Latitude: 39.8, Longitude: -98.5}

// ResolveCenter picks the map centre. A (0,0) request means "no explicit
// position" and falls back to the last known location, then DefaultCenter.
func ResolveCenter(ctx context.Context, prefs weather.PreferenceStore, lat, lon float64) weather.Coordinates {
	if lat != 0 || lon != 0 {
		return weather.Coordinates{Latitude: lat, Longitude: lon}
	}
	last, err := prefs.LastLocation(ctx)
	if err != nil {
		log.Printf("WARN: radar centre: reading last location failed: %v", err)
		return DefaultCenter
	}
	if last == nil {
		return DefaultCenter
	}
	return last.Coordinates
}
