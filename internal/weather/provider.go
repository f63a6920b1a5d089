package weather

import (
	"context"
	"time"
)

// ForecastSource abstracts the primary forecast API (e.g. Open-Meteo).
type ForecastSource interface {
	Name() string
	FetchForecast(ctx context.Context, c Coordinates) (Forecast, error)
}

// AlertSource abstracts a severe-weather alert feed. Regions the feed does
// not cover must come back as an empty, successful result.
type AlertSource interface {
	Name() string
	FetchAlerts(ctx context.Context, c Coordinates) ([]Alert, error)
}

// AirQualitySource abstracts an air-quality feed.
type AirQualitySource interface {
	Name() string
	FetchAirQuality(ctx context.Context, c Coordinates) (AirQuality, error)
}

// ReverseGeocoder turns coordinates into a place name. A nil result with a
// nil error means nothing was found.
type ReverseGeocoder interface {
	ResolveName(ctx context.Context, c Coordinates) (*PlaceName, error)
}

// PlaceSearcher looks places up by free-text query.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, count int) ([]Place, error)
}

// CacheStore is the contract for the persistent forecast cache. Writes to
// the same key replace the previous row.
type CacheStore interface {
	GetCached(ctx context.Context, key string) (CachedSnapshot, error)
	PutCached(ctx context.Context, entry CachedSnapshot) error
	PruneOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// PreferenceStore persists the last-known location and unit settings.
// LastLocation returns nil when nothing has been saved yet.
type PreferenceStore interface {
	LastLocation(ctx context.Context) (*LastLocation, error)
	SaveLastLocation(ctx context.Context, loc LastLocation) error
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// SavedLocationStore persists the pager's saved locations.
type SavedLocationStore interface {
	ListSavedLocations(ctx context.Context) ([]SavedLocation, error)
	AddSavedLocation(ctx context.Context, loc SavedLocation) (SavedLocation, error)
	UpsertCurrentLocation(ctx context.Context, c Coordinates, name string) (SavedLocation, error)
	RemoveSavedLocation(ctx context.Context, id string) error
}
