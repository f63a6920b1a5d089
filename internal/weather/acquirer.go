package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// UnknownLocationName is used when no naming strategy produced a name.
const UnknownLocationName = "Unknown Location"

// Result is the outcome of a successful Acquirer.Fetch.
type Result struct {
	Snapshot ForecastSnapshot `json:"snapshot"`
	// IsCachedFallback is set when the live fetch failed and the snapshot
	// came from the cache instead.
	IsCachedFallback bool `json:"isCachedFallback"`
}

// Acquirer fetches the forecast for one coordinate pair, keeps the cache
// warm, and falls back to the cache when the source fails.
type Acquirer struct {
	source   ForecastSource
	cache    CacheStore
	geocoder ReverseGeocoder
	searcher PlaceSearcher
	now      func() time.Time
}

// NewAcquirer creates a new Acquirer. geocoder and searcher may be nil.
func NewAcquirer(source ForecastSource, cache CacheStore, geocoder ReverseGeocoder, searcher PlaceSearcher) *Acquirer {
	return &Acquirer{
		source:   source,
		cache:    cache,
		geocoder: geocoder,
		searcher: searcher,
		now:      time.Now,
	}
}

// Fetch tries the forecast source first. On success the snapshot is written
// through to the cache; a cache write failure is logged and ignored. On
// failure a cached snapshot, expired or not, is returned with
// IsCachedFallback set; without one the source error is returned unchanged.
func (a *Acquirer) Fetch(ctx context.Context, c Coordinates, explicitName string) (Result, error) {
	key := CacheKey(c)

	forecast, err := a.source.FetchForecast(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, err
		}
		log.Printf("WARN: %s fetch failed for %s: %v; trying cache", a.source.Name(), key, err)
		if snap, ok := a.LoadCached(ctx, c); ok {
			return Result{Snapshot: snap, IsCachedFallback: true}, nil
		}
		return Result{}, err
	}

	loc := a.resolveLocation(ctx, c, explicitName)
	now := a.now()
	snap := NewSnapshot(forecast, loc, now)

	if err := a.writeThrough(ctx, key, forecast, loc, now); err != nil {
		log.Printf("WARN: cache write failed for %s: %v", key, err)
	}

	return Result{Snapshot: snap}, nil
}

// LoadCached returns the cached snapshot for c. Store errors and corrupt
// payloads are treated as a miss.
func (a *Acquirer) LoadCached(ctx context.Context, c Coordinates) (ForecastSnapshot, bool) {
	key := CacheKey(c)

	entry, err := a.cache.GetCached(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("ERROR: cache read failed for %s: %v", key, err)
		}
		return ForecastSnapshot{}, false
	}

	var forecast Forecast
	if err := json.Unmarshal(entry.RawPayload, &forecast); err != nil {
		log.Printf("ERROR: %v: cached payload for %s: %v", ErrDecode, key, err)
		return ForecastSnapshot{}, false
	}

	now := a.now()
	if entry.IsExpired(now) {
		log.Printf("DEBUG: serving expired cache entry for %s (cached %s ago)", key, now.Sub(entry.CachedAt).Round(time.Second))
	}

	snap := NewSnapshot(forecast, entry.Location(), now)
	snap.FetchedAt = entry.CachedAt
	return snap, true
}

func (a *Acquirer) writeThrough(ctx context.Context, key string, f Forecast, loc LocationInfo, now time.Time) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return a.cache.PutCached(ctx, CachedSnapshot{
		Key:        key,
		RawPayload: payload,
		PlaceName:  loc.Name,
		Region:     loc.Region,
		Country:    loc.Country,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		CachedAt:   now,
	})
}

// resolveLocation never fails: explicit name, then reverse geocoding, then
// the nearest search hit, then UnknownLocationName.
func (a *Acquirer) resolveLocation(ctx context.Context, c Coordinates, explicitName string) LocationInfo {
	loc := LocationInfo{Latitude: c.Latitude, Longitude: c.Longitude}

	if explicitName != "" {
		loc.Name = explicitName
		return loc
	}

	if a.geocoder != nil {
		place, err := a.geocoder.ResolveName(ctx, c)
		if err != nil {
			log.Printf("DEBUG: reverse geocode failed for %s: %v", c, err)
		} else if place != nil && strings.TrimSpace(place.Name) != "" {
			loc.Name = place.Name
			loc.Region = place.Region
			loc.Country = place.Country
			return loc
		}
	}

	if a.searcher != nil {
		query := fmt.Sprintf("%v,%v", c.Latitude, c.Longitude)
		places, err := a.searcher.SearchPlaces(ctx, query, 1)
		if err != nil {
			log.Printf("DEBUG: nearest place lookup failed for %s: %v", c, err)
		} else if len(places) > 0 && places[0].Name != "" {
			loc.Name = places[0].Name
			loc.Region = places[0].Region
			loc.Country = places[0].Country
			return loc
		}
	}

	loc.Name = UnknownLocationName
	return loc
}
