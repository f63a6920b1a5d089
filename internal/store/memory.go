package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of the cache,
// preference and saved-location stores. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: cache key, value: latest entry for that key
	cache map[string]weather.CachedSnapshot

	lastLocation *weather.LastLocation
	settings     *weather.Settings

	// key: saved location ID
	locations map[string]weather.SavedLocation

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:     make(map[string]weather.CachedSnapshot),
		locations: make(map[string]weather.SavedLocation),
		now:       time.Now,
	}
}

// GetCached returns the entry for key or weather.ErrCacheMiss.
func (s *MemoryStore) GetCached(_ context.Context, key string) (weather.CachedSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[key]
	if !ok {
		return weather.CachedSnapshot{}, weather.ErrCacheMiss
	}
	entry.RawPayload = append([]byte(nil), entry.RawPayload...)
	return entry, nil
}

// PutCached replaces the entry under entry.Key.
func (s *MemoryStore) PutCached(_ context.Context, entry weather.CachedSnapshot) error {
	if entry.Key == "" {
		return fmt.Errorf("cache entry without key")
	}
	entry.RawPayload = append([]byte(nil), entry.RawPayload...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[entry.Key] = entry
	return nil
}

// PruneOlderThan drops entries cached before the cutoff.
func (s *MemoryStore) PruneOlderThan(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, entry := range s.cache {
		if entry.CachedAt.Before(before) {
			delete(s.cache, key)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) LastLocation(_ context.Context) (*weather.LastLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastLocation == nil {
		return nil, nil
	}
	loc := *s.lastLocation
	return &loc, nil
}

func (s *MemoryStore) SaveLastLocation(_ context.Context, loc weather.LastLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLocation = &loc
	return nil
}

// Settings returns the saved settings, or the defaults if none were saved.
func (s *MemoryStore) Settings(_ context.Context) (weather.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return weather.DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, settings weather.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

// ListSavedLocations returns the pager order: the current-location entry
// first, then by sort order and insertion time.
func (s *MemoryStore) ListSavedLocations(_ context.Context) ([]weather.SavedLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.SavedLocation, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	sortSavedLocations(out)
	return out, nil
}

// AddSavedLocation stores loc at the end of the pager with a fresh ID.
func (s *MemoryStore) AddSavedLocation(_ context.Context, loc weather.SavedLocation) (weather.SavedLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 0
	for _, existing := range s.locations {
		if !existing.IsCurrentLocation && existing.SortOrder >= next {
			next = existing.SortOrder + 1
		}
	}

	loc.ID = uuid.NewString()
	loc.SortOrder = next
	loc.IsCurrentLocation = false
	loc.AddedAt = s.now().UTC()
	s.locations[loc.ID] = loc
	return loc, nil
}

// UpsertCurrentLocation creates or moves the single current-location entry.
func (s *MemoryStore) UpsertCurrentLocation(_ context.Context, c weather.Coordinates, name string) (weather.SavedLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, loc := range s.locations {
		if !loc.IsCurrentLocation {
			continue
		}
		loc.Name = name
		loc.Latitude = c.Latitude
		loc.Longitude = c.Longitude
		s.locations[id] = loc
		return loc, nil
	}

	loc := weather.SavedLocation{
		ID:                uuid.NewString(),
		Name:              name,
		Latitude:          c.Latitude,
		Longitude:         c.Longitude,
		SortOrder:         weather.CurrentLocationSortOrder,
		IsCurrentLocation: true,
		AddedAt:           s.now().UTC(),
	}
	s.locations[loc.ID] = loc
	return loc, nil
}

// RemoveSavedLocation deletes id or returns weather.ErrNotFound.
func (s *MemoryStore) RemoveSavedLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return fmt.Errorf("saved location %q: %w", id, weather.ErrNotFound)
	}
	delete(s.locations, id)
	return nil
}

func sortSavedLocations(locs []weather.SavedLocation) {
	sort.SliceStable(locs, func(i, j int) bool {
		if locs[i].SortOrder != locs[j].SortOrder {
			return locs[i].SortOrder < locs[j].SortOrder
		}
		if !locs[i].AddedAt.Equal(locs[j].AddedAt) {
			return locs[i].AddedAt.Before(locs[j].AddedAt)
		}
		return locs[i].ID < locs[j].ID
	})
}
