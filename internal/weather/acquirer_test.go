package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	forecast Forecast
	err      error
	calls    int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchForecast(_ context.Context, _ Coordinates) (Forecast, error) {
	f.calls++
	return f.forecast, f.err
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]CachedSnapshot
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]CachedSnapshot)}
}

func (f *fakeCache) GetCached(_ context.Context, key string) (CachedSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return CachedSnapshot{}, f.getErr
	}
	e, ok := f.entries[key]
	if !ok {
		return CachedSnapshot{}, ErrCacheMiss
	}
	return e, nil
}

func (f *fakeCache) PutCached(_ context.Context, e CachedSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[e.Key] = e
	return nil
}

func (f *fakeCache) PruneOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeGeocoder struct {
	place *PlaceName
	err   error
	calls int
}

func (f *fakeGeocoder) ResolveName(_ context.Context, _ Coordinates) (*PlaceName, error) {
	f.calls++
	return f.place, f.err
}

type fakeSearcher struct {
	places []Place
	err    error
	query  string
}

func (f *fakeSearcher) SearchPlaces(_ context.Context, query string, _ int) ([]Place, error) {
	f.query = query
	return f.places, f.err
}

var (
	denver  = Coordinates{Latitude: 39.7392, Longitude: -104.9847}
	testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
)

func sampleForecast() Forecast {
	return Forecast{
		Latitude:  denver.Latitude,
		Longitude: denver.Longitude,
		Current:   CurrentConditions{TemperatureC: 21.5, Condition: ConditionClear},
		Hourly: []HourlyConditions{
			{Time: testNow, TemperatureC: 21},
			{Time: testNow.Add(time.Hour), TemperatureC: 22},
		},
		Daily: []DailyConditions{{Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), HighC: 24, LowC: 9}},
	}
}

func newTestAcquirer(src ForecastSource, cache CacheStore, geo ReverseGeocoder, search PlaceSearcher) *Acquirer {
	a := NewAcquirer(src, cache, geo, search)
	a.now = func() time.Time { return testNow }
	return a
}

func TestFetchFreshWritesThrough(t *testing.T) {
	src := &fakeSource{forecast: sampleForecast()}
	cache := newFakeCache()
	a := newTestAcquirer(src, cache, nil, nil)

	res, err := a.Fetch(context.Background(), denver, "Denver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsCachedFallback {
		t.Fatal("fresh fetch must not be tagged as cached fallback")
	}
	if res.Snapshot.Location.Name != "Denver" {
		t.Fatalf("name = %q, want Denver", res.Snapshot.Location.Name)
	}

	entry, ok := cache.entries[CacheKey(denver)]
	if !ok {
		t.Fatalf("expected cache entry under %s", CacheKey(denver))
	}
	if entry.PlaceName != "Denver" || !entry.CachedAt.Equal(testNow) {
		t.Fatalf("unexpected cache entry: %+v", entry)
	}
}

func TestFetchFallsBackToCache(t *testing.T) {
	cache := newFakeCache()
	seed := newTestAcquirer(&fakeSource{forecast: sampleForecast()}, cache, nil, nil)
	if _, err := seed.Fetch(context.Background(), denver, "Denver"); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	tests := []struct {
		name string
		age  time.Duration
	}{
		{name: "fresh entry", age: 5 * time.Minute},
		{name: "expired entry", age: 6 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{err: NewSourceError("fake", errors.New("connection refused"))}
			a := newTestAcquirer(src, cache, nil, nil)
			a.now = func() time.Time { return testNow.Add(tt.age) }

			res, err := a.Fetch(context.Background(), Coordinates{Latitude: 39.7401, Longitude: -104.9812}, "")
			if err != nil {
				t.Fatalf("expected cached fallback, got error %v", err)
			}
			if !res.IsCachedFallback {
				t.Fatal("expected IsCachedFallback")
			}
			if res.Snapshot.Location.Name != "Denver" {
				t.Fatalf("name = %q, want cached Denver", res.Snapshot.Location.Name)
			}
			if !res.Snapshot.FetchedAt.Equal(testNow) {
				t.Fatalf("FetchedAt = %s, want cache write time %s", res.Snapshot.FetchedAt, testNow)
			}
		})
	}
}

func TestFetchWithoutCacheReturnsSourceError(t *testing.T) {
	srcErr := NewSourceError("fake", errors.New("timeout"))
	a := newTestAcquirer(&fakeSource{err: srcErr}, newFakeCache(), nil, nil)

	_, err := a.Fetch(context.Background(), denver, "")
	if err != srcErr {
		t.Fatalf("expected the underlying source error, got %v", err)
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatal("source error should match ErrSourceUnavailable")
	}
}

func TestFetchIgnoresCacheWriteFailure(t *testing.T) {
	cache := newFakeCache()
	cache.putErr = errors.New("disk full")
	a := newTestAcquirer(&fakeSource{forecast: sampleForecast()}, cache, nil, nil)

	res, err := a.Fetch(context.Background(), denver, "Denver")
	if err != nil {
		t.Fatalf("cache write failure must not fail the fetch: %v", err)
	}
	if res.IsCachedFallback || cache.puts != 1 {
		t.Fatalf("unexpected result %+v (puts=%d)", res, cache.puts)
	}
}

func TestLoadCachedTreatsCorruptPayloadAsMiss(t *testing.T) {
	cache := newFakeCache()
	cache.entries[CacheKey(denver)] = CachedSnapshot{
		Key:        CacheKey(denver),
		RawPayload: []byte("{not json"),
		PlaceName:  "Denver",
		CachedAt:   testNow,
	}
	a := newTestAcquirer(&fakeSource{}, cache, nil, nil)

	if _, ok := a.LoadCached(context.Background(), denver); ok {
		t.Fatal("corrupt payload should be a miss")
	}
}

func TestLoadCachedTreatsStoreErrorAsMiss(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("database is locked")
	a := newTestAcquirer(&fakeSource{}, cache, nil, nil)

	if _, ok := a.LoadCached(context.Background(), denver); ok {
		t.Fatal("store error should be a miss")
	}
}

func TestResolveLocationOrder(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		geo      *fakeGeocoder
		search   *fakeSearcher
		want     string
	}{
		{
			name:     "explicit name wins",
			explicit: "Home",
			geo:      &fakeGeocoder{place: &PlaceName{Name: "Denver"}},
			search:   &fakeSearcher{places: []Place{{Name: "Aurora"}}},
			want:     "Home",
		},
		{
			name:   "reverse geocoder",
			geo:    &fakeGeocoder{place: &PlaceName{Name: "Denver", Region: "Colorado"}},
			search: &fakeSearcher{places: []Place{{Name: "Aurora"}}},
			want:   "Denver",
		},
		{
			name:   "geocoder error falls through to search",
			geo:    &fakeGeocoder{err: errors.New("quota exceeded")},
			search: &fakeSearcher{places: []Place{{Name: "Aurora"}}},
			want:   "Aurora",
		},
		{
			name:   "blank geocoder name falls through to search",
			geo:    &fakeGeocoder{place: &PlaceName{Name: "  "}},
			search: &fakeSearcher{places: []Place{{Name: "Aurora"}}},
			want:   "Aurora",
		},
		{
			name:   "nothing resolves",
			geo:    &fakeGeocoder{},
			search: &fakeSearcher{err: errors.New("offline")},
			want:   UnknownLocationName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAcquirer(&fakeSource{forecast: sampleForecast()}, newFakeCache(), tt.geo, tt.search)
			res, err := a.Fetch(context.Background(), denver, tt.explicit)
			if err != nil {
				t.Fatalf("naming must never fail the fetch: %v", err)
			}
			if got := res.Snapshot.Location.Name; got != tt.want {
				t.Fatalf("name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveLocationWithoutHelpers(t *testing.T) {
	a := newTestAcquirer(&fakeSource{forecast: sampleForecast()}, newFakeCache(), nil, nil)

	res, err := a.Fetch(context.Background(), denver, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Snapshot.Location.Name != UnknownLocationName {
		t.Fatalf("name = %q, want %q", res.Snapshot.Location.Name, UnknownLocationName)
	}
}
