package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type reading struct {
	coords *weather.Coordinates
	err    error
}

type fakeGeolocator struct {
	permitted bool
	readings  []reading
	calls     int
}

func (f *fakeGeolocator) HasPermission() bool { return f.permitted }

func (f *fakeGeolocator) CurrentCoordinates(_ context.Context) (*weather.Coordinates, error) {
	f.calls++
	if len(f.readings) == 0 {
		return nil, nil
	}
	r := f.readings[0]
	f.readings = f.readings[1:]
	return r.coords, r.err
}

func newTestResolver(geo Geolocator) (*Resolver, *[]time.Duration) {
	var waits []time.Duration
	r := NewResolver(geo, DefaultConfig())
	r.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func TestResolveCurrentWithoutPermission(t *testing.T) {
	geo := &fakeGeolocator{permitted: false}
	r, waits := newTestResolver(geo)

	_, err := r.ResolveCurrent(context.Background())

	if !errors.Is(err, weather.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if geo.calls != 0 || len(*waits) != 0 {
		t.Fatalf("no attempts expected, got %d calls and %d waits", geo.calls, len(*waits))
	}
}

func TestResolveCurrentExhaustsAttempts(t *testing.T) {
	geo := &fakeGeolocator{
		permitted: true,
		readings: []reading{
			{err: errors.New("gps cold start")},
			{},
			{err: errors.New("gps signal lost")},
		},
	}
	r, waits := newTestResolver(geo)

	_, err := r.ResolveCurrent(context.Background())

	if !errors.Is(err, weather.ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	var locErr *Error
	if !errors.As(err, &locErr) || locErr.Message != "gps signal lost" {
		t.Fatalf("expected last attempt's message, got %v", err)
	}
	if geo.calls != 3 {
		t.Fatalf("attempts = %d, want 3", geo.calls)
	}
	want := []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}
	if len(*waits) != len(want) || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
}

func TestResolveCurrentShortCircuitsOnSuccess(t *testing.T) {
	fix := &weather.Coordinates{Latitude: 39.7, Longitude: -104.9}
	geo := &fakeGeolocator{
		permitted: true,
		readings: []reading{
			{},
			{coords: fix},
			{err: errors.New("should not be reached")},
		},
	}
	r, waits := newTestResolver(geo)

	got, err := r.ResolveCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != *fix {
		t.Fatalf("coords = %v, want %v", got, *fix)
	}
	if geo.calls != 2 || len(*waits) != 1 {
		t.Fatalf("calls = %d, waits = %d; want 2 and 1", geo.calls, len(*waits))
	}
}

func TestResolveCurrentRejectsInvalidFix(t *testing.T) {
	geo := &fakeGeolocator{
		permitted: true,
		readings: []reading{
			{coords: &weather.Coordinates{Latitude: 123}},
			{coords: &weather.Coordinates{Latitude: 10, Longitude: 20}},
		},
	}
	r, _ := newTestResolver(geo)

	got, err := r.ResolveCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Latitude != 10 || geo.calls != 2 {
		t.Fatalf("expected second reading after invalid first, got %v after %d calls", got, geo.calls)
	}
}

func TestResolveCurrentStopsOnCancel(t *testing.T) {
	geo := &fakeGeolocator{permitted: true}
	r, _ := newTestResolver(geo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveCurrent(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if geo.calls != 0 {
		t.Fatalf("attempts = %d, want none after cancel", geo.calls)
	}
}

func TestAttemptTimeout(t *testing.T) {
	geo := &blockingGeolocator{}
	r := NewResolver(geo, Config{Attempts: 2, RetryDelay: 0, AttemptTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := r.ResolveCurrent(context.Background())

	if !errors.Is(err, weather.ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("attempt timeout not enforced, took %s", elapsed)
	}
}

// TestAttemptTimeoutIgnoredContext verifies that the per-attempt bound holds
// even when the geolocator never looks at its context.
func TestAttemptTimeoutIgnoredContext(t *testing.T) {
	geo := &stuckGeolocator{delay: 500 * time.Millisecond}
	r := NewResolver(geo, Config{Attempts: 3, RetryDelay: 0, AttemptTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := r.ResolveCurrent(context.Background())
	elapsed := time.Since(start)

	var locErr *Error
	if !errors.As(err, &locErr) || !errors.Is(err, weather.ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	if locErr.Message != "location attempt timed out after 20ms" {
		t.Fatalf("message = %q", locErr.Message)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("three 20ms attempts took %s", elapsed)
	}
}

type stuckGeolocator struct {
	delay time.Duration
}

func (stuckGeolocator) HasPermission() bool { return true }

func (g stuckGeolocator) CurrentCoordinates(_ context.Context) (*weather.Coordinates, error) {
	time.Sleep(g.delay)
	return &weather.Coordinates{Latitude: 1, Longitude: 1}, nil
}

type blockingGeolocator struct{}

func (blockingGeolocator) HasPermission() bool { return true }

func (blockingGeolocator) CurrentCoordinates(ctx context.Context) (*weather.Coordinates, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
