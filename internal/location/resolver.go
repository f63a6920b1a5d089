package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	DefaultAttempts       = 3
	DefaultRetryDelay     = 1500 * time.Millisecond
	DefaultAttemptTimeout = 10 * time.Second
)

// Geolocator abstracts the device/network position source. A nil reading
// with a nil error means the attempt produced no fix.
type Geolocator interface {
	HasPermission() bool
	CurrentCoordinates(ctx context.Context) (*weather.Coordinates, error)
}

// Error is returned by Resolver.ResolveCurrent. Kind is either
// weather.ErrPermissionDenied or weather.ErrLocationUnavailable.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Config bounds the acquisition sequence.
type Config struct {
	Attempts       int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// DefaultConfig returns three attempts, 1.5s apart, 10s each.
func DefaultConfig() Config {
	return Config{
		Attempts:       DefaultAttempts,
		RetryDelay:     DefaultRetryDelay,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Resolver produces a best-effort current position without blocking
// indefinitely.
type Resolver struct {
	geo  Geolocator
	cfg  Config
	wait func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a Resolver. Non-positive config fields fall back to defaults.
func NewResolver(geo Geolocator, cfg Config) *Resolver {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	return &Resolver{geo: geo, cfg: cfg, wait: sleep}
}

// HasPermission reports whether location access is currently granted.
func (r *Resolver) HasPermission() bool {
	return r.geo.HasPermission()
}

// ResolveCurrent returns the current coordinates. Without permission it
// fails immediately; otherwise it makes up to cfg.Attempts attempts with
// cfg.RetryDelay between them and none after the last.
func (r *Resolver) ResolveCurrent(ctx context.Context) (weather.Coordinates, error) {
	if !r.geo.HasPermission() {
		return weather.Coordinates{}, &Error{Kind: weather.ErrPermissionDenied}
	}

	lastMsg := "unable to determine location"
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		coords, err := r.attempt(ctx)
		if err == nil && coords != nil {
			return *coords, nil
		}
		if ctx.Err() != nil {
			return weather.Coordinates{}, ctx.Err()
		}

		switch {
		case err != nil:
			lastMsg = err.Error()
		default:
			lastMsg = "no location fix"
		}
		log.Printf("DEBUG: location attempt %d/%d failed: %s", attempt, r.cfg.Attempts, lastMsg)

		if attempt < r.cfg.Attempts {
			if err := r.wait(ctx, r.cfg.RetryDelay); err != nil {
				return weather.Coordinates{}, err
			}
		}
	}

	return weather.Coordinates{}, &Error{Kind: weather.ErrLocationUnavailable, Message: lastMsg}
}

type fix struct {
	coords *weather.Coordinates
	err    error
}

func (r *Resolver) attempt(ctx context.Context) (*weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()

	// The geolocator may not honour ctx; a late reading is dropped.
	done := make(chan fix, 1)
	go func() {
		coords, err := r.geo.CurrentCoordinates(attemptCtx)
		done <- fix{coords: coords, err: err}
	}()

	var res fix
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		res = fix{err: attemptCtx.Err()}
	}

	coords, err := res.coords, res.err
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("location attempt timed out after %s", r.cfg.AttemptTimeout)
		}
		return nil, err
	}
	if coords != nil {
		if verr := coords.Validate(); verr != nil {
			return nil, verr
		}
	}
	return coords, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
