package providers

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// TestResilienceRetriesServerErrors verifies that 5xx responses are retried
// up to MaxRetries and then surfaced as a source failure.
func TestResilienceRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := jsonServer(t, http.StatusInternalServerError, `{"reason": "boom"}`, &hits)
	p := newTestOpenMeteo(srv)

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{Latitude: 1, Longitude: 1})
	if !errors.Is(err, errServerError) || !errors.Is(err, weather.ErrSourceUnavailable) {
		t.Fatalf("expected server error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != int32(fastBackoff.MaxRetries+1) {
		t.Fatalf("hits = %d, want %d", got, fastBackoff.MaxRetries+1)
	}
}

func TestResilienceDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := jsonServer(t, http.StatusForbidden, `{"reason": "no"}`, &hits)
	p := newTestOpenMeteo(srv)

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{Latitude: 1, Longitude: 1})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden || !common.HasAny(se.Body, "no") {
		t.Fatalf("expected 403 StatusError, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

func TestResilienceRetriesRateLimit(t *testing.T) {
	var hits int32
	srv := jsonServer(t, http.StatusTooManyRequests, `{}`, &hits)
	p := newTestOpenMeteo(srv)

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{Latitude: 1, Longitude: 1})
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestResilienceRejectsBadConfig(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{}`, nil)
	p := newTestOpenMeteo(srv)
	p.httpCfg.Backoff.InitialInterval = 0

	if _, err := p.FetchForecast(context.Background(), weather.Coordinates{}); !errors.Is(err, errInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}

	p = newTestOpenMeteo(srv)
	p.httpCfg.Client = nil
	if _, err := p.FetchForecast(context.Background(), weather.Coordinates{}); !errors.Is(err, errNoHTTPClient) {
		t.Fatalf("expected missing client error, got %v", err)
	}
}

func TestResilienceHonoursCancellation(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{}`, nil)
	p := newTestOpenMeteo(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.FetchForecast(ctx, weather.Coordinates{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
