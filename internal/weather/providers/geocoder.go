package providers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/kelvins/geocoder"
)

// geocoderKeyMu guards the package-level key of the geocoder library.
var geocoderKeyMu sync.Mutex

const defaultGeocoderTimeout = 10 * time.Second

// GoogleReverseGeocoder names coordinates through the Google Geocoding API.
// Without an API key it resolves nothing, leaving naming to the next strategy.
type GoogleReverseGeocoder struct {
	apiKey  string
	timeout time.Duration
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleReverseGeocoder bounds every lookup by timeout, since the library
// client has none of its own. A non-positive timeout means 10s.
func NewGoogleReverseGeocoder(apiKey string, timeout time.Duration) *GoogleReverseGeocoder {
	if timeout <= 0 {
		timeout = defaultGeocoderTimeout
	}
	return &GoogleReverseGeocoder{apiKey: apiKey, timeout: timeout, reverse: reverseWithKey(apiKey)}
}

func reverseWithKey(apiKey string) func(geocoder.Location) ([]geocoder.Address, error) {
	return func(loc geocoder.Location) ([]geocoder.Address, error) {
		geocoderKeyMu.Lock()
		defer geocoderKeyMu.Unlock()
		geocoder.ApiKey = apiKey
		return geocoder.GeocodingReverse(loc)
	}
}

// ResolveName returns the first usable address for c, or nil if none.
func (g *GoogleReverseGeocoder) ResolveName(ctx context.Context, c weather.Coordinates) (*weather.PlaceName, error) {
	if g.apiKey == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: c.Latitude, Longitude: c.Longitude})
		done <- result{addrs, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, weather.NewSourceError("geocoder", r.err)
		}
		return placeFromAddresses(r.addrs), nil
	}
}

func placeFromAddresses(addrs []geocoder.Address) *weather.PlaceName {
	for _, a := range addrs {
		name := firstNonEmpty(a.City, a.District, a.County, a.Neighborhood)
		if name == "" {
			continue
		}
		return &weather.PlaceName{
			Name:    name,
			Region:  strings.TrimSpace(a.State),
			Country: strings.TrimSpace(a.Country),
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
