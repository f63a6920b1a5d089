package providers

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const defaultIPGeoURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,regionName,country"

// IPGeolocator approximates the current position from the server's public
// IP address. Access is gated by a permission flag the user can toggle.
type IPGeolocator struct {
	client  *resty.Client
	url     string
	allowed atomic.Bool
}

// NewIPGeolocator creates a geolocator. An empty url uses ip-api.com.
func NewIPGeolocator(client *resty.Client, url string, permitted bool) *IPGeolocator {
	if url == "" {
		url = defaultIPGeoURL
	}
	g := &IPGeolocator{client: client, url: url}
	g.allowed.Store(permitted)
	return g
}

// HasPermission reports whether location access is granted.
func (g *IPGeolocator) HasPermission() bool {
	return g.allowed.Load()
}

// SetPermission grants or revokes location access.
func (g *IPGeolocator) SetPermission(granted bool) {
	g.allowed.Store(granted)
}

type ipGeoResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// CurrentCoordinates returns nil, nil when the lookup produced no fix.
func (g *IPGeolocator) CurrentCoordinates(ctx context.Context) (*weather.Coordinates, error) {
	var out ipGeoResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(g.url)
	if err != nil {
		return nil, fmt.Errorf("ip geolocation request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ip geolocation returned status %d", resp.StatusCode())
	}
	if out.Status != "" && out.Status != "success" {
		return nil, fmt.Errorf("ip geolocation failed: %s", out.Message)
	}
	if out.Lat == nil || out.Lon == nil {
		return nil, nil
	}
	return &weather.Coordinates{Latitude: *out.Lat, Longitude: *out.Lon}, nil
}
