package radar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func newTestSource(t *testing.T, status int, body string) *RainViewerSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	src := NewRainViewerSource(resty.New())
	src.url = srv.URL
	return src
}

func TestRainViewerManifest(t *testing.T) {
	body := `{
		"host": "https://tiles.example.com/",
		"radar": {
			"past": [{"time": 1700000000, "path": "/v2/radar/aaa"}, {"time": 1700000600, "path": "/v2/radar/bbb"}],
			"nowcast": [{"time": 1700001200, "path": "/v2/radar/ccc"}]
		}
	}`
	src := newTestSource(t, http.StatusOK, body)

	fs, err := src.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest: %v", err)
	}
	if len(fs.Past) != 2 || len(fs.Forecast) != 1 {
		t.Fatalf("frames = %d past, %d forecast", len(fs.Past), len(fs.Forecast))
	}
	want := "https://tiles.example.com/v2/radar/bbb/512/{z}/{x}/{y}/4/1_1.png"
	if fs.Past[1].TileURL != want || fs.Past[1].Timestamp != 1700000600 {
		t.Fatalf("frame = %+v, want tile %s", fs.Past[1], want)
	}
	if !fs.IsForecast(2) || fs.IsForecast(1) {
		t.Fatal("forecast boundary misplaced")
	}
}

func TestRainViewerManifestDefaultHost(t *testing.T) {
	src := newTestSource(t, http.StatusOK, `{"radar": {"past": [{"time": 1, "path": "/p"}]}}`)

	fs, err := src.FetchManifest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := fs.Past[0].TileURL; got != rainViewerTileHost+"/p"+tileSuffix {
		t.Fatalf("tile url = %s", got)
	}
}

func TestRainViewerManifestErrors(t *testing.T) {
	src := newTestSource(t, http.StatusOK, `{"host": "https://tiles.example.com"}`)
	if _, err := src.FetchManifest(context.Background()); !errors.Is(err, ErrNoRadarData) {
		t.Fatalf("missing radar section: got %v", err)
	}

	src = newTestSource(t, http.StatusBadGateway, `{}`)
	if _, err := src.FetchManifest(context.Background()); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestResolveCenter(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewMemoryStore()

	if got := ResolveCenter(ctx, prefs, 0, 0); got != DefaultCenter {
		t.Fatalf("no last location: %v, want %v", got, DefaultCenter)
	}

	denver := weather.Coordinates{Latitude: 39.7, Longitude: -104.9}
	if err := prefs.SaveLastLocation(ctx, weather.LastLocation{Coordinates: denver, Name: "Denver"}); err != nil {
		t.Fatal(err)
	}
	if got := ResolveCenter(ctx, prefs, 0, 0); got != denver {
		t.Fatalf("last location: %v, want %v", got, denver)
	}

	if got := ResolveCenter(ctx, prefs, 51.5, -0.12); got.Latitude != 51.5 || got.Longitude != -0.12 {
		t.Fatalf("explicit centre ignored: %v", got)
	}
}
