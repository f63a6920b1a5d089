package radar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	rainViewerManifestURL = "https://api.rainviewer.com/public/weather-maps.json"
	rainViewerTileHost    = "https://tilecache.rainviewer.com"

	// tileSuffix selects 512px tiles, colour scheme 4, smoothing and snow.
	tileSuffix = "/512/{z}/{x}/{y}/4/1_1.png"
)

// ErrNoRadarData is returned when the manifest carries no radar section.
var ErrNoRadarData = errors.New("no radar data available")

// ManifestSource supplies the current radar frame index.
type ManifestSource interface {
	FetchManifest(ctx context.Context) (FrameSet, error)
}

// RainViewerSource reads the public RainViewer weather-maps manifest.
type RainViewerSource struct {
	client *resty.Client
	url    string
}

func NewRainViewerSource(client *resty.Client) *RainViewerSource {
	return &RainViewerSource{client: client, url: rainViewerManifestURL}
}

type rainViewerManifest struct {
	Host  string `json:"host"`
	Radar *struct {
		Past    []rainViewerFrame `json:"past"`
		Nowcast []rainViewerFrame `json:"nowcast"`
	} `json:"radar"`
}

type rainViewerFrame struct {
	Time int64  `json:"time"`
	Path string `json:"path"`
}

func (s *RainViewerSource) FetchManifest(ctx context.Context) (FrameSet, error) {
	var manifest rainViewerManifest
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&manifest).
		Get(s.url)
	if err != nil {
		return FrameSet{}, fmt.Errorf("failed to fetch radar manifest: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return FrameSet{}, fmt.Errorf("radar manifest returned status %d", resp.StatusCode())
	}
	if manifest.Radar == nil {
		return FrameSet{}, ErrNoRadarData
	}

	host := strings.TrimRight(manifest.Host, "/")
	if host == "" {
		host = rainViewerTileHost
	}
	return FrameSet{
		Past:     toFrames(host, manifest.Radar.Past),
		Forecast: toFrames(host, manifest.Radar.Nowcast),
	}, nil
}

func toFrames(host string, in []rainViewerFrame) []Frame {
	out := make([]Frame, 0, len(in))
	for _, f := range in {
		out = append(out, Frame{Timestamp: f.Time, TileURL: host + f.Path + tileSuffix})
	}
	return out
}
