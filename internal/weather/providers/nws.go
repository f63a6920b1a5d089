package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
)

const (
	nwsAlertsURL        = "https://api.weather.gov/alerts/active"
	defaultNWSUserAgent = "weather-dashboard (github.com/i474232898/weather-dashboard)"
	defaultNWSSender    = "National Weather Service"
	unknownCertainty    = "Unknown"
)

// NWSAlertProvider reads active alerts from the US National Weather Service.
// Points outside NWS coverage yield no alerts rather than an error.
type NWSAlertProvider struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

// NewNWSAlertProvider creates the provider. NWS rejects requests without a
// User-Agent, so an empty one falls back to a default.
func NewNWSAlertProvider(client *http.Client, userAgent string) *NWSAlertProvider {
	if userAgent == "" {
		userAgent = defaultNWSUserAgent
	}
	return &NWSAlertProvider{
		name:      "nws",
		baseURL:   nwsAlertsURL,
		userAgent: userAgent,
		httpCfg:   defaultHTTPConfig(client),
		circuit:   newCircuitBreaker("nws"),
	}
}

func (p *NWSAlertProvider) Name() string {
	return p.name
}

type nwsAlertResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			AlertID     string `json:"@id"`
			ID          string `json:"id"`
			AreaDesc    string `json:"areaDesc"`
			Effective   string `json:"effective"`
			Onset       string `json:"onset"`
			Expires     string `json:"expires"`
			Ends        string `json:"ends"`
			Severity    string `json:"severity"`
			Certainty   string `json:"certainty"`
			Urgency     string `json:"urgency"`
			Event       string `json:"event"`
			SenderName  string `json:"senderName"`
			Headline    string `json:"headline"`
			Description string `json:"description"`
			Instruction string `json:"instruction"`
			Response    string `json:"response"`
		} `json:"properties"`
	} `json:"features"`
}

// FetchAlerts returns active alerts for c, most severe first.
func (p *NWSAlertProvider) FetchAlerts(ctx context.Context, c weather.Coordinates) ([]weather.Alert, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("point", fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude))
		values.Set("status", "actual")
		values.Set("message_type", "alert,update")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		req.Header.Set("Accept", "application/geo+json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		if isNotCovered(err) {
			log.Printf("DEBUG: %s: %v for %s", p.name, weather.ErrNotCovered, c)
			return []weather.Alert{}, nil
		}
		return nil, weather.NewSourceError(p.name, err)
	}
	defer resp.Body.Close()

	var payload nwsAlertResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, weather.NewSourceError(p.name, fmt.Errorf("%w: %v", weather.ErrDecode, err))
	}

	alerts := make([]weather.Alert, 0, len(payload.Features))
	for _, f := range payload.Features {
		props := f.Properties
		// Features without an event name carry nothing to show.
		if props.Event == "" {
			continue
		}
		alerts = append(alerts, weather.Alert{
			ID:              firstNonEmpty(f.ID, props.AlertID, props.ID),
			Event:           props.Event,
			Headline:        firstNonEmpty(props.Headline, props.Event),
			Description:     props.Description,
			Instruction:     props.Instruction,
			Severity:        weather.ParseSeverity(props.Severity),
			Urgency:         weather.ParseUrgency(props.Urgency),
			Certainty:       firstNonEmpty(props.Certainty, unknownCertainty),
			SenderName:      firstNonEmpty(props.SenderName, defaultNWSSender),
			AreaDescription: props.AreaDesc,
			Effective:       firstNonEmpty(props.Effective, props.Onset),
			Expires:         firstNonEmpty(props.Expires, props.Ends),
			Response:        props.Response,
		})
	}
	weather.SortAlerts(alerts)
	return alerts, nil
}

// isNotCovered reports whether NWS rejected the point as outside its area.
func isNotCovered(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusNotFound, http.StatusBadRequest:
		return true
	}
	return common.HasAny(se.Body, "InvalidPoint", "not covered", "Not Found")
}
