package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
)

const (
	openMeteoForecastURL  = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	openMeteoCurrentParams = "temperature_2m,relative_humidity_2m,apparent_temperature," +
		"is_day,precipitation,weather_code,cloud_cover,pressure_msl,surface_pressure," +
		"wind_speed_10m,wind_direction_10m,wind_gusts_10m,uv_index,visibility,dew_point_2m"
	openMeteoHourlyParams = "temperature_2m,relative_humidity_2m,apparent_temperature," +
		"precipitation_probability,precipitation,weather_code,cloud_cover,visibility," +
		"wind_speed_10m,wind_direction_10m,uv_index,is_day"
	openMeteoDailyParams = "weather_code,temperature_2m_max,temperature_2m_min," +
		"sunrise,sunset,uv_index_max,precipitation_sum,precipitation_probability_max," +
		"wind_speed_10m_max,wind_direction_10m_dominant"

	// openMeteoTimeLayout is the local ISO layout Open-Meteo uses with timezone=auto.
	openMeteoTimeLayout = "2006-01-02T15:04"
	openMeteoDateLayout = "2006-01-02"
)

// OpenMeteoProvider is the forecast source and place searcher backed by
// Open-Meteo. Neither API needs a key.
type OpenMeteoProvider struct {
	name         string
	baseURL      string
	geocodingURL string
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:         "openmeteo",
		baseURL:      openMeteoForecastURL,
		geocodingURL: openMeteoGeocodingURL,
		httpCfg:      defaultHTTPConfig(client),
		circuit:      newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoResponse struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Timezone         string            `json:"timezone"`
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Current          *openMeteoCurrent `json:"current"`
	Hourly           struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		RelativeHumidity         []*int     `json:"relative_humidity_2m"`
		ApparentTemperature      []*float64 `json:"apparent_temperature"`
		PrecipitationProbability []*int     `json:"precipitation_probability"`
		Precipitation            []*float64 `json:"precipitation"`
		WeatherCode              []*int     `json:"weather_code"`
		CloudCover               []*int     `json:"cloud_cover"`
		Visibility               []*float64 `json:"visibility"`
		WindSpeed                []*float64 `json:"wind_speed_10m"`
		WindDirection            []*int     `json:"wind_direction_10m"`
		UVIndex                  []*float64 `json:"uv_index"`
		IsDay                    []*int     `json:"is_day"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string   `json:"time"`
		WeatherCode                 []*int     `json:"weather_code"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		TemperatureMin              []*float64 `json:"temperature_2m_min"`
		Sunrise                     []string   `json:"sunrise"`
		Sunset                      []string   `json:"sunset"`
		UVIndexMax                  []*float64 `json:"uv_index_max"`
		PrecipitationSum            []*float64 `json:"precipitation_sum"`
		PrecipitationProbabilityMax []*int     `json:"precipitation_probability_max"`
		WindSpeedMax                []*float64 `json:"wind_speed_10m_max"`
		WindDirectionDominant       []*int     `json:"wind_direction_10m_dominant"`
	} `json:"daily"`
}

type openMeteoCurrent struct {
	Time                string   `json:"time"`
	Temperature         float64  `json:"temperature_2m"`
	RelativeHumidity    int      `json:"relative_humidity_2m"`
	ApparentTemperature float64  `json:"apparent_temperature"`
	IsDay               int      `json:"is_day"`
	Precipitation       float64  `json:"precipitation"`
	WeatherCode         int      `json:"weather_code"`
	CloudCover          int      `json:"cloud_cover"`
	PressureMSL         float64  `json:"pressure_msl"`
	WindSpeed           float64  `json:"wind_speed_10m"`
	WindDirection       int      `json:"wind_direction_10m"`
	WindGusts           *float64 `json:"wind_gusts_10m"`
	UVIndex             float64  `json:"uv_index"`
	Visibility          *float64 `json:"visibility"`
	DewPoint            *float64 `json:"dew_point_2m"`
}

// FetchForecast returns current conditions, 48 hours and 16 days for c in
// metric units.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, c weather.Coordinates) (weather.Forecast, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
		values.Set("current", openMeteoCurrentParams)
		values.Set("hourly", openMeteoHourlyParams)
		values.Set("daily", openMeteoDailyParams)
		values.Set("temperature_unit", "celsius")
		values.Set("wind_speed_unit", "kmh")
		values.Set("precipitation_unit", "mm")
		values.Set("timezone", "auto")
		values.Set("forecast_days", "16")
		values.Set("forecast_hours", "48")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, weather.NewSourceError(p.name, err)
	}
	defer resp.Body.Close()

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, weather.NewSourceError(p.name, fmt.Errorf("%w: %v", weather.ErrDecode, err))
	}
	if payload.Current == nil {
		return weather.Forecast{}, weather.NewSourceError(p.name, fmt.Errorf("%w: no current conditions", weather.ErrDecode))
	}

	return normalizeOpenMeteo(payload), nil
}

func normalizeOpenMeteo(payload openMeteoResponse) weather.Forecast {
	loc := time.FixedZone(payload.Timezone, payload.UTCOffsetSeconds)
	cur := payload.Current

	current := weather.CurrentConditions{
		Time:          parseLocal(cur.Time, openMeteoTimeLayout, loc),
		TemperatureC:  cur.Temperature,
		FeelsLikeC:    cur.ApparentTemperature,
		HumidityPct:   cur.RelativeHumidity,
		WeatherCode:   cur.WeatherCode,
		Condition:     mapOpenMeteoCondition(cur.WeatherCode),
		IsDay:         cur.IsDay == 1,
		WindSpeedKmh:  cur.WindSpeed,
		WindDirection: cur.WindDirection,
		WindGustsKmh:  cur.WindGusts,
		PressureHpa:   cur.PressureMSL,
		UVIndex:       cur.UVIndex,
		VisibilityM:   cur.Visibility,
		DewPointC:     cur.DewPoint,
		CloudCoverPct: cur.CloudCover,
		PrecipMm:      cur.Precipitation,
	}

	h := payload.Hourly
	hourly := make([]weather.HourlyConditions, 0, len(h.Time))
	for i, ts := range h.Time {
		code := derefInt(at(h.WeatherCode, i))
		hourly = append(hourly, weather.HourlyConditions{
			Time:             parseLocal(ts, openMeteoTimeLayout, loc),
			TemperatureC:     derefFloat(at(h.Temperature, i)),
			FeelsLikeC:       at(h.ApparentTemperature, i),
			WeatherCode:      code,
			Condition:        mapOpenMeteoCondition(code),
			IsDay:            derefInt(at(h.IsDay, i)) == 1,
			PrecipChancePct:  derefInt(at(h.PrecipitationProbability, i)),
			PrecipMm:         at(h.Precipitation, i),
			WindSpeedKmh:     at(h.WindSpeed, i),
			WindDirection:    at(h.WindDirection, i),
			HumidityPct:      at(h.RelativeHumidity, i),
			UVIndex:          at(h.UVIndex, i),
			CloudCoverPct:    at(h.CloudCover, i),
			VisibilityMeters: at(h.Visibility, i),
		})
	}

	d := payload.Daily
	daily := make([]weather.DailyConditions, 0, len(d.Time))
	for i, ds := range d.Time {
		code := derefInt(at(d.WeatherCode, i))
		daily = append(daily, weather.DailyConditions{
			Date:            parseLocal(ds, openMeteoDateLayout, loc),
			WeatherCode:     code,
			Condition:       mapOpenMeteoCondition(code),
			HighC:           derefFloat(at(d.TemperatureMax, i)),
			LowC:            derefFloat(at(d.TemperatureMin, i)),
			PrecipChancePct: derefInt(at(d.PrecipitationProbabilityMax, i)),
			PrecipSumMm:     at(d.PrecipitationSum, i),
			Sunrise:         stringAt(d.Sunrise, i),
			Sunset:          stringAt(d.Sunset, i),
			UVIndexMax:      at(d.UVIndexMax, i),
			WindSpeedMaxKmh: at(d.WindSpeedMax, i),
			WindDirection:   at(d.WindDirectionDominant, i),
		})
	}

	if len(daily) > 0 {
		today := daily[0]
		current.DailyHighC = today.HighC
		current.DailyLowC = today.LowC
		current.Sunrise = today.Sunrise
		current.Sunset = today.Sunset
	}

	return weather.Forecast{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
		Current:   current,
		Hourly:    hourly,
		Daily:     daily,
	}
}

type openMeteoSearchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
	} `json:"results"`
}

// SearchPlaces queries the Open-Meteo geocoding API. No results is an empty
// slice, not an error.
func (p *OpenMeteoProvider) SearchPlaces(ctx context.Context, query string, count int) ([]weather.Place, error) {
	if count <= 0 {
		count = 10
	}
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("name", query)
		values.Set("count", strconv.Itoa(count))
		values.Set("language", "en")
		values.Set("format", "json")

		u := fmt.Sprintf("%s?%s", p.geocodingURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, weather.NewSourceError(p.name, err)
	}
	defer resp.Body.Close()

	var payload openMeteoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, weather.NewSourceError(p.name, fmt.Errorf("%w: %v", weather.ErrDecode, err))
	}

	places := make([]weather.Place, 0, len(payload.Results))
	for _, r := range payload.Results {
		places = append(places, weather.Place{
			Name:      r.Name,
			Region:    r.Admin1,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return places, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// WMO weather interpretation codes.
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func parseLocal(s, layout string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func at[T any](values []*T, i int) *T {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func stringAt(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
