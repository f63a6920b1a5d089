package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
)

const (
	airQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	airQualityCurrentParams = "us_aqi,european_aqi,pm10,pm2_5,carbon_monoxide," +
		"nitrogen_dioxide,sulphur_dioxide,ozone," +
		"alder_pollen,birch_pollen,grass_pollen,mugwort_pollen,olive_pollen,ragweed_pollen"
	airQualityHourlyParams = "us_aqi"

	// airQualityOutlookHours is the length of the hourly AQI outlook.
	airQualityOutlookHours = 24
)

var pollenSpecies = []string{"alder", "birch", "grass", "mugwort", "olive", "ragweed"}

// AirQualityProvider reads pollutants, AQI and pollen from Open-Meteo.
type AirQualityProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAirQualityProvider(client *http.Client) *AirQualityProvider {
	return &AirQualityProvider{
		name:    "openmeteo-airquality",
		baseURL: airQualityURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openmeteo-airquality"),
	}
}

func (p *AirQualityProvider) Name() string {
	return p.name
}

type airQualityResponse struct {
	Current struct {
		Time            string   `json:"time"`
		USAQI           *int     `json:"us_aqi"`
		EuropeanAQI     *int     `json:"european_aqi"`
		PM10            *float64 `json:"pm10"`
		PM25            *float64 `json:"pm2_5"`
		CarbonMonoxide  *float64 `json:"carbon_monoxide"`
		NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
		SulphurDioxide  *float64 `json:"sulphur_dioxide"`
		Ozone           *float64 `json:"ozone"`
		AlderPollen     *float64 `json:"alder_pollen"`
		BirchPollen     *float64 `json:"birch_pollen"`
		GrassPollen     *float64 `json:"grass_pollen"`
		MugwortPollen   *float64 `json:"mugwort_pollen"`
		OlivePollen     *float64 `json:"olive_pollen"`
		RagweedPollen   *float64 `json:"ragweed_pollen"`
	} `json:"current"`
	Hourly struct {
		Time  []string `json:"time"`
		USAQI []*int   `json:"us_aqi"`
	} `json:"hourly"`
}

func (p *AirQualityProvider) FetchAirQuality(ctx context.Context, c weather.Coordinates) (weather.AirQuality, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
		values.Set("current", airQualityCurrentParams)
		values.Set("hourly", airQualityHourlyParams)
		values.Set("timezone", "auto")
		values.Set("forecast_days", "3")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.AirQuality{}, weather.NewSourceError(p.name, err)
	}
	defer resp.Body.Close()

	var payload airQualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.AirQuality{}, weather.NewSourceError(p.name, fmt.Errorf("%w: %v", weather.ErrDecode, err))
	}

	return normalizeAirQuality(payload), nil
}

func normalizeAirQuality(payload airQualityResponse) weather.AirQuality {
	cur := payload.Current
	usAQI := derefInt(cur.USAQI)

	pollenValues := map[string]*float64{
		"alder":   cur.AlderPollen,
		"birch":   cur.BirchPollen,
		"grass":   cur.GrassPollen,
		"mugwort": cur.MugwortPollen,
		"olive":   cur.OlivePollen,
		"ragweed": cur.RagweedPollen,
	}
	pollen := make([]weather.PollenReading, 0, len(pollenSpecies))
	for _, species := range pollenSpecies {
		pollen = append(pollen, weather.NewPollenReading(species, pollenValues[species]))
	}

	// Hours before the current reading are skipped. The ISO layout sorts
	// lexically, so string comparison is enough.
	hourly := make([]weather.HourlyAQI, 0, airQualityOutlookHours)
	for i, ts := range payload.Hourly.Time {
		if len(hourly) == airQualityOutlookHours {
			break
		}
		if cur.Time != "" && ts < hourPrefix(cur.Time) {
			continue
		}
		v := at(payload.Hourly.USAQI, i)
		if v == nil {
			continue
		}
		hourly = append(hourly, weather.HourlyAQI{Hour: ts, AQI: *v, Level: weather.LevelForAQI(*v)})
	}

	return weather.AirQuality{
		USAQI:           usAQI,
		EuropeanAQI:     derefInt(cur.EuropeanAQI),
		Level:           weather.LevelForAQI(usAQI),
		PM25:            derefFloat(cur.PM25),
		PM10:            derefFloat(cur.PM10),
		Ozone:           derefFloat(cur.Ozone),
		NitrogenDioxide: derefFloat(cur.NitrogenDioxide),
		SulphurDioxide:  derefFloat(cur.SulphurDioxide),
		CarbonMonoxide:  derefFloat(cur.CarbonMonoxide),
		Pollen:          pollen,
		Hourly:          hourly,
	}
}

// hourPrefix truncates "2006-01-02T15:04" to the start of its hour.
func hourPrefix(ts string) string {
	if len(ts) >= len("2006-01-02T15") {
		return ts[:len("2006-01-02T15")] + ":00"
	}
	return ts
}
