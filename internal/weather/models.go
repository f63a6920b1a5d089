package weather

import (
	"fmt"
	"math"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// Coordinates is an immutable latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validate reports whether both components are finite and inside their ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("coordinates must be finite: %v,%v", c.Latitude, c.Longitude)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", c.Longitude)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// LocationInfo is the resolved, human readable location of a snapshot.
type LocationInfo struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the position the location was resolved for.
func (l LocationInfo) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// PlaceName is what a reverse geocoder returns for a coordinate pair.
type PlaceName struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// Place is a single geocoding search hit.
type Place struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CurrentConditions holds the "now" block of a forecast.
type CurrentConditions struct {
	Time          time.Time `json:"time"`
	TemperatureC  float64   `json:"temperatureC"`
	FeelsLikeC    float64   `json:"feelsLikeC"`
	HumidityPct   int       `json:"humidityPercent"`
	WeatherCode   int       `json:"weatherCode"`
	Condition     Condition `json:"condition"`
	IsDay         bool      `json:"isDay"`
	WindSpeedKmh  float64   `json:"windSpeedKmh"`
	WindDirection int       `json:"windDirection"`
	WindGustsKmh  *float64  `json:"windGustsKmh,omitempty"`
	PressureHpa   float64   `json:"pressureHpa"`
	UVIndex       float64   `json:"uvIndex"`
	VisibilityM   *float64  `json:"visibilityM,omitempty"`
	DewPointC     *float64  `json:"dewPointC,omitempty"`
	CloudCoverPct int       `json:"cloudCoverPercent"`
	PrecipMm      float64   `json:"precipMm"`
	DailyHighC    float64   `json:"dailyHighC"`
	DailyLowC     float64   `json:"dailyLowC"`
	Sunrise       string    `json:"sunrise,omitempty"`
	Sunset        string    `json:"sunset,omitempty"`
}

// HourlyConditions is one hour of the hourly series.
type HourlyConditions struct {
	Time             time.Time `json:"time"`
	TemperatureC     float64   `json:"temperatureC"`
	FeelsLikeC       *float64  `json:"feelsLikeC,omitempty"`
	WeatherCode      int       `json:"weatherCode"`
	Condition        Condition `json:"condition"`
	IsDay            bool      `json:"isDay"`
	PrecipChancePct  int       `json:"precipChancePercent"`
	PrecipMm         *float64  `json:"precipMm,omitempty"`
	WindSpeedKmh     *float64  `json:"windSpeedKmh,omitempty"`
	WindDirection    *int      `json:"windDirection,omitempty"`
	HumidityPct      *int      `json:"humidityPercent,omitempty"`
	UVIndex          *float64  `json:"uvIndex,omitempty"`
	CloudCoverPct    *int      `json:"cloudCoverPercent,omitempty"`
	VisibilityMeters *float64  `json:"visibilityM,omitempty"`
}

// DailyConditions is one day of the daily series. Date is local midnight.
type DailyConditions struct {
	Date            time.Time `json:"date"`
	WeatherCode     int       `json:"weatherCode"`
	Condition       Condition `json:"condition"`
	HighC           float64   `json:"highC"`
	LowC            float64   `json:"lowC"`
	PrecipChancePct int       `json:"precipChancePercent"`
	PrecipSumMm     *float64  `json:"precipSumMm,omitempty"`
	Sunrise         string    `json:"sunrise,omitempty"`
	Sunset          string    `json:"sunset,omitempty"`
	UVIndexMax      *float64  `json:"uvIndexMax,omitempty"`
	WindSpeedMaxKmh *float64  `json:"windSpeedMaxKmh,omitempty"`
	WindDirection   *int      `json:"windDirectionDominant,omitempty"`
}

// Forecast is the normalized payload a ForecastSource returns. It carries no
// location naming and is what gets persisted as the cache payload.
type Forecast struct {
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	Timezone  string             `json:"timezone,omitempty"`
	Current   CurrentConditions  `json:"current"`
	Hourly    []HourlyConditions `json:"hourly"`
	Daily     []DailyConditions  `json:"daily"`
}

// ForecastSnapshot is a normalized, point-in-time bundle of forecast data
// for one location. Built once by NewSnapshot and never mutated afterwards.
type ForecastSnapshot struct {
	Location  LocationInfo       `json:"location"`
	Current   CurrentConditions  `json:"current"`
	Hourly    []HourlyConditions `json:"hourly"`
	Daily     []DailyConditions  `json:"daily"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// seriesGrace is how far in the past a series entry may lie before it is dropped.
const seriesGrace = time.Hour

// NewSnapshot builds a snapshot from a forecast, dropping hourly entries more
// than an hour old and daily entries whose day ended more than an hour ago.
func NewSnapshot(f Forecast, loc LocationInfo, now time.Time) ForecastSnapshot {
	cutoff := now.Add(-seriesGrace)

	hourly := make([]HourlyConditions, 0, len(f.Hourly))
	for _, h := range f.Hourly {
		if h.Time.Before(cutoff) {
			continue
		}
		hourly = append(hourly, h)
	}

	daily := make([]DailyConditions, 0, len(f.Daily))
	for _, d := range f.Daily {
		if d.Date.AddDate(0, 0, 1).Before(cutoff) {
			continue
		}
		daily = append(daily, d)
	}

	return ForecastSnapshot{
		Location:  loc,
		Current:   f.Current,
		Hourly:    hourly,
		Daily:     daily,
		FetchedAt: now,
	}
}
