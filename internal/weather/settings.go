package weather

import "time"

type TempUnit string

const (
	TempFahrenheit TempUnit = "fahrenheit"
	TempCelsius    TempUnit = "celsius"
)

type WindUnit string

const (
	WindMph   WindUnit = "mph"
	WindKmh   WindUnit = "kmh"
	WindMs    WindUnit = "ms"
	WindKnots WindUnit = "knots"
)

type PressureUnit string

const (
	PressureInHg PressureUnit = "inhg"
	PressureHpa  PressureUnit = "hpa"
	PressureMbar PressureUnit = "mbar"
)

type PrecipUnit string

const (
	PrecipInches PrecipUnit = "inches"
	PrecipMm     PrecipUnit = "mm"
)

type VisibilityUnit string

const (
	VisibilityMiles VisibilityUnit = "miles"
	VisibilityKm    VisibilityUnit = "km"
)

type TimeFormat string

const (
	TimeFormat12h TimeFormat = "12h"
	TimeFormat24h TimeFormat = "24h"
)

// Settings holds the user's display-unit preferences.
type Settings struct {
	TempUnit       TempUnit       `json:"tempUnit" validate:"required,oneof=fahrenheit celsius"`
	WindUnit       WindUnit       `json:"windUnit" validate:"required,oneof=mph kmh ms knots"`
	PressureUnit   PressureUnit   `json:"pressureUnit" validate:"required,oneof=inhg hpa mbar"`
	PrecipUnit     PrecipUnit     `json:"precipUnit" validate:"required,oneof=inches mm"`
	VisibilityUnit VisibilityUnit `json:"visibilityUnit" validate:"required,oneof=miles km"`
	TimeFormat     TimeFormat     `json:"timeFormat" validate:"required,oneof=12h 24h"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		TempUnit:       TempFahrenheit,
		WindUnit:       WindMph,
		PressureUnit:   PressureInHg,
		PrecipUnit:     PrecipInches,
		VisibilityUnit: VisibilityMiles,
		TimeFormat:     TimeFormat12h,
	}
}

// LastLocation is the last successfully fetched position and its name.
type LastLocation struct {
	Coordinates Coordinates `json:"coordinates"`
	Name        string      `json:"name"`
}

// CurrentLocationSortOrder keeps the GPS entry ahead of every saved place.
const CurrentLocationSortOrder = -1

// SavedLocation is one page of the location pager.
type SavedLocation struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Region            string    `json:"region"`
	Country           string    `json:"country"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	SortOrder         int       `json:"sortOrder"`
	IsCurrentLocation bool      `json:"isCurrentLocation"`
	AddedAt           time.Time `json:"addedAt"`
}

// Coordinates returns the saved position.
func (s SavedLocation) Coordinates() Coordinates {
	return Coordinates{Latitude: s.Latitude, Longitude: s.Longitude}
}
