package weather

// AQILevel is a US AQI band.
type AQILevel string

const (
	AQIGood               AQILevel = "good"
	AQIModerate           AQILevel = "moderate"
	AQIUnhealthySensitive AQILevel = "unhealthy_sensitive"
	AQIUnhealthy          AQILevel = "unhealthy"
	AQIVeryUnhealthy      AQILevel = "very_unhealthy"
	AQIHazardous          AQILevel = "hazardous"
)

// LevelForAQI maps a US AQI value onto its band.
func LevelForAQI(aqi int) AQILevel {
	switch {
	case aqi <= 50:
		return AQIGood
	case aqi <= 100:
		return AQIModerate
	case aqi <= 150:
		return AQIUnhealthySensitive
	case aqi <= 200:
		return AQIUnhealthy
	case aqi <= 300:
		return AQIVeryUnhealthy
	default:
		return AQIHazardous
	}
}

// PollenLevel grades a pollen concentration.
type PollenLevel string

const (
	PollenNone     PollenLevel = "none"
	PollenLow      PollenLevel = "low"
	PollenModerate PollenLevel = "moderate"
	PollenHigh     PollenLevel = "high"
	PollenVeryHigh PollenLevel = "very_high"
)

// PollenThresholds are upper bounds (grains/m3) for low, moderate and high.
type PollenThresholds struct {
	Low      float64
	Moderate float64
	High     float64
}

var (
	treePollenThresholds = PollenThresholds{Low: 10, Moderate: 50, High: 200}
	weedPollenThresholds = PollenThresholds{Low: 5, Moderate: 20, High: 50}
)

// PollenSpeciesThresholds lists the thresholds used per species.
var PollenSpeciesThresholds = map[string]PollenThresholds{
	"alder":   treePollenThresholds,
	"birch":   treePollenThresholds,
	"olive":   treePollenThresholds,
	"grass":   weedPollenThresholds,
	"mugwort": weedPollenThresholds,
	"ragweed": weedPollenThresholds,
}

// PollenReading is one species' concentration and grade.
type PollenReading struct {
	Species       string      `json:"species"`
	Concentration float64     `json:"concentration"`
	Level         PollenLevel `json:"level"`
}

// NewPollenReading grades value against the species thresholds. A missing
// or non-positive value grades as none.
func NewPollenReading(species string, value *float64) PollenReading {
	if value == nil || *value <= 0 {
		return PollenReading{Species: species, Level: PollenNone}
	}
	t, ok := PollenSpeciesThresholds[species]
	if !ok {
		t = treePollenThresholds
	}
	v := *value
	level := PollenVeryHigh
	switch {
	case v < t.Low:
		level = PollenLow
	case v < t.Moderate:
		level = PollenModerate
	case v < t.High:
		level = PollenHigh
	}
	return PollenReading{Species: species, Concentration: v, Level: level}
}

// HourlyAQI is one hour of the AQI outlook.
type HourlyAQI struct {
	Hour  string   `json:"hour"`
	AQI   int      `json:"aqi"`
	Level AQILevel `json:"level"`
}

// AirQuality is the air-quality snapshot for a point.
type AirQuality struct {
	USAQI           int             `json:"usAqi"`
	EuropeanAQI     int             `json:"europeanAqi"`
	Level           AQILevel        `json:"level"`
	PM25            float64         `json:"pm25"`
	PM10            float64         `json:"pm10"`
	Ozone           float64         `json:"ozone"`
	NitrogenDioxide float64         `json:"nitrogenDioxide"`
	SulphurDioxide  float64         `json:"sulphurDioxide"`
	CarbonMonoxide  float64         `json:"carbonMonoxide"`
	Pollen          []PollenReading `json:"pollen"`
	Hourly          []HourlyAQI     `json:"hourly"`
}
