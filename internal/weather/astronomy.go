package weather

import (
	"fmt"
	"math"
	"time"
)

// MoonPhase names the eight classic phases.
type MoonPhase string

const (
	MoonNew            MoonPhase = "new_moon"
	MoonWaxingCrescent MoonPhase = "waxing_crescent"
	MoonFirstQuarter   MoonPhase = "first_quarter"
	MoonWaxingGibbous  MoonPhase = "waxing_gibbous"
	MoonFull           MoonPhase = "full_moon"
	MoonWaningGibbous  MoonPhase = "waning_gibbous"
	MoonLastQuarter    MoonPhase = "last_quarter"
	MoonWaningCrescent MoonPhase = "waning_crescent"
)

const synodicMonth = 29.53058867

// localTimeLayout is the ISO local date-time layout sunrise/sunset use.
const localTimeLayout = "2006-01-02T15:04"

// Astronomy is derived locally from the date and the day's sunrise/sunset.
type Astronomy struct {
	MoonPhase        MoonPhase `json:"moonPhase"`
	MoonIllumination float64   `json:"moonIllumination"`
	Moonrise         string    `json:"moonrise"`
	Moonset          string    `json:"moonset"`
	DayLength        string    `json:"dayLength,omitempty"`
}

// ComputeAstronomy derives moon data for the calendar day of now and the day
// length from sunrise/sunset. Unparseable sunrise/sunset leave DayLength empty.
func ComputeAstronomy(now time.Time, sunrise, sunset string) Astronomy {
	age := LunarAge(now.Year(), int(now.Month()), now.Day())
	return Astronomy{
		MoonPhase:        PhaseForAge(age),
		MoonIllumination: illumination(age),
		Moonrise:         estimateMoonTime(age, true),
		Moonset:          estimateMoonTime(age, false),
		DayLength:        dayLength(sunrise, sunset),
	}
}

// LunarAge returns days since the last new moon, using the 2000-01-06 new
// moon as the epoch.
func LunarAge(year, month, day int) float64 {
	y, m := float64(year), float64(month)
	if m <= 2 {
		y--
		m += 12
	}
	// Gregorian calendar correction.
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)
	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + float64(day) + b - 1524.5
	age := math.Mod(jd-2451550.1, synodicMonth)
	if age < 0 {
		age += synodicMonth
	}
	return age
}

// PhaseForAge maps a lunar age in days onto a phase.
func PhaseForAge(age float64) MoonPhase {
	d := math.Mod(age, 29.53)
	switch {
	case d < 1.85:
		return MoonNew
	case d < 7.38:
		return MoonWaxingCrescent
	case d < 9.23:
		return MoonFirstQuarter
	case d < 14.77:
		return MoonWaxingGibbous
	case d < 16.61:
		return MoonFull
	case d < 22.15:
		return MoonWaningGibbous
	case d < 23.99:
		return MoonLastQuarter
	default:
		return MoonWaningCrescent
	}
}

func illumination(age float64) float64 {
	phase := age / synodicMonth
	return math.Round((1 - math.Cos(phase*2*math.Pi)) / 2 * 100)
}

// estimateMoonTime is a rough approximation: rise/set shift about 50 minutes a day.
func estimateMoonTime(age float64, rise bool) string {
	base := 6.0
	if rise {
		base = 18.0
	}
	t := math.Mod(base+(age/29.53)*24.0, 24)
	hour := int(t)
	minute := int(math.Mod(t, 1) * 60)
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, ampm)
}

func dayLength(sunrise, sunset string) string {
	if sunrise == "" || sunset == "" {
		return ""
	}
	rise, err := time.Parse(localTimeLayout, sunrise)
	if err != nil {
		return ""
	}
	set, err := time.Parse(localTimeLayout, sunset)
	if err != nil {
		return ""
	}
	minutes := int(set.Sub(rise).Minutes())
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
