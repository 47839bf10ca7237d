package weather

import (
	"math"
	"time"
)

// GoldenHours is the fixed golden-hour approximation shown next to a location.
// It is a placeholder, not an astronomical calculation.
type GoldenHours struct {
	Sunrise       string `json:"sunrise"`
	MorningGolden string `json:"morningGolden"`
	EveningGolden string `json:"eveningGolden"`
	Sunset        string `json:"sunset"`
}

// StubGoldenHours returns the same times for every place and date.
func StubGoldenHours(Coordinates, time.Time) GoldenHours {
	return GoldenHours{
		Sunrise:       "6:00 AM",
		MorningGolden: "7:00 AM",
		EveningGolden: "7:00 PM",
		Sunset:        "8:00 PM",
	}
}

// Report is a Record plus the values derived from it for display.
type Report struct {
	Record

	LocationLabel string `json:"locationLabel"`
	RoundedC      int    `json:"temperatureRoundedC"`
	TemperatureF  int    `json:"temperatureF"`
	Icon          string `json:"icon"`
	WindDir       string `json:"windDirection"`

	PhotographyConditions []string     `json:"photographyConditions"`
	GoldenHours           *GoldenHours `json:"goldenHours,omitempty"`
}

// NewReport derives the display values of rec. Golden hours are present
// only when the record has coordinates.
func NewReport(rec Record, now time.Time) Report {
	r := Report{
		Record:                rec,
		LocationLabel:         locationLabel(rec.City, rec.Country),
		RoundedC:              int(math.Round(rec.TemperatureC)),
		TemperatureF:          CelsiusToFahrenheit(rec.TemperatureC),
		Icon:                  Icon(rec.Condition),
		WindDir:               WindDirection(rec.WindDegrees),
		PhotographyConditions: PhotographyConditions(rec),
	}
	if rec.Coordinates != nil {
		gh := StubGoldenHours(*rec.Coordinates, now)
		r.GoldenHours = &gh
	}
	return r
}

func locationLabel(city, country string) string {
	if country == "" {
		return city
	}
	return city + ", " + country
}

// CelsiusToFahrenheit converts and rounds to the nearest degree.
func CelsiusToFahrenheit(c float64) int {
	return int(math.Round(c*1.8 + 32))
}

var compass = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindDirection maps degrees to an 8-point compass label, "N/A" when unknown.
func WindDirection(deg *float64) string {
	if deg == nil {
		return "N/A"
	}
	d := math.Mod(*deg, 360)
	if d < 0 {
		d += 360
	}
	idx := int(math.Round(d/45)) % len(compass)
	return compass[idx]
}

// Icon returns the animated icon name for a condition.
func Icon(c Condition) string {
	switch c {
	case ConditionClear:
		return "CLEAR_DAY"
	case ConditionCloudy:
		return "CLOUDY"
	case ConditionRain, ConditionStorm:
		return "RAIN"
	case ConditionSnow:
		return "SNOW"
	case ConditionMist:
		return "FOG"
	default:
		return "CLEAR_DAY"
	}
}

// Photography condition texts.
const (
	TipGoodLighting = "Good lighting conditions"
	TipVisibility   = "Excellent visibility"
	TipLowHumidity  = "Low humidity (good for equipment)"
	TipLowWind      = "Low wind (good for stability)"
	TipChallenging  = "Challenging conditions for photography"
)

// PhotographyConditions lists the favourable conditions in rec, or a single
// "challenging" entry when there are none. Unreported humidity or visibility
// never counts as favourable.
func PhotographyConditions(rec Record) []string {
	var out []string
	if rec.Condition == ConditionClear || rec.Condition == ConditionCloudy {
		out = append(out, TipGoodLighting)
	}
	if rec.VisibilityKm != nil && *rec.VisibilityKm > 8 {
		out = append(out, TipVisibility)
	}
	if rec.Humidity != nil && *rec.Humidity < 70 {
		out = append(out, TipLowHumidity)
	}
	if rec.WindSpeed < 5 {
		out = append(out, TipLowWind)
	}
	if len(out) == 0 {
		return []string{TipChallenging}
	}
	return out
}
