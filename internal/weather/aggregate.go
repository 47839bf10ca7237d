package weather

import (
	"math"
	"time"
)

// AggregateReadings combines multiple provider readings into a single Record.
// Numeric fields are averaged; the condition is selected by majority, ties
// going to the condition seen first. Names, descriptions and coordinates come
// from the first reading that carries them.
func AggregateReadings(loc Location, readings []ProviderReading) Record {
	if len(readings) == 0 {
		return Record{
			Location:  loc,
			City:      loc.City,
			Country:   loc.Country,
			Timestamp: time.Now().UTC(),
			Condition: ConditionUnknown,
		}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		sumWind     float64
		sumPressure float64
		sumPrecip   float64
		sumVis      float64

		nHumidity, nPressure, nVis int

		sumSin, sumCos float64
		nDeg           int
	)

	conditionCounts := make(map[Condition]int)
	var conditionOrder []Condition
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumWind += r.WindSpeedMS
		sumPrecip += r.PrecipMm

		// zero means the provider did not report the value
		if r.HumidityPct > 0 {
			sumHumidity += r.HumidityPct
			nHumidity++
		}
		if r.PressureHpa > 0 {
			sumPressure += r.PressureHpa
			nPressure++
		}
		if r.VisibilityKm > 0 {
			sumVis += r.VisibilityKm
			nVis++
		}
		if r.WindDegrees != nil {
			rad := *r.WindDegrees * math.Pi / 180
			sumSin += math.Sin(rad)
			sumCos += math.Cos(rad)
			nDeg++
		}

		if _, seen := conditionCounts[r.Condition]; !seen {
			conditionOrder = append(conditionOrder, r.Condition)
		}
		conditionCounts[r.Condition]++

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(readings))

	// Pick majority condition.
	bestCond := ConditionUnknown
	bestCount := 0
	for _, cond := range conditionOrder {
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			bestCond = cond
		}
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	rec := Record{
		Location:     loc,
		Timestamp:    newestTS,
		TemperatureC: sumTemp / n,
		WindSpeed:    sumWind / n,
		PrecipMM:     sumPrecip / n,
		Humidity:     optionalAverage(sumHumidity, nHumidity),
		Pressure:     average(sumPressure, nPressure),
		VisibilityKm: optionalAverage(sumVis, nVis),
		Condition:    bestCond,
		Providers:    providers,
	}
	if nDeg > 0 {
		// circular mean, so 350° and 10° average to 0° rather than 180°
		deg := math.Atan2(sumSin, sumCos) * 180 / math.Pi
		if deg < 0 {
			deg += 360
		}
		rec.WindDegrees = &deg
	}

	for _, r := range readings {
		if rec.City == "" && r.City != "" {
			rec.City, rec.Country = r.City, r.Country
		}
		if rec.Coordinates == nil && r.Coordinates != nil {
			c := *r.Coordinates
			rec.Coordinates = &c
		}
		if rec.Main == "" && r.Condition == bestCond && r.Main != "" {
			rec.Main, rec.Description = r.Main, r.Description
		}
	}
	if rec.City == "" {
		rec.City, rec.Country = loc.City, loc.Country
	}

	return rec
}

func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func optionalAverage(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
