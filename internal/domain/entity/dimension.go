package entity

import "time"

// UnknownZone is the sentinel name used when a location id cannot be resolved
// against the zone lookup table.
const UnknownZone = "unknown"

// Zone is one row of the TLC taxi-zone lookup table.
type Zone struct {
	LocationID  int64
	Borough     string
	Zone        string
	ServiceZone string
}

// WeatherObservation is one hourly weather record. Gaps in the series are
// possible and tolerated by the matching logic.
type WeatherObservation struct {
	// Hour is the observation timestamp truncated to the hour, UTC.
	Hour time.Time
	// TempC is the air temperature in degrees Celsius.
	TempC float64
	// PrecipMM is the hourly precipitation in millimeters.
	PrecipMM float64
	// SnowMM is the snow depth in millimeters.
	SnowMM float64
	// WindKPH is the average wind speed in km/h.
	WindKPH float64
	// PressureHPa is the sea-level air pressure in hectopascals.
	PressureHPa float64
}

// WeatherCondition labels the combination of the rainy and cold flags.
type WeatherCondition string

const (
	ConditionDryWarm   WeatherCondition = "dry_warm"
	ConditionDryCold   WeatherCondition = "dry_cold"
	ConditionRainyWarm WeatherCondition = "rainy_warm"
	ConditionRainyCold WeatherCondition = "rainy_cold"
	ConditionUnknown   WeatherCondition = "unknown"
)

// ConditionFor derives the condition label from the two boolean flags.
func ConditionFor(isRainy, isCold bool) WeatherCondition {
	switch {
	case isRainy && isCold:
		return ConditionRainyCold
	case isRainy:
		return ConditionRainyWarm
	case isCold:
		return ConditionDryCold
	default:
		return ConditionDryWarm
	}
}
