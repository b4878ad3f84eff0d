// Package enrichment joins cleaned trips against the zone and weather
// snapshots, derives the per-trip metrics, and deduplicates on the composite
// trip identity. Dimension misses degrade the record instead of dropping it.
package enrichment

import (
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/dimension"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
)

// Result holds the outcome of enriching one partition, with the lookup miss
// and dedup counters surfaced for the run report.
type Result struct {
	Enriched []entity.EnrichedTrip
	// ZoneMisses counts location ids that fell back to the unknown zone.
	ZoneMisses int
	// WeatherMisses counts trips with no observation inside the match window.
	WeatherMisses int
	// DuplicatesDropped counts records removed by deduplication.
	DuplicatesDropped int
	// SpeedClamps counts records whose average speed hit the clamp.
	SpeedClamps int
}

// Enricher performs the dimension joins and metric derivation. One instance
// serves concurrent partitions; the snapshots it holds are immutable.
type Enricher struct {
	zones   *dimension.ZoneSnapshot
	weather *dimension.WeatherSnapshot

	coldThresholdC float64
	hotThresholdC  float64
	maxSpeedMPH    float64
}

// NewEnricher builds an Enricher from the run's dimension snapshots and the
// configured thresholds.
func NewEnricher(pipeCfg config.PipelineConfig, zones *dimension.ZoneSnapshot, weather *dimension.WeatherSnapshot) *Enricher {
	return &Enricher{
		zones:          zones,
		weather:        weather,
		coldThresholdC: pipeCfg.Weather.ColdThresholdC,
		hotThresholdC:  pipeCfg.Weather.HotThresholdC,
		maxSpeedMPH:    pipeCfg.Cleaning.MaxSpeedMPH,
	}
}

// Enrich joins and derives every kept record, then deduplicates. Input order
// is preserved and the first occurrence of a duplicate identity wins, so a
// fixed input ordering always yields the same surviving records.
func (e *Enricher) Enrich(trips []entity.TripRecord) Result {
	res := Result{Enriched: make([]entity.EnrichedTrip, 0, len(trips))}
	seen := make(map[string]struct{}, len(trips))

	for _, t := range trips {
		key := t.DedupKey()
		if _, dup := seen[key]; dup {
			res.DuplicatesDropped++
			continue
		}
		seen[key] = struct{}{}

		et := entity.EnrichedTrip{TripRecord: t}
		e.joinZones(&et, &res)
		e.joinWeather(&et, &res)
		e.derive(&et, &res)
		res.Enriched = append(res.Enriched, et)
	}
	return res
}

// joinZones resolves both location ids, degrading misses to the unknown zone.
func (e *Enricher) joinZones(et *entity.EnrichedTrip, res *Result) {
	if z, ok := e.zones.Lookup(et.PULocationID); ok {
		et.PickupBorough = z.Borough
		et.PickupZone = z.Zone
	} else {
		et.PickupBorough = entity.UnknownZone
		et.PickupZone = entity.UnknownZone
		res.ZoneMisses++
	}
	if z, ok := e.zones.Lookup(et.DOLocationID); ok {
		et.DropoffBorough = z.Borough
		et.DropoffZone = z.Zone
	} else {
		et.DropoffBorough = entity.UnknownZone
		et.DropoffZone = entity.UnknownZone
		res.ZoneMisses++
	}
}

// joinWeather matches the pickup hour against the observation series. A miss
// leaves the weather fields null and the condition unknown.
func (e *Enricher) joinWeather(et *entity.EnrichedTrip, res *Result) {
	obs, ok := e.weather.Lookup(et.PickupTime)
	if !ok {
		et.Condition = entity.ConditionUnknown
		res.WeatherMisses++
		return
	}
	temp := obs.TempC
	precip := obs.PrecipMM
	et.TempC = &temp
	et.PrecipMM = &precip
	et.WeatherHour = obs.Hour
	et.IsRainy = obs.PrecipMM > 0
	et.IsCold = obs.TempC < e.coldThresholdC
	et.IsHot = obs.TempC > e.hotThresholdC
	et.Condition = entity.ConditionFor(et.IsRainy, et.IsCold)
}

// derive computes duration and average speed. A near-zero duration would blow
// up the division, so the speed is clamped and the record flagged.
func (e *Enricher) derive(et *entity.EnrichedTrip, res *Result) {
	et.DurationMinutes = et.TripRecord.DurationMinutes()
	if et.DurationMinutes <= 0 {
		et.AvgSpeedMPH = 0
		return
	}
	speed := et.TripDistance / (et.DurationMinutes / 60.0)
	if speed > e.maxSpeedMPH {
		speed = e.maxSpeedMPH
		et.SpeedClamped = true
		res.SpeedClamps++
	}
	et.AvgSpeedMPH = speed
}
