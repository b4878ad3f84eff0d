// Package aggregate computes the read-optimized rollups from enriched
// partitions. Every rollup is a pure function of its input rows: no I/O, no
// shared state, so the six rollups of a run can execute concurrently. All
// ratio metrics apply the same zero policy: a zero denominator yields 0.
package aggregate

import (
	"sort"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
)

// Hour bucket labels of the hourly_patterns rollup.
const (
	BucketMorningRush  = "morning_rush"
	BucketEveningRush  = "evening_rush"
	BucketRegularHours = "regular_hours"
	BucketNight        = "night"
)

// HourBucketer maps an hour of day (0-23) to its configured bucket label.
type HourBucketer struct {
	buckets [24]string
}

// NewHourBucketer builds the hour-of-day mapping from the configured rush
// windows. Hours claimed by no window fall into regular_hours.
func NewHourBucketer(cfg config.RushHoursConfig) *HourBucketer {
	b := &HourBucketer{}
	for i := range b.buckets {
		b.buckets[i] = BucketRegularHours
	}
	for _, h := range cfg.MorningRush {
		if h >= 0 && h < 24 {
			b.buckets[h] = BucketMorningRush
		}
	}
	for _, h := range cfg.EveningRush {
		if h >= 0 && h < 24 {
			b.buckets[h] = BucketEveningRush
		}
	}
	for _, h := range cfg.Night {
		if h >= 0 && h < 24 {
			b.buckets[h] = BucketNight
		}
	}
	return b
}

// Bucket returns the label for an hour of day.
func (b *HourBucketer) Bucket(hour int) string {
	if hour < 0 || hour > 23 {
		return BucketRegularHours
	}
	return b.buckets[hour]
}

// safeDiv divides with the zero policy applied.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// tipPct returns the tip percentage of one trip, 0 when the fare is zero.
func tipPct(t entity.EnrichedTrip) float64 {
	return safeDiv(t.TipAmount, t.FareAmount) * 100
}

// DailyMetrics rolls one date's trips into a single row: trip count, revenue
// sum, revenue per trip and average tip percentage.
func DailyMetrics(date string, trips []entity.EnrichedTrip) []entity.DailyMetricsRow {
	if len(trips) == 0 {
		return nil
	}
	var revenue, tipPctSum float64
	for _, t := range trips {
		revenue += t.TotalAmount
		tipPctSum += tipPct(t)
	}
	n := float64(len(trips))
	return []entity.DailyMetricsRow{{
		Date:           date,
		TripCount:      int64(len(trips)),
		TotalRevenue:   revenue,
		RevenuePerTrip: safeDiv(revenue, n),
		AvgTipPct:      safeDiv(tipPctSum, n),
	}}
}

// HourlyPatterns rolls one date's trips by hour-of-day bucket: trip count and
// average speed per bucket. Rows are ordered by bucket label.
func HourlyPatterns(date string, trips []entity.EnrichedTrip, bucketer *HourBucketer) []entity.HourlyPatternRow {
	type acc struct {
		count    int64
		speedSum float64
	}
	groups := make(map[string]*acc)
	for _, t := range trips {
		bucket := bucketer.Bucket(t.PickupTime.UTC().Hour())
		g, ok := groups[bucket]
		if !ok {
			g = &acc{}
			groups[bucket] = g
		}
		g.count++
		g.speedSum += t.AvgSpeedMPH
	}

	rows := make([]entity.HourlyPatternRow, 0, len(groups))
	for bucket, g := range groups {
		rows = append(rows, entity.HourlyPatternRow{
			Date:        date,
			HourBucket:  bucket,
			TripCount:   g.count,
			AvgSpeedMPH: safeDiv(g.speedSum, float64(g.count)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].HourBucket < rows[j].HourBucket })
	return rows
}

// TopRoutes rolls one date's trips by (pickup zone, dropoff zone) pair: trip
// count, average fare and efficiency ratio (revenue per trip minute). Rows
// are ordered by trip count descending, then by zone pair for a stable order.
func TopRoutes(date string, trips []entity.EnrichedTrip) []entity.RouteRow {
	type key struct{ pu, do string }
	type acc struct {
		count       int64
		fareSum     float64
		revenueSum  float64
		durationSum float64
	}
	groups := make(map[key]*acc)
	for _, t := range trips {
		k := key{pu: t.PickupZone, do: t.DropoffZone}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.count++
		g.fareSum += t.FareAmount
		g.revenueSum += t.TotalAmount
		g.durationSum += t.DurationMinutes
	}

	rows := make([]entity.RouteRow, 0, len(groups))
	for k, g := range groups {
		rows = append(rows, entity.RouteRow{
			Date:            date,
			PickupZone:      k.pu,
			DropoffZone:     k.do,
			TripCount:       g.count,
			AvgFare:         safeDiv(g.fareSum, float64(g.count)),
			EfficiencyRatio: safeDiv(g.revenueSum, g.durationSum),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TripCount != rows[j].TripCount {
			return rows[i].TripCount > rows[j].TripCount
		}
		if rows[i].PickupZone != rows[j].PickupZone {
			return rows[i].PickupZone < rows[j].PickupZone
		}
		return rows[i].DropoffZone < rows[j].DropoffZone
	})
	return rows
}

// VendorPerformance rolls one date's trips by vendor: revenue sum, average
// tip percentage and revenue per operating hour, with operating time
// approximated by the sum of trip durations. Rows are ordered by vendor id.
func VendorPerformance(date string, trips []entity.EnrichedTrip) []entity.VendorPerformanceRow {
	type acc struct {
		count       int64
		revenueSum  float64
		tipPctSum   float64
		durationSum float64
	}
	groups := make(map[int64]*acc)
	for _, t := range trips {
		g, ok := groups[t.VendorID]
		if !ok {
			g = &acc{}
			groups[t.VendorID] = g
		}
		g.count++
		g.revenueSum += t.TotalAmount
		g.tipPctSum += tipPct(t)
		g.durationSum += t.DurationMinutes
	}

	rows := make([]entity.VendorPerformanceRow, 0, len(groups))
	for vendor, g := range groups {
		rows = append(rows, entity.VendorPerformanceRow{
			Date:           date,
			VendorID:       vendor,
			TotalRevenue:   g.revenueSum,
			AvgTipPct:      safeDiv(g.tipPctSum, float64(g.count)),
			RevenuePerHour: safeDiv(g.revenueSum, g.durationSum/60.0),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].VendorID < rows[j].VendorID })
	return rows
}

// WeatherImpact rolls one date's trips by weather condition: trip count,
// average fare and average duration. Rows are ordered by condition label.
func WeatherImpact(date string, trips []entity.EnrichedTrip) []entity.WeatherImpactRow {
	type acc struct {
		count       int64
		fareSum     float64
		durationSum float64
	}
	groups := make(map[entity.WeatherCondition]*acc)
	for _, t := range trips {
		g, ok := groups[t.Condition]
		if !ok {
			g = &acc{}
			groups[t.Condition] = g
		}
		g.count++
		g.fareSum += t.FareAmount
		g.durationSum += t.DurationMinutes
	}

	rows := make([]entity.WeatherImpactRow, 0, len(groups))
	for cond, g := range groups {
		rows = append(rows, entity.WeatherImpactRow{
			Date:               date,
			Condition:          string(cond),
			TripCount:          g.count,
			AvgFare:            safeDiv(g.fareSum, float64(g.count)),
			AvgDurationMinutes: safeDiv(g.durationSum, float64(g.count)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Condition < rows[j].Condition })
	return rows
}

// PaymentAnalysis rolls one date's trips by payment type label: trip count,
// revenue sum and average tip percentage. Rows are ordered by label.
func PaymentAnalysis(date string, trips []entity.EnrichedTrip) []entity.PaymentAnalysisRow {
	type acc struct {
		count      int64
		revenueSum float64
		tipPctSum  float64
	}
	groups := make(map[string]*acc)
	for _, t := range trips {
		label := entity.PaymentTypeLabel(t.PaymentType)
		g, ok := groups[label]
		if !ok {
			g = &acc{}
			groups[label] = g
		}
		g.count++
		g.revenueSum += t.TotalAmount
		g.tipPctSum += tipPct(t)
	}

	rows := make([]entity.PaymentAnalysisRow, 0, len(groups))
	for label, g := range groups {
		rows = append(rows, entity.PaymentAnalysisRow{
			Date:         date,
			PaymentLabel: label,
			TripCount:    g.count,
			TotalRevenue: g.revenueSum,
			AvgTipPct:    safeDiv(g.tipPctSum, float64(g.count)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PaymentLabel < rows[j].PaymentLabel })
	return rows
}

// SummarizeWeatherImpact derives the condition-level view across a date
// range from the per-date weather impact rows: day count, average trips per
// day, and trip-weighted average fare and duration.
func SummarizeWeatherImpact(rows []entity.WeatherImpactRow) []entity.WeatherImpactSummary {
	type acc struct {
		days        int64
		tripSum     int64
		fareSum     float64
		durationSum float64
	}
	groups := make(map[string]*acc)
	for _, r := range rows {
		g, ok := groups[r.Condition]
		if !ok {
			g = &acc{}
			groups[r.Condition] = g
		}
		g.days++
		g.tripSum += r.TripCount
		g.fareSum += r.AvgFare * float64(r.TripCount)
		g.durationSum += r.AvgDurationMinutes * float64(r.TripCount)
	}

	out := make([]entity.WeatherImpactSummary, 0, len(groups))
	for cond, g := range groups {
		out = append(out, entity.WeatherImpactSummary{
			Condition:          cond,
			DayCount:           g.days,
			AvgTripsPerDay:     safeDiv(float64(g.tripSum), float64(g.days)),
			AvgFare:            safeDiv(g.fareSum, float64(g.tripSum)),
			AvgDurationMinutes: safeDiv(g.durationSum, float64(g.tripSum)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Condition < out[j].Condition })
	return out
}
