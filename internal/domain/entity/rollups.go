package entity

// Rollup rows are the read-optimized aggregate records served to dashboards.
// Every rollup keeps the event date in its key so each table stays
// partitionable by date and re-runs replace exactly the affected partitions.
// Ratio metrics are computed with a defined-zero policy: a zero denominator
// yields 0, never NaN or Inf.

// DailyMetricsRow summarizes one pickup date.
type DailyMetricsRow struct {
	Date           string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	TripCount      int64   `parquet:"name=trip_count,type=INT64"`
	TotalRevenue   float64 `parquet:"name=total_revenue,type=DOUBLE"`
	RevenuePerTrip float64 `parquet:"name=revenue_per_trip,type=DOUBLE"`
	AvgTipPct      float64 `parquet:"name=avg_tip_pct,type=DOUBLE"`
}

// HourlyPatternRow summarizes one hour-of-day bucket within a date.
type HourlyPatternRow struct {
	Date        string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	HourBucket  string  `parquet:"name=hour_bucket,type=BYTE_ARRAY,convertedtype=UTF8"`
	TripCount   int64   `parquet:"name=trip_count,type=INT64"`
	AvgSpeedMPH float64 `parquet:"name=avg_speed_mph,type=DOUBLE"`
}

// RouteRow summarizes one (pickup zone, dropoff zone) pair within a date.
type RouteRow struct {
	Date            string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	PickupZone      string  `parquet:"name=pickup_zone,type=BYTE_ARRAY,convertedtype=UTF8"`
	DropoffZone     string  `parquet:"name=dropoff_zone,type=BYTE_ARRAY,convertedtype=UTF8"`
	TripCount       int64   `parquet:"name=trip_count,type=INT64"`
	AvgFare         float64 `parquet:"name=avg_fare,type=DOUBLE"`
	// EfficiencyRatio is revenue per minute of trip time.
	EfficiencyRatio float64 `parquet:"name=efficiency_ratio,type=DOUBLE"`
}

// VendorPerformanceRow summarizes one vendor within a date.
type VendorPerformanceRow struct {
	Date           string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	VendorID       int64   `parquet:"name=vendor_id,type=INT64"`
	TotalRevenue   float64 `parquet:"name=total_revenue,type=DOUBLE"`
	AvgTipPct      float64 `parquet:"name=avg_tip_pct,type=DOUBLE"`
	// RevenuePerHour is revenue per operating hour, with operating time
	// approximated by the sum of trip durations.
	RevenuePerHour float64 `parquet:"name=revenue_per_hour,type=DOUBLE"`
}

// WeatherImpactRow summarizes one weather condition within a date.
type WeatherImpactRow struct {
	Date               string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	Condition          string  `parquet:"name=weather_condition,type=BYTE_ARRAY,convertedtype=UTF8"`
	TripCount          int64   `parquet:"name=trip_count,type=INT64"`
	AvgFare            float64 `parquet:"name=avg_fare,type=DOUBLE"`
	AvgDurationMinutes float64 `parquet:"name=avg_duration_minutes,type=DOUBLE"`
}

// PaymentAnalysisRow summarizes one payment type within a date.
type PaymentAnalysisRow struct {
	Date         string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	PaymentLabel string  `parquet:"name=payment_type,type=BYTE_ARRAY,convertedtype=UTF8"`
	TripCount    int64   `parquet:"name=trip_count,type=INT64"`
	TotalRevenue float64 `parquet:"name=total_revenue,type=DOUBLE"`
	AvgTipPct    float64 `parquet:"name=avg_tip_pct,type=DOUBLE"`
}

// WeatherImpactSummary is the condition-level view across a run's date
// range, derived from the per-date WeatherImpactRow partitions and written
// under a range partition key.
type WeatherImpactSummary struct {
	Condition          string  `parquet:"name=weather_condition,type=BYTE_ARRAY,convertedtype=UTF8"`
	DayCount           int64   `parquet:"name=day_count,type=INT64"`
	AvgTripsPerDay     float64 `parquet:"name=avg_trips_per_day,type=DOUBLE"`
	AvgFare            float64 `parquet:"name=avg_fare,type=DOUBLE"`
	AvgDurationMinutes float64 `parquet:"name=avg_duration_minutes,type=DOUBLE"`
}
