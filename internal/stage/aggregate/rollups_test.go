package aggregate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/stage/aggregate"
)

const testDate = "2024-01-01"

func enrichedTrip(hour int, fare, tip, total float64) entity.EnrichedTrip {
	pickup := time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
	return entity.EnrichedTrip{
		TripRecord: entity.TripRecord{
			VendorID:     1,
			PickupTime:   pickup,
			DropoffTime:  pickup.Add(20 * time.Minute),
			TripDistance: 3.0,
			PaymentType:  1,
			FareAmount:   fare,
			TipAmount:    tip,
			TotalAmount:  total,
		},
		DurationMinutes: 20,
		AvgSpeedMPH:     9,
		PickupZone:      "Central Harlem",
		DropoffZone:     "Bloomingdale",
		Condition:       entity.ConditionDryWarm,
	}
}

func testBucketer() *aggregate.HourBucketer {
	return aggregate.NewHourBucketer(config.NewConfig().Platform.Pipeline.RushHours)
}

func TestHourBucketer(t *testing.T) {
	b := testBucketer()
	assert.Equal(t, aggregate.BucketMorningRush, b.Bucket(8))
	assert.Equal(t, aggregate.BucketEveningRush, b.Bucket(17))
	assert.Equal(t, aggregate.BucketNight, b.Bucket(23))
	assert.Equal(t, aggregate.BucketNight, b.Bucket(2))
	assert.Equal(t, aggregate.BucketRegularHours, b.Bucket(11))
}

func TestDailyMetrics(t *testing.T) {
	rows := aggregate.DailyMetrics(testDate, []entity.EnrichedTrip{
		enrichedTrip(8, 20, 2, 24),
		enrichedTrip(9, 10, 0, 12),
	})
	require.Len(t, rows, 1)
	r := rows[0]

	assert.Equal(t, testDate, r.Date)
	assert.Equal(t, int64(2), r.TripCount)
	assert.InDelta(t, 36.0, r.TotalRevenue, 1e-9)
	assert.InDelta(t, 18.0, r.RevenuePerTrip, 1e-9)
	// (10% + 0%) / 2
	assert.InDelta(t, 5.0, r.AvgTipPct, 1e-9)
}

func TestDailyMetricsEmptyInput(t *testing.T) {
	assert.Empty(t, aggregate.DailyMetrics(testDate, nil))
}

func TestHourlyPatterns(t *testing.T) {
	rows := aggregate.HourlyPatterns(testDate, []entity.EnrichedTrip{
		enrichedTrip(8, 20, 2, 24),
		enrichedTrip(8, 10, 0, 12),
		enrichedTrip(12, 15, 1, 17),
	}, testBucketer())

	require.Len(t, rows, 2)
	byBucket := map[string]entity.HourlyPatternRow{}
	for _, r := range rows {
		byBucket[r.HourBucket] = r
	}
	assert.Equal(t, int64(2), byBucket[aggregate.BucketMorningRush].TripCount)
	assert.Equal(t, int64(1), byBucket[aggregate.BucketRegularHours].TripCount)
	assert.InDelta(t, 9.0, byBucket[aggregate.BucketMorningRush].AvgSpeedMPH, 1e-9)
}

func TestTopRoutesOrderingAndEfficiency(t *testing.T) {
	busy1 := enrichedTrip(8, 20, 2, 24)
	busy2 := enrichedTrip(9, 10, 0, 12)
	rare := enrichedTrip(10, 30, 3, 36)
	rare.PickupZone = "JFK Airport"

	rows := aggregate.TopRoutes(testDate, []entity.EnrichedTrip{busy1, busy2, rare})
	require.Len(t, rows, 2)

	// Busiest route first.
	assert.Equal(t, "Central Harlem", rows[0].PickupZone)
	assert.Equal(t, int64(2), rows[0].TripCount)
	assert.InDelta(t, 15.0, rows[0].AvgFare, 1e-9)
	// (24 + 12) revenue over 40 trip minutes.
	assert.InDelta(t, 0.9, rows[0].EfficiencyRatio, 1e-9)
}

func TestVendorPerformance(t *testing.T) {
	a := enrichedTrip(8, 20, 2, 24)
	b := enrichedTrip(9, 10, 0, 12)
	b.VendorID = 2

	rows := aggregate.VendorPerformance(testDate, []entity.EnrichedTrip{a, b})
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].VendorID)
	assert.InDelta(t, 24.0, rows[0].TotalRevenue, 1e-9)
	assert.InDelta(t, 10.0, rows[0].AvgTipPct, 1e-9)
	// 24 revenue over 20 minutes = 72/hour.
	assert.InDelta(t, 72.0, rows[0].RevenuePerHour, 1e-9)
}

func TestWeatherImpact(t *testing.T) {
	wet := enrichedTrip(8, 20, 2, 24)
	wet.Condition = entity.ConditionRainyCold

	rows := aggregate.WeatherImpact(testDate, []entity.EnrichedTrip{
		wet,
		enrichedTrip(9, 10, 0, 12),
	})
	require.Len(t, rows, 2)
	byCond := map[string]entity.WeatherImpactRow{}
	for _, r := range rows {
		byCond[r.Condition] = r
	}
	assert.Equal(t, int64(1), byCond[string(entity.ConditionRainyCold)].TripCount)
	assert.InDelta(t, 20.0, byCond[string(entity.ConditionRainyCold)].AvgFare, 1e-9)
	assert.InDelta(t, 20.0, byCond[string(entity.ConditionRainyCold)].AvgDurationMinutes, 1e-9)
}

func TestPaymentAnalysisTipPercentage(t *testing.T) {
	rows := aggregate.PaymentAnalysis(testDate, []entity.EnrichedTrip{
		enrichedTrip(8, 20, 2, 20),
	})
	require.Len(t, rows, 1)

	assert.Equal(t, "credit_card", rows[0].PaymentLabel)
	assert.Equal(t, int64(1), rows[0].TripCount)
	assert.InDelta(t, 20.0, rows[0].TotalRevenue, 1e-9)
	assert.InDelta(t, 10.0, rows[0].AvgTipPct, 1e-9)
}

func TestRatioSafetyOnZeroDenominators(t *testing.T) {
	zeroFare := enrichedTrip(8, 0, 2, 0)
	zeroFare.DurationMinutes = 0

	daily := aggregate.DailyMetrics(testDate, []entity.EnrichedTrip{zeroFare})
	require.Len(t, daily, 1)
	assert.Zero(t, daily[0].AvgTipPct)
	assert.Zero(t, daily[0].TotalRevenue)

	routes := aggregate.TopRoutes(testDate, []entity.EnrichedTrip{zeroFare})
	require.Len(t, routes, 1)
	assert.Zero(t, routes[0].EfficiencyRatio)

	vendors := aggregate.VendorPerformance(testDate, []entity.EnrichedTrip{zeroFare})
	require.Len(t, vendors, 1)
	assert.Zero(t, vendors[0].RevenuePerHour)
}

func TestSummarizeWeatherImpact(t *testing.T) {
	rows := []entity.WeatherImpactRow{
		{Date: "2024-01-01", Condition: "rainy_cold", TripCount: 10, AvgFare: 20, AvgDurationMinutes: 18},
		{Date: "2024-01-02", Condition: "rainy_cold", TripCount: 30, AvgFare: 10, AvgDurationMinutes: 22},
		{Date: "2024-01-02", Condition: "dry_warm", TripCount: 5, AvgFare: 12, AvgDurationMinutes: 15},
	}
	out := aggregate.SummarizeWeatherImpact(rows)
	require.Len(t, out, 2)

	// Sorted by condition: dry_warm, rainy_cold.
	rainy := out[1]
	assert.Equal(t, "rainy_cold", rainy.Condition)
	assert.Equal(t, int64(2), rainy.DayCount)
	assert.InDelta(t, 20.0, rainy.AvgTripsPerDay, 1e-9)
	// Trip-weighted: (10*20 + 30*10) / 40.
	assert.InDelta(t, 12.5, rainy.AvgFare, 1e-9)
}
