package dimension_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/dimension"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage/local"
)

const testBucket = "warehouse"

func newTestConn(t *testing.T) storage.StorageConnection {
	t.Helper()
	conn, err := local.NewLocalAdapter(storage.StorageConfig{
		Type:    "local",
		BaseDir: t.TempDir(),
	}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func upload(t *testing.T, conn storage.StorageConnection, objectName, content string) {
	t.Helper()
	err := conn.Upload(context.Background(), testBucket, objectName, strings.NewReader(content), "text/csv")
	require.NoError(t, err)
}

func TestLoadZones(t *testing.T) {
	conn := newTestConn(t)
	upload(t, conn, "raw/taxi_zones.csv",
		"LocationID,Borough,Zone,service_zone\n"+
			"41,Manhattan,Central Harlem,Boro Zone\n"+
			"132,Queens,JFK Airport,Airports\n")

	zones, err := dimension.LoadZones(context.Background(), conn, testBucket, "raw/taxi_zones.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, zones.Len())

	z, ok := zones.Lookup(41)
	assert.True(t, ok)
	assert.Equal(t, "Manhattan", z.Borough)
	assert.Equal(t, "Central Harlem", z.Zone)

	_, ok = zones.Lookup(999)
	assert.False(t, ok)
}

func TestLoadZonesRejectsMalformedRow(t *testing.T) {
	conn := newTestConn(t)
	upload(t, conn, "raw/taxi_zones.csv",
		"LocationID,Borough,Zone,service_zone\n"+
			"not-a-number,Manhattan,Central Harlem,Boro Zone\n")

	_, err := dimension.LoadZones(context.Background(), conn, testBucket, "raw/taxi_zones.csv")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "non-numeric location ID")
}

const weatherCSV = "time,temp,dwpt,rhum,prcp,snow,wspd,pres\n" +
	"2024-01-01 08:00:00,4.5,1.0,76,0.0,0,11.2,1013.0\n" +
	"2024-01-01 09:00:00,5.1,1.2,74,1.4,0,12.0,1012.5\n" +
	"2024-01-01 14:00:00,7.8,2.0,70,0.0,0,9.6,1011.8\n"

func loadTestWeather(t *testing.T, windowHours int) *dimension.WeatherSnapshot {
	t.Helper()
	conn := newTestConn(t)
	upload(t, conn, "raw/central_park_weather.csv", weatherCSV)
	snap, err := dimension.LoadWeather(context.Background(), conn, testBucket, "raw/central_park_weather.csv", windowHours)
	require.NoError(t, err)
	return snap
}

func TestWeatherLookupExactHour(t *testing.T) {
	snap := loadTestWeather(t, 3)

	obs, ok := snap.Lookup(time.Date(2024, 1, 1, 9, 42, 11, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), obs.Hour)
	assert.InDelta(t, 5.1, obs.TempC, 1e-9)
	assert.InDelta(t, 1.4, obs.PrecipMM, 1e-9)
}

func TestWeatherLookupFallsBackToNearestPriorHour(t *testing.T) {
	snap := loadTestWeather(t, 3)

	// 11:00 has no observation; 09:00 is two hours back, inside the window.
	obs, ok := snap.Lookup(time.Date(2024, 1, 1, 11, 5, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), obs.Hour)
}

func TestWeatherLookupBeyondWindowMisses(t *testing.T) {
	snap := loadTestWeather(t, 3)

	// 13:00 is four hours past 09:00, and 14:00 is a later hour, which never
	// substitutes for an earlier one.
	_, ok := snap.Lookup(time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestWeatherLookupNeverUsesLaterObservation(t *testing.T) {
	snap := loadTestWeather(t, 3)

	_, ok := snap.Lookup(time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestWeatherParsesEmptyCellsAsZero(t *testing.T) {
	conn := newTestConn(t)
	upload(t, conn, "w.csv",
		"time,temp,dwpt,rhum,prcp,snow,wspd,pres\n"+
			"2024-01-01 08:00:00,4.5,,,,,,\n")
	snap, err := dimension.LoadWeather(context.Background(), conn, testBucket, "w.csv", 3)
	require.NoError(t, err)

	obs, ok := snap.Lookup(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Zero(t, obs.PrecipMM)
	assert.Zero(t, obs.SnowMM)
}
