package dimension

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

// weatherTimeLayout is the timestamp format of the hourly observations file.
const weatherTimeLayout = "2006-01-02 15:04:05"

// WeatherSnapshot is an immutable view of the hourly weather observations,
// keyed by observation hour (UTC, truncated).
type WeatherSnapshot struct {
	byHour map[time.Time]entity.WeatherObservation
	// hours is sorted ascending for the prior-hour fallback scan.
	hours       []time.Time
	matchWindow time.Duration
}

// NewWeatherSnapshot builds a snapshot from in-memory observations.
func NewWeatherSnapshot(observations []entity.WeatherObservation, matchWindowHours int) *WeatherSnapshot {
	byHour := make(map[time.Time]entity.WeatherObservation, len(observations))
	for _, obs := range observations {
		byHour[obs.Hour.UTC().Truncate(time.Hour)] = obs
	}
	hours := make([]time.Time, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })
	return &WeatherSnapshot{
		byHour:      byHour,
		hours:       hours,
		matchWindow: time.Duration(matchWindowHours) * time.Hour,
	}
}

// Lookup resolves the observation for a pickup timestamp. It first tries the
// exact pickup hour; if no observation exists for that hour it falls back to
// the nearest earlier observation within the match window. The second return
// value is false when no observation qualifies.
func (s *WeatherSnapshot) Lookup(pickup time.Time) (entity.WeatherObservation, bool) {
	hour := pickup.UTC().Truncate(time.Hour)
	if obs, ok := s.byHour[hour]; ok {
		return obs, true
	}

	// Nearest observation strictly before the pickup hour, bounded by the
	// match window. Later observations never substitute for earlier hours.
	idx := sort.Search(len(s.hours), func(i int) bool {
		return !s.hours[i].Before(hour)
	})
	if idx == 0 {
		return entity.WeatherObservation{}, false
	}
	prior := s.hours[idx-1]
	if hour.Sub(prior) > s.matchWindow {
		return entity.WeatherObservation{}, false
	}
	return s.byHour[prior], true
}

// Len returns the number of observations in the snapshot.
func (s *WeatherSnapshot) Len() int {
	return len(s.byHour)
}

// LoadWeather downloads and parses the hourly weather CSV from the lake
// storage. The file carries a header row:
// time,temp,dwpt,rhum,prcp,snow,wspd,pres. Empty cells are treated as zero
// except for the timestamp, which is required.
func LoadWeather(ctx context.Context, conn storage.StorageConnection, bucket, objectName string, matchWindowHours int) (*WeatherSnapshot, error) {
	rows, err := readCSV(ctx, conn, bucket, objectName)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to load weather observations '%s'", objectName), err, false, true)
	}

	observations := make([]entity.WeatherObservation, 0, len(rows))
	for i, row := range rows {
		if len(row) < 8 {
			return nil, exception.NewPipelineError(moduleName,
				fmt.Sprintf("weather file '%s': row %d has %d columns, want 8", objectName, i+2, len(row)), nil, false, false)
		}
		ts, err := time.ParseInLocation(weatherTimeLayout, row[0], time.UTC)
		if err != nil {
			return nil, exception.NewPipelineError(moduleName,
				fmt.Sprintf("weather file '%s': row %d has unparseable timestamp '%s'", objectName, i+2, row[0]), err, false, false)
		}
		observations = append(observations, entity.WeatherObservation{
			Hour:        ts.Truncate(time.Hour),
			TempC:       parseCell(row[1]),
			PrecipMM:    parseCell(row[4]),
			SnowMM:      parseCell(row[5]),
			WindKPH:     parseCell(row[6]),
			PressureHPa: parseCell(row[7]),
		})
	}

	logger.Debugf("Loaded %d hourly weather observations from '%s'.", len(observations), objectName)
	return NewWeatherSnapshot(observations, matchWindowHours), nil
}

// parseCell parses a numeric weather cell, defaulting empty or malformed
// cells to zero.
func parseCell(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
