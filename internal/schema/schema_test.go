package schema_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/schema"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
)

func validTripRecord() schema.Record {
	return schema.Record{
		"vendor_id":             int64(1),
		"tpep_pickup_datetime":  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"tpep_dropoff_datetime": time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC),
		"passenger_count":       int64(2),
		"trip_distance":         3.5,
		"pu_location_id":        int64(41),
		"do_location_id":        int64(24),
		"payment_type":          int64(1),
		"fare_amount":           15.5,
		"tip_amount":            3.0,
		"total_amount":          19.3,
	}
}

func TestValidateAcceptsConformingBatch(t *testing.T) {
	s := schema.TripSchema()
	batch := []schema.Record{validTripRecord(), validTripRecord()}
	assert.NoError(t, s.Validate(batch))
}

func TestValidateAcceptsNullNullableFields(t *testing.T) {
	s := schema.TripSchema()
	rec := validTripRecord()
	rec["passenger_count"] = nil
	rec["payment_type"] = nil
	assert.NoError(t, s.Validate([]schema.Record{rec}))
}

func TestValidateRejectsNullRequiredField(t *testing.T) {
	s := schema.TripSchema()
	rec := validTripRecord()
	rec["fare_amount"] = nil

	err := s.Validate([]schema.Record{rec, validTripRecord()})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrSchemaViolation))
	assert.Contains(t, err.Error(), "fare_amount")
}

func TestValidateRejectsWrongType(t *testing.T) {
	s := schema.TripSchema()
	rec := validTripRecord()
	rec["trip_distance"] = "3.5"

	err := s.Validate([]schema.Record{rec})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrSchemaViolation))
	assert.Contains(t, err.Error(), "trip_distance")
}

func TestValidateSingleBadFieldRejectsWholeBatch(t *testing.T) {
	s := schema.TripSchema()
	batch := make([]schema.Record, 10)
	for i := range batch {
		batch[i] = validTripRecord()
	}
	batch[7]["vendor_id"] = nil

	// One malformed field in one row fails the whole batch.
	err := s.Validate(batch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 10 rows")
}

func TestValidateReportsAllOffendingFields(t *testing.T) {
	s := schema.TripSchema()
	rec := validTripRecord()
	rec["vendor_id"] = nil
	rec["total_amount"] = "not a number"

	err := s.Validate([]schema.Record{rec})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "vendor_id")
	assert.Contains(t, err.Error(), "total_amount")
}
