// Package entity defines the domain records flowing through the pipeline:
// raw trips, dimension rows, enriched trips and the rollup rows derived from
// them. Each lake-persisted entity has a companion row struct carrying
// parquet tags, with converters in both directions.
package entity

import (
	"fmt"
	"time"
)

// TripRecord is a single yellow-taxi trip as admitted into the raw tier.
// Field names follow the TLC trip-record dictionary.
type TripRecord struct {
	VendorID       int64
	PickupTime     time.Time
	DropoffTime    time.Time
	PassengerCount int64
	TripDistance   float64
	PULocationID   int64
	DOLocationID   int64
	PaymentType    int64
	FareAmount     float64
	TipAmount      float64
	TotalAmount    float64
}

// PickupDate returns the event-date partition key (YYYY-MM-DD, UTC) derived
// from the pickup timestamp.
func (t TripRecord) PickupDate() string {
	return t.PickupTime.UTC().Format("2006-01-02")
}

// DedupKey returns the composite identity used for deduplication. The TLC
// schema carries no natural key, so identity is the
// (vendor, pickup, dropoff, location pair) tuple.
func (t TripRecord) DedupKey() string {
	return fmt.Sprintf("%d|%d|%d|%d|%d",
		t.VendorID, t.PickupTime.UnixMilli(), t.DropoffTime.UnixMilli(), t.PULocationID, t.DOLocationID)
}

// DurationMinutes returns the trip duration in minutes.
func (t TripRecord) DurationMinutes() float64 {
	return t.DropoffTime.Sub(t.PickupTime).Minutes()
}

// TripRow is the parquet representation of a TripRecord, with timestamps as
// epoch milliseconds.
type TripRow struct {
	VendorID       int64   `parquet:"name=vendor_id,type=INT64"`
	PickupTime     int64   `parquet:"name=tpep_pickup_datetime,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	DropoffTime    int64   `parquet:"name=tpep_dropoff_datetime,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	PassengerCount int64   `parquet:"name=passenger_count,type=INT64"`
	TripDistance   float64 `parquet:"name=trip_distance,type=DOUBLE"`
	PULocationID   int64   `parquet:"name=pu_location_id,type=INT64"`
	DOLocationID   int64   `parquet:"name=do_location_id,type=INT64"`
	PaymentType    int64   `parquet:"name=payment_type,type=INT64"`
	FareAmount     float64 `parquet:"name=fare_amount,type=DOUBLE"`
	TipAmount      float64 `parquet:"name=tip_amount,type=DOUBLE"`
	TotalAmount    float64 `parquet:"name=total_amount,type=DOUBLE"`
}

// ToRow converts a TripRecord to its parquet representation.
func (t TripRecord) ToRow() TripRow {
	return TripRow{
		VendorID:       t.VendorID,
		PickupTime:     t.PickupTime.UnixMilli(),
		DropoffTime:    t.DropoffTime.UnixMilli(),
		PassengerCount: t.PassengerCount,
		TripDistance:   t.TripDistance,
		PULocationID:   t.PULocationID,
		DOLocationID:   t.DOLocationID,
		PaymentType:    t.PaymentType,
		FareAmount:     t.FareAmount,
		TipAmount:      t.TipAmount,
		TotalAmount:    t.TotalAmount,
	}
}

// ToRecord converts a parquet row back to the domain representation.
func (r TripRow) ToRecord() TripRecord {
	return TripRecord{
		VendorID:       r.VendorID,
		PickupTime:     time.UnixMilli(r.PickupTime).UTC(),
		DropoffTime:    time.UnixMilli(r.DropoffTime).UTC(),
		PassengerCount: r.PassengerCount,
		TripDistance:   r.TripDistance,
		PULocationID:   r.PULocationID,
		DOLocationID:   r.DOLocationID,
		PaymentType:    r.PaymentType,
		FareAmount:     r.FareAmount,
		TipAmount:      r.TipAmount,
		TotalAmount:    r.TotalAmount,
	}
}

// PaymentTypeLabel maps a TLC payment type code to its dictionary label.
// Unknown codes map to "unknown".
func PaymentTypeLabel(code int64) string {
	switch code {
	case 1:
		return "credit_card"
	case 2:
		return "cash"
	case 3:
		return "no_charge"
	case 4:
		return "dispute"
	case 6:
		return "voided_trip"
	default:
		return "unknown"
	}
}
