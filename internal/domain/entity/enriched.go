package entity

import "time"

// EnrichedTrip is a cleaned trip joined against the zone and weather
// dimensions, with derived metrics attached. Instances are immutable once
// written to a partition; re-enrichment replaces the whole partition.
type EnrichedTrip struct {
	TripRecord

	// Derived metrics.
	DurationMinutes float64
	AvgSpeedMPH     float64
	// SpeedClamped marks records whose near-zero duration made the raw speed
	// implausible; the value is clamped instead of the record being dropped.
	SpeedClamped bool

	// Zone dimension. A lookup miss degrades to UnknownZone, never a drop.
	PickupBorough  string
	PickupZone     string
	DropoffBorough string
	DropoffZone    string

	// Weather dimension. Nil pointers mean no observation matched within the
	// configured window.
	TempC    *float64
	PrecipMM *float64
	IsRainy  bool
	IsCold   bool
	IsHot    bool
	// WeatherHour is the matched observation hour; zero when unmatched.
	WeatherHour time.Time
	Condition   WeatherCondition
}

// EnrichedTripRow is the parquet representation of an EnrichedTrip. Weather
// fields are optional columns so unmatched hours stay null rather than zero.
type EnrichedTripRow struct {
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

	DurationMinutes float64 `parquet:"name=duration_minutes,type=DOUBLE"`
	AvgSpeedMPH     float64 `parquet:"name=avg_speed_mph,type=DOUBLE"`
	SpeedClamped    bool    `parquet:"name=speed_clamped,type=BOOLEAN"`

	PickupBorough  string `parquet:"name=pickup_borough,type=BYTE_ARRAY,convertedtype=UTF8"`
	PickupZone     string `parquet:"name=pickup_zone,type=BYTE_ARRAY,convertedtype=UTF8"`
	DropoffBorough string `parquet:"name=dropoff_borough,type=BYTE_ARRAY,convertedtype=UTF8"`
	DropoffZone    string `parquet:"name=dropoff_zone,type=BYTE_ARRAY,convertedtype=UTF8"`

	TempC       *float64 `parquet:"name=temperature_c,type=DOUBLE,repetitiontype=OPTIONAL"`
	PrecipMM    *float64 `parquet:"name=precipitation_mm,type=DOUBLE,repetitiontype=OPTIONAL"`
	IsRainy     bool     `parquet:"name=is_rainy,type=BOOLEAN"`
	IsCold      bool     `parquet:"name=is_cold,type=BOOLEAN"`
	IsHot       bool     `parquet:"name=is_hot,type=BOOLEAN"`
	WeatherHour int64    `parquet:"name=weather_hour,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	Condition   string   `parquet:"name=weather_condition,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// ToRow converts an EnrichedTrip to its parquet representation.
func (e EnrichedTrip) ToRow() EnrichedTripRow {
	row := EnrichedTripRow{
		VendorID:        e.VendorID,
		PickupTime:      e.PickupTime.UnixMilli(),
		DropoffTime:     e.DropoffTime.UnixMilli(),
		PassengerCount:  e.PassengerCount,
		TripDistance:    e.TripDistance,
		PULocationID:    e.PULocationID,
		DOLocationID:    e.DOLocationID,
		PaymentType:     e.PaymentType,
		FareAmount:      e.FareAmount,
		TipAmount:       e.TipAmount,
		TotalAmount:     e.TotalAmount,
		DurationMinutes: e.DurationMinutes,
		AvgSpeedMPH:     e.AvgSpeedMPH,
		SpeedClamped:    e.SpeedClamped,
		PickupBorough:   e.PickupBorough,
		PickupZone:      e.PickupZone,
		DropoffBorough:  e.DropoffBorough,
		DropoffZone:     e.DropoffZone,
		TempC:           e.TempC,
		PrecipMM:        e.PrecipMM,
		IsRainy:         e.IsRainy,
		IsCold:          e.IsCold,
		IsHot:           e.IsHot,
		Condition:       string(e.Condition),
	}
	if !e.WeatherHour.IsZero() {
		row.WeatherHour = e.WeatherHour.UnixMilli()
	}
	return row
}

// ToEnriched converts a parquet row back to the domain representation.
func (r EnrichedTripRow) ToEnriched() EnrichedTrip {
	e := EnrichedTrip{
		TripRecord: TripRecord{
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
		},
		DurationMinutes: r.DurationMinutes,
		AvgSpeedMPH:     r.AvgSpeedMPH,
		SpeedClamped:    r.SpeedClamped,
		PickupBorough:   r.PickupBorough,
		PickupZone:      r.PickupZone,
		DropoffBorough:  r.DropoffBorough,
		DropoffZone:     r.DropoffZone,
		TempC:           r.TempC,
		PrecipMM:        r.PrecipMM,
		IsRainy:         r.IsRainy,
		IsCold:          r.IsCold,
		IsHot:           r.IsHot,
		Condition:       WeatherCondition(r.Condition),
	}
	if r.WeatherHour != 0 {
		e.WeatherHour = time.UnixMilli(r.WeatherHour).UTC()
	}
	return e
}
