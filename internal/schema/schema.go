// Package schema enforces the declared column contract on raw record batches
// before they are admitted into the raw tier. Validation is a pure check:
// the batch passes unchanged or is rejected wholesale, never coerced.
package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
)

const moduleName = "schema"

// ColumnType enumerates the primitive types of the column contract.
type ColumnType string

const (
	TypeInt64     ColumnType = "int64"
	TypeFloat64   ColumnType = "float64"
	TypeTimestamp ColumnType = "timestamp"
	TypeString    ColumnType = "string"
)

// Column declares one field of a source contract.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// Schema is an ordered column contract for one raw source type.
type Schema struct {
	// Source names the contract (e.g., "trips") for error reporting.
	Source  string
	Columns []Column
}

// Record is one raw record as decoded from an input file. Values are
// int64, float64, time.Time, string, or nil for a null field.
type Record map[string]interface{}

// Validate checks every record of the batch against the contract. It returns
// nil if all fields satisfy their type and nullability constraints; otherwise
// it returns a fatal error identifying the offending fields and the number of
// rows carrying at least one violation. A single malformed field rejects the
// entire batch.
func (s Schema) Validate(batch []Record) error {
	fieldViolations := make(map[string]int)
	badRows := 0

	for _, rec := range batch {
		rowBad := false
		for _, col := range s.Columns {
			v, present := rec[col.Name]
			if !present || v == nil {
				if !col.Nullable {
					fieldViolations[col.Name]++
					rowBad = true
				}
				continue
			}
			if !matchesType(v, col.Type) {
				fieldViolations[col.Name]++
				rowBad = true
			}
		}
		if rowBad {
			badRows++
		}
	}

	if badRows == 0 {
		return nil
	}

	fields := make([]string, 0, len(fieldViolations))
	for f := range fieldViolations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return exception.NewSchemaViolation(moduleName, strings.Join(fields, ","), badRows,
		fmt.Errorf("source '%s': %d of %d rows violate the declared contract", s.Source, badRows, len(batch)))
}

// matchesType reports whether a decoded value satisfies a column type.
func matchesType(v interface{}, t ColumnType) bool {
	switch t {
	case TypeInt64:
		_, ok := v.(int64)
		return ok
	case TypeFloat64:
		_, ok := v.(float64)
		return ok
	case TypeTimestamp:
		_, ok := v.(time.Time)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}

// TripSchema is the declared contract for raw yellow-taxi trip records.
// Passenger count and payment type are null in a small share of real TLC
// files, so they are admitted as nullable and defaulted downstream.
func TripSchema() Schema {
	return Schema{
		Source: "trips",
		Columns: []Column{
			{Name: "vendor_id", Type: TypeInt64},
			{Name: "tpep_pickup_datetime", Type: TypeTimestamp},
			{Name: "tpep_dropoff_datetime", Type: TypeTimestamp},
			{Name: "passenger_count", Type: TypeInt64, Nullable: true},
			{Name: "trip_distance", Type: TypeFloat64},
			{Name: "pu_location_id", Type: TypeInt64},
			{Name: "do_location_id", Type: TypeInt64},
			{Name: "payment_type", Type: TypeInt64, Nullable: true},
			{Name: "fare_amount", Type: TypeFloat64},
			{Name: "tip_amount", Type: TypeFloat64},
			{Name: "total_amount", Type: TypeFloat64},
		},
	}
}
