// Package dimension loads the reference datasets used during enrichment:
// the taxi zone lookup and the hourly weather observations. Each dataset is
// loaded once per run into an immutable in-memory snapshot; lookups against
// a snapshot are read-only and safe for concurrent use across partitions.
package dimension

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

const moduleName = "dimension"

// ZoneSnapshot is an immutable view of the taxi zone lookup keyed by
// location ID.
type ZoneSnapshot struct {
	zones map[int64]entity.Zone
}

// NewZoneSnapshot builds a snapshot from in-memory zones.
func NewZoneSnapshot(zones []entity.Zone) *ZoneSnapshot {
	m := make(map[int64]entity.Zone, len(zones))
	for _, z := range zones {
		m[z.LocationID] = z
	}
	return &ZoneSnapshot{zones: m}
}

// Lookup resolves a location ID to its zone. The second return value is
// false when the ID is absent from the snapshot.
func (s *ZoneSnapshot) Lookup(locationID int64) (entity.Zone, bool) {
	z, ok := s.zones[locationID]
	return z, ok
}

// Len returns the number of zones in the snapshot.
func (s *ZoneSnapshot) Len() int {
	return len(s.zones)
}

// LoadZones downloads and parses the zone lookup CSV from the lake storage.
// The file carries a header row: LocationID,Borough,Zone,service_zone.
func LoadZones(ctx context.Context, conn storage.StorageConnection, bucket, objectName string) (*ZoneSnapshot, error) {
	rows, err := readCSV(ctx, conn, bucket, objectName)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to load zone lookup '%s'", objectName), err, false, true)
	}

	zones := make(map[int64]entity.Zone, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, exception.NewPipelineError(moduleName,
				fmt.Sprintf("zone lookup '%s': row %d has %d columns, want 4", objectName, i+2, len(row)), nil, false, false)
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, exception.NewPipelineError(moduleName,
				fmt.Sprintf("zone lookup '%s': row %d has non-numeric location ID '%s'", objectName, i+2, row[0]), err, false, false)
		}
		zones[id] = entity.Zone{
			LocationID:  id,
			Borough:     row[1],
			Zone:        row[2],
			ServiceZone: row[3],
		}
	}
	logger.Debugf("Loaded %d taxi zones from '%s'.", len(zones), objectName)
	return &ZoneSnapshot{zones: zones}, nil
}

// readCSV downloads an object and parses it as a headered CSV, returning the
// data rows without the header.
func readCSV(ctx context.Context, conn storage.StorageConnection, bucket, objectName string) ([][]string, error) {
	rc, err := conn.Download(ctx, bucket, objectName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("object is empty")
	}
	return records[1:], nil
}
