// Package lake implements the partitioned table store backing the raw,
// enriched and aggregate tiers. Tables are directories of parquet files in
// object storage, partitioned by event date. Every partition carries a
// manifest listing exactly the files that belong to it; the manifest is
// written last, in a single object write, so a partition commit is atomic:
// readers either see the previous manifest or the new one, never a
// half-written partition.
package lake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
)

// manifestObjectName is the per-partition manifest file name.
const manifestObjectName = "_MANIFEST.json"

// Manifest records the committed contents of one table partition.
type Manifest struct {
	// Table is the owning table name.
	Table string `json:"table"`
	// Partition is the partition key (YYYY-MM-DD).
	Partition string `json:"partition"`
	// Files lists the data objects, relative to the bucket root, that make up
	// the partition. Objects not listed here are invisible to readers.
	Files []string `json:"files"`
	// Rows is the total committed row count across Files.
	Rows int64 `json:"rows"`
	// CommitID identifies the commit that produced this manifest.
	CommitID string `json:"commit_id"`
	// CommittedAt is the commit timestamp.
	CommittedAt time.Time `json:"committed_at"`
}

// partitionPrefix returns the object prefix of a partition directory.
func partitionPrefix(table, partitionKey string) string {
	return fmt.Sprintf("%s/date=%s", table, partitionKey)
}

// manifestPath returns the object name of a partition manifest.
func manifestPath(table, partitionKey string) string {
	return fmt.Sprintf("%s/%s", partitionPrefix(table, partitionKey), manifestObjectName)
}

// readManifest loads the committed manifest of a partition.
// A missing manifest means the partition has never been committed; ok is
// false and err is nil in that case.
func readManifest(ctx context.Context, conn storage.StorageConnection, bucket, table, partitionKey string) (*Manifest, bool, error) {
	rc, err := conn.Download(ctx, bucket, manifestPath(table, partitionKey))
	if err != nil {
		// Adapters surface missing objects as wrapped not-exist errors. A
		// missing manifest is an uncommitted partition; anything else is a
		// real read failure.
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read manifest for partition '%s' of table '%s': %w", partitionKey, table, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("failed to decode manifest for partition '%s' of table '%s': %w", partitionKey, table, err)
	}
	return &m, true, nil
}

// writeManifest commits a manifest. This is the commit point of a partition
// write: once the manifest object is visible, the partition contents are the
// files it lists.
func writeManifest(ctx context.Context, conn storage.StorageConnection, bucket string, m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest for partition '%s' of table '%s': %w", m.Partition, m.Table, err)
	}
	return conn.Upload(ctx, bucket, manifestPath(m.Table, m.Partition), bytes.NewReader(data), "application/json")
}

// isNotExist reports whether err indicates a missing object on any backend.
func isNotExist(err error) bool {
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	// Backend errors that don't wrap os.ErrNotExist (e.g. GCS
	// object-not-exist) still carry the phrase.
	return containsNotExist(err.Error())
}

func containsNotExist(s string) bool {
	for _, marker := range []string{"no such file", "not exist", "doesn't exist"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
