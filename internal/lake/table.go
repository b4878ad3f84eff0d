package lake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

const moduleName = "lake"

// WriteMode selects the partition write semantics.
type WriteMode int

const (
	// Append extends the partition with new files; existing files stay
	// visible. The raw tier writes in this mode.
	Append WriteMode = iota
	// OverwritePartition replaces the partition contents wholesale; files
	// from earlier commits become unreferenced. The enriched and aggregate
	// tiers write in this mode so re-runs never duplicate history.
	OverwritePartition
)

// Table is a typed, partitioned parquet table in object storage.
// T is the row struct carrying parquet tags.
type Table[T any] struct {
	name        string
	bucket      string
	conn        storage.StorageConnection
	compression parquet.CompressionCodec
}

// NewTable creates a handle on a lake table. The table needs no declare step:
// a table exists once one of its partitions has a committed manifest.
func NewTable[T any](conn storage.StorageConnection, bucket, name, compressionType string) (*Table[T], error) {
	codec, err := compressionCodec(compressionType)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, fmt.Sprintf("invalid compression type for table '%s'", name), err, false, false)
	}
	return &Table[T]{
		name:        name,
		bucket:      bucket,
		conn:        conn,
		compression: codec,
	}, nil
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

// WritePartition writes rows into one partition under the given mode and
// commits atomically. In Append mode an empty rows slice is a no-op; in
// OverwritePartition mode it commits an empty partition, removing all rows
// from the readable view.
func (t *Table[T]) WritePartition(ctx context.Context, partitionKey string, rows []T, mode WriteMode) error {
	if mode == Append && len(rows) == 0 {
		return nil
	}

	commitID := uuid.New().String()
	var files []string
	var priorRows int64

	if mode == Append {
		prior, ok, err := readManifest(ctx, t.conn, t.bucket, t.name, partitionKey)
		if err != nil {
			return exception.NewPartitionCommitFailure(moduleName, t.name, partitionKey, err)
		}
		if ok {
			files = append(files, prior.Files...)
			priorRows = prior.Rows
		}
	}

	if len(rows) > 0 {
		objectName, err := t.writeDataFile(ctx, partitionKey, commitID, rows)
		if err != nil {
			return exception.NewPartitionCommitFailure(moduleName, t.name, partitionKey, err)
		}
		files = append(files, objectName)
	}

	manifest := &Manifest{
		Table:       t.name,
		Partition:   partitionKey,
		Files:       files,
		Rows:        priorRows + int64(len(rows)),
		CommitID:    commitID,
		CommittedAt: time.Now().UTC(),
	}
	if mode == OverwritePartition {
		manifest.Rows = int64(len(rows))
	}
	if err := writeManifest(ctx, t.conn, t.bucket, manifest); err != nil {
		return exception.NewPartitionCommitFailure(moduleName, t.name, partitionKey, err)
	}

	logger.Debugf("Committed partition '%s' of table '%s': %d files, %d rows (commit %s).",
		partitionKey, t.name, len(manifest.Files), manifest.Rows, commitID)
	return nil
}

// writeDataFile encodes rows into a single parquet object and uploads it.
// The object carries the commit id in its name, so an aborted commit leaves
// only an unreferenced file behind.
func (t *Table[T]) writeDataFile(ctx context.Context, partitionKey, commitID string, rows []T) (string, error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(T), 1)
	if err != nil {
		return "", fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = t.compression

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := stopWriter(pw); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("%s/part-%s-%s.parquet",
		partitionPrefix(t.name, partitionKey), time.Now().UTC().Format("20060102150405"), commitID[:8])
	if err := t.conn.Upload(ctx, t.bucket, objectName, buf, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("failed to upload data file '%s': %w", objectName, err)
	}
	return objectName, nil
}

// stopWriter finalizes a parquet writer, converting library panics to errors.
func stopWriter(pw *writer.ParquetWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked during finalization: %v", r)
		}
	}()
	if stopErr := pw.WriteStop(); stopErr != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", stopErr)
	}
	return nil
}

// ReadPartition returns all committed rows of one partition. A partition with
// no committed manifest reads as empty.
func (t *Table[T]) ReadPartition(ctx context.Context, partitionKey string) ([]T, error) {
	manifest, ok, err := readManifest(ctx, t.conn, t.bucket, t.name, partitionKey)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to read manifest for partition '%s' of table '%s'", partitionKey, t.name), err, false, true)
	}
	if !ok {
		return nil, nil
	}

	var rows []T
	for _, objectName := range manifest.Files {
		fileRows, err := t.readDataFile(ctx, objectName)
		if err != nil {
			return nil, exception.NewPipelineError(moduleName,
				fmt.Sprintf("failed to read data file '%s' of table '%s'", objectName, t.name), err, false, true)
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// ReadPartitions reads several partitions in key order and concatenates the rows.
func (t *Table[T]) ReadPartitions(ctx context.Context, partitionKeys []string) ([]T, error) {
	var rows []T
	for _, key := range partitionKeys {
		partitionRows, err := t.ReadPartition(ctx, key)
		if err != nil {
			return nil, err
		}
		rows = append(rows, partitionRows...)
	}
	return rows, nil
}

// PartitionRowCount returns the committed row count of a partition without
// reading its data files.
func (t *Table[T]) PartitionRowCount(ctx context.Context, partitionKey string) (int64, error) {
	manifest, ok, err := readManifest(ctx, t.conn, t.bucket, t.name, partitionKey)
	if err != nil || !ok {
		return 0, err
	}
	return manifest.Rows, nil
}

// readDataFile downloads one parquet object and decodes all of its rows.
func (t *Table[T]) readDataFile(ctx context.Context, objectName string) ([]T, error) {
	rc, err := t.conn.Download(ctx, t.bucket, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to download '%s': %w", objectName, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", objectName, err)
	}

	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(fr, new(T), 1)
	if err != nil {
		fr.Close()
		return nil, fmt.Errorf("failed to create parquet reader for '%s': %w", objectName, err)
	}

	num := int(pr.GetNumRows())
	rows := make([]T, num)
	if num > 0 {
		if err := pr.Read(&rows); err != nil {
			pr.ReadStop()
			fr.Close()
			return nil, fmt.Errorf("failed to decode rows from '%s': %w", objectName, err)
		}
	}
	pr.ReadStop()
	fr.Close()
	return rows, nil
}

// Vacuum deletes data files under a partition that are no longer referenced
// by its manifest. Aborted commits and overwritten files accumulate as
// unreferenced objects; vacuuming is safe at any time because readers only
// follow the manifest.
func (t *Table[T]) Vacuum(ctx context.Context, partitionKey string) error {
	manifest, ok, err := readManifest(ctx, t.conn, t.bucket, t.name, partitionKey)
	if err != nil {
		return err
	}
	referenced := make(map[string]bool)
	if ok {
		for _, f := range manifest.Files {
			referenced[f] = true
		}
	}

	var multiErr error
	prefix := partitionPrefix(t.name, partitionKey)
	err = t.conn.ListObjects(ctx, t.bucket, prefix, func(objectName string) error {
		if referenced[objectName] || strings.HasSuffix(objectName, manifestObjectName) {
			return nil
		}
		if delErr := t.conn.DeleteObject(ctx, t.bucket, objectName); delErr != nil {
			multiErr = multierror.Append(multiErr, delErr)
		}
		return nil
	})
	if err != nil {
		multiErr = multierror.Append(multiErr, err)
	}
	return multiErr
}

// compressionCodec maps a config string to a parquet codec.
func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
