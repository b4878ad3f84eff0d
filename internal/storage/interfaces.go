// Package storage defines the common interfaces for the storage adapters
// backing the lake. The interfaces abstract object storage operations so the
// table store can run against different backends (local file system, GCS)
// through a unified API.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic object storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// 'data' is the stream of data to upload. 'contentType' is the MIME type.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects lists objects within the specified bucket and prefix.
	// The 'fn' callback is called for each object name found, allowing large
	// listings to be processed without loading everything into memory.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a named storage connection.
type StorageConnection interface {
	StorageExecutor

	// Close releases any resources held by the connection.
	Close() error
	// Type returns the adapter type (e.g., "local", "gcs").
	Type() string
	// Name returns the configured connection name.
	Name() string
}

// StorageConnectionResolver resolves storage connection instances by name.
type StorageConnectionResolver interface {
	// ResolveStorageConnection resolves a StorageConnection by its configured
	// name, establishing it on first use.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
	// CloseAll closes all connections established by this resolver.
	CloseAll() error
}

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	// Type of storage ("local" or "gcs").
	Type string `yaml:"type" mapstructure:"type"`
	// BucketName is the default bucket for operations.
	BucketName string `yaml:"bucket_name" mapstructure:"bucket_name"`
	// CredentialsFile is the path to a service account key for GCS.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	// BaseDir is the base directory for local file system operations.
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
}
