package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

// AdapterFactory builds a StorageConnection from a decoded StorageConfig.
type AdapterFactory func(cfg StorageConfig, name string) (StorageConnection, error)

var (
	adapterRegistry = make(map[string]AdapterFactory)
	registryMutex   sync.RWMutex
)

// RegisterAdapter registers an AdapterFactory for the given storage type.
// Adapter packages call this from init so that importing them is enough to
// make the type resolvable.
func RegisterAdapter(storageType string, factory AdapterFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	if _, exists := adapterRegistry[storageType]; exists {
		logger.Warnf("Storage adapter for type '%s' already registered. Overwriting.", storageType)
	}
	adapterRegistry[storageType] = factory
}

// ConfigResolver resolves storage connections from the application
// configuration, establishing each named connection on first use.
type ConfigResolver struct {
	cfg         *config.Config
	connections map[string]StorageConnection
	mu          sync.RWMutex
}

// NewConfigResolver creates a resolver over the configured storage connections.
func NewConfigResolver(cfg *config.Config) StorageConnectionResolver {
	return &ConfigResolver{
		cfg:         cfg,
		connections: make(map[string]StorageConnection),
	}
}

// ResolveStorageConnection resolves a StorageConnection by name.
func (r *ConfigResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	r.mu.RLock()
	conn, ok := r.connections[name]
	r.mu.RUnlock()
	if ok {
		return conn, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok = r.connections[name]; ok {
		return conn, nil
	}

	rawConfig, ok := r.cfg.Platform.Storages[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration '%s' not found", name)
	}
	var storageCfg StorageConfig
	if err := mapstructure.Decode(rawConfig, &storageCfg); err != nil {
		return nil, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}

	registryMutex.RLock()
	factory, ok := adapterRegistry[storageCfg.Type]
	registryMutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage adapter registered for type '%s' (connection '%s')", storageCfg.Type, name)
	}

	conn, err := factory(storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage connection '%s': %w", name, err)
	}
	r.connections[name] = conn
	logger.Debugf("Initialized storage connection '%s' (%s).", name, storageCfg.Type)
	return conn, nil
}

// CloseAll closes all established connections.
func (r *ConfigResolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var multiErr error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(r.connections, name)
	}
	return multiErr
}
