package repository

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// DialectorFactory builds a gorm.Dialector from a DatabaseConfig.
type DialectorFactory func(cfg DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorMu       sync.RWMutex
	dialectorRegistry = make(map[string]DialectorFactory)
)

// RegisterDialector registers a factory for a database type. Driver
// subpackages call this from init; importing a driver package is what makes
// its type available.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMu.Lock()
	defer dialectorMu.Unlock()
	dialectorRegistry[dbType] = factory
}

// dialectorFor resolves the registered factory for a database type.
func dialectorFor(dbType string) (DialectorFactory, error) {
	dialectorMu.RLock()
	defer dialectorMu.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type '%s' (is the driver package imported?)", dbType)
	}
	return factory, nil
}
