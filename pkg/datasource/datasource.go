// Package datasource implements the uniform dimension-record storage
// abstraction (C1): an FS-backed variant and a MongoDB-backed variant
// behind one interface, selected once at construction time by a StorageKind
// tag rather than a cloneable trait object (SPEC_FULL.md §D.3).
package datasource

import "context"

// StorageKind selects a DataSource implementation.
type StorageKind string

const (
	KindFS StorageKind = "fs"
	KindDB StorageKind = "db"
)

// DataSource is the uniform interface over dimension-record storage,
// per spec.md §4.1.
type DataSource interface {
	// GetByName returns the record for name; when absent, it returns an
	// object holding only "name", not an empty object.
	GetByName(ctx context.Context, name string) (map[string]interface{}, error)
	// GetAll returns every mainline record (excluding defaults and
	// context-stamped records).
	GetAll(ctx context.Context) ([]map[string]interface{}, error)
	// GetAllNames returns the names of every mainline record.
	GetAllNames(ctx context.Context) ([]string, error)
	// GetAllTypes returns the dimension types known to this backend.
	GetAllTypes(ctx context.Context) ([]string, error)
	// GetDefaults returns the `_default`/`.default:*` record, or an empty
	// object if none exists.
	GetDefaults(ctx context.Context) (map[string]interface{}, error)

	// UpsertAll batch replace-or-inserts records by name + context filter.
	// No-op for the FS backend.
	UpsertAll(ctx context.Context, records []map[string]interface{}) error
	// UpsertByName replaces or inserts a single record. No-op for FS.
	UpsertByName(ctx context.Context, name string, data map[string]interface{}) error
	// DeleteByName deletes a single record. No-op for FS.
	DeleteByName(ctx context.Context, name string) error
	// DeleteAllByContext deletes every record stamped with the given
	// context. No-op for FS.
	DeleteAllByContext(ctx context.Context, context string) error

	// SetContext sets the per-instance context overlay (empty string
	// clears it).
	SetContext(value string)
	// GetContext returns the current context overlay, or "" if unset.
	GetContext() string

	// DimType reports which dimension type this DataSource instance serves.
	DimType() string
}
