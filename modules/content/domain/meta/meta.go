// Package meta models the free-form metadata attached to records.
// Values are arbitrary JSON-compatible data keyed by string.
package meta

import (
	"context"
	"errors"
)

var ErrMetaNotFound = errors.New("metadata entry not found")

// ChangedEvent is published on the event bus whenever a metadata entry
// is created, updated or deleted. Field discovery listens for it to
// drop its per-type key cache.
type ChangedEvent struct {
	RecordID int64
	Key      string
}

type Repository interface {
	// Values returns every metadata entry of a record.
	Values(ctx context.Context, recordID int64) (map[string]any, error)
	Get(ctx context.Context, recordID int64, key string) (any, error)
	Set(ctx context.Context, recordID int64, key string, value any) error
	Delete(ctx context.Context, recordID int64, key string) error

	// KeysForType returns the distinct metadata keys observed across
	// all records of a type, sorted.
	KeysForType(ctx context.Context, recordType string) ([]string, error)
}
