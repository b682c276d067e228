// Package taxonomy models categorization dimensions (category, tag,
// brand and the like) and the terms assigned to records within them.
package taxonomy

import (
	"context"
	"errors"
)

var (
	ErrDimensionNotFound = errors.New("dimension not found")
	ErrTermNotFound      = errors.New("term not found")
)

type Dimension struct {
	Slug         string
	Label        string
	Hierarchical bool
	// Custom marks dimensions created on the fly during import, as
	// opposed to the ones the host application registered itself.
	Custom bool
}

type Term struct {
	ID            int64
	DimensionSlug string
	Slug          string
	Name          string
}

type Repository interface {
	// DimensionsForType lists the dimensions applicable to a record
	// type, in registration order.
	DimensionsForType(ctx context.Context, recordType string) ([]Dimension, error)
	Exists(ctx context.Context, slug string) (bool, error)

	// Register creates a dimension and binds it to recordType.
	// Registering an existing dimension binds it to the extra type.
	Register(ctx context.Context, dim Dimension, recordType string) error

	// CustomDimensions lists the dimensions auto-created by imports,
	// so they can be re-registered after a restart.
	CustomDimensions(ctx context.Context) ([]Dimension, error)

	FindTermBySlug(ctx context.Context, dimension, slug string) (*Term, error)
	CreateTerm(ctx context.Context, dimension, slug string) (*Term, error)

	// SetRecordTerms replaces the record's term set in the given
	// dimension. Terms in other dimensions are untouched.
	SetRecordTerms(ctx context.Context, recordID int64, dimension string, termIDs []int64) error
	RecordTermSlugs(ctx context.Context, recordID int64, dimension string) ([]string, error)
}
