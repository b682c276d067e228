// Package record defines the content record aggregate and its store.
// A record is one unit of publishable content: a product, an article,
// a page. Records are typed, and most import/export behavior keys off
// the type.
package record

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownType    = errors.New("unknown record type")
)

// TypeAll is the pseudo-type that addresses every concrete record type
// at once. It is valid for export and field discovery, never for a
// single record.
const TypeAll = "all"

const StatusDraft = "draft"

// ExcludedFromAll lists the internal record types a TypeAll query must
// never return.
var ExcludedFromAll = []string{"attachment", "revision", "nav_menu_item"}

type Record struct {
	ID          int64
	Type        string
	Title       string
	Body        string
	Excerpt     string
	Status      string
	Slug        string
	AuthorID    int64
	ParentID    int64
	SortOrder   int
	PublishedAt time.Time
	ModifiedAt  time.Time
}

// Query filters an export listing. Records always come back newest
// first by PublishedAt.
type Query struct {
	Type     string
	Statuses []string
	Limit    int
	Offset   int
	DateFrom *time.Time
	DateTo   *time.Time
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Record, error)
	Create(ctx context.Context, rec *Record) (*Record, error)
	Update(ctx context.Context, rec *Record) (*Record, error)
	List(ctx context.Context, q Query) ([]*Record, error)

	// Types returns the concrete record types the store knows about.
	Types(ctx context.Context) ([]string, error)

	TypeSupportsThumbnail(ctx context.Context, recordType string) (bool, error)
	ThumbnailAssetID(ctx context.Context, recordID int64) (int64, error)
	SetThumbnailAssetID(ctx context.Context, recordID, assetID int64) error
}
