package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/qoox/smartcsv/modules/content/domain/attachment"
	"github.com/qoox/smartcsv/modules/content/domain/meta"
	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
	"github.com/qoox/smartcsv/modules/content/domain/user"
)

// cellTimeFormat is the timestamp layout used in CSV cells.
const cellTimeFormat = "2006-01-02 15:04:05"

type FieldResolverConfig struct {
	RecordRepo   record.Repository
	TaxonomyRepo taxonomy.Repository
	MetaRepo     meta.Repository
	UserRepo     user.Repository
	Attachments  attachment.Resolver
}

// FieldResolver extracts a single CSV cell value from a record. It is
// total over the discovered header set: unknown groups and unresolved
// lookups yield an empty string, never an error.
type FieldResolver struct {
	records     record.Repository
	taxos       taxonomy.Repository
	metas       meta.Repository
	users       user.Repository
	attachments attachment.Resolver
}

func NewFieldResolver(cfg FieldResolverConfig) *FieldResolver {
	return &FieldResolver{
		records:     cfg.RecordRepo,
		taxos:       cfg.TaxonomyRepo,
		metas:       cfg.MetaRepo,
		users:       cfg.UserRepo,
		attachments: cfg.Attachments,
	}
}

func (r *FieldResolver) Resolve(ctx context.Context, rec *record.Record, fieldKey, group string) string {
	switch group {
	case GroupBasic:
		return r.resolveBasic(ctx, rec, fieldKey)
	case GroupThumbnail:
		return r.resolveThumbnail(ctx, rec, fieldKey)
	case GroupTaxonomies:
		slugs, err := r.taxos.RecordTermSlugs(ctx, rec.ID, fieldKey)
		if err != nil {
			return ""
		}
		return strings.Join(slugs, termSeparator)
	case GroupCustomFields:
		value, err := r.metas.Get(ctx, rec.ID, fieldKey)
		if err != nil {
			return ""
		}
		return encodeMetaValue(value)
	}
	return ""
}

func (r *FieldResolver) resolveBasic(ctx context.Context, rec *record.Record, fieldKey string) string {
	switch fieldKey {
	case FieldID:
		return strconv.FormatInt(rec.ID, 10)
	case FieldType:
		return rec.Type
	case FieldTitle:
		return rec.Title
	case FieldBody:
		return rec.Body
	case FieldExcerpt:
		return rec.Excerpt
	case FieldStatus:
		return rec.Status
	case FieldPublishedAt:
		return formatCellTime(rec.PublishedAt)
	case FieldModifiedAt:
		return formatCellTime(rec.ModifiedAt)
	case FieldAuthorLogin:
		if rec.AuthorID == 0 {
			return ""
		}
		u, err := r.users.GetByID(ctx, rec.AuthorID)
		if err != nil {
			return ""
		}
		return u.Login
	case FieldSlug:
		return rec.Slug
	case FieldParentID:
		return strconv.FormatInt(rec.ParentID, 10)
	case FieldSortOrder:
		return strconv.Itoa(rec.SortOrder)
	}
	return ""
}

func (r *FieldResolver) resolveThumbnail(ctx context.Context, rec *record.Record, fieldKey string) string {
	assetID, err := r.records.ThumbnailAssetID(ctx, rec.ID)
	if err != nil || assetID == 0 {
		return ""
	}
	switch fieldKey {
	case FieldFeaturedImgID:
		return strconv.FormatInt(assetID, 10)
	case FieldFeaturedImage:
		url, err := r.attachments.AssetURL(ctx, assetID)
		if err != nil {
			return ""
		}
		return url
	}
	return ""
}

func formatCellTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(cellTimeFormat)
}

// encodeMetaValue renders a metadata value as a CSV cell. Strings pass
// through unchanged, composite values are JSON-encoded without HTML
// escaping so the cell round-trips through import.
func encodeMetaValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
