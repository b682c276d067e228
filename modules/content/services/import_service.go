package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/qoox/smartcsv/modules/content/domain/attachment"
	"github.com/qoox/smartcsv/modules/content/domain/meta"
	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
	"github.com/qoox/smartcsv/modules/content/domain/user"
)

type ImportMode string

const (
	ModeUpdateOrCreate ImportMode = "update_or_create"
	ModeCreateOnly     ImportMode = "create_only"
)

// ParseImportMode maps a request string onto an import mode. An empty
// string means update_or_create.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.TrimSpace(s)) {
	case "", ModeUpdateOrCreate:
		return ModeUpdateOrCreate, nil
	case ModeCreateOnly:
		return ModeCreateOnly, nil
	}
	return "", errors.Errorf("invalid import mode %q", s)
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Tally aggregates per-row outcomes across a chunk or a whole job.
type Tally struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (t *Tally) Count(action Action) {
	switch action {
	case ActionCreated:
		t.Created++
	case ActionUpdated:
		t.Updated++
	case ActionSkipped:
		t.Skipped++
	}
}

func (t *Tally) Add(other Tally) {
	t.Created += other.Created
	t.Updated += other.Updated
	t.Skipped += other.Skipped
	t.Errors += other.Errors
}

type ImportServiceConfig struct {
	RecordRepo   record.Repository
	TaxonomyRepo taxonomy.Repository
	MetaRepo     meta.Repository
	UserRepo     user.Repository
	Attachments  attachment.Resolver
	// DefaultType is assigned to rows without a type column, "post"
	// when empty.
	DefaultType string
	Logger      *logrus.Logger
}

// ImportService is the per-row upsert engine.
type ImportService struct {
	records     record.Repository
	taxos       taxonomy.Repository
	metas       meta.Repository
	users       user.Repository
	attachments attachment.Resolver
	defaultType string
	log         *logrus.Logger
}

func NewImportService(cfg ImportServiceConfig) *ImportService {
	defaultType := cfg.DefaultType
	if defaultType == "" {
		defaultType = "post"
	}
	return &ImportService{
		records:     cfg.RecordRepo,
		taxos:       cfg.TaxonomyRepo,
		metas:       cfg.MetaRepo,
		users:       cfg.UserRepo,
		attachments: cfg.Attachments,
		defaultType: defaultType,
		log:         cfg.Logger,
	}
}

// ProcessRow runs one row through the import state machine. A failure
// comes back as a *RowError; the caller counts it and moves on.
func (s *ImportService) ProcessRow(ctx context.Context, row *RowMap, mode ImportMode) (Action, error) {
	// Step 1: type resolution.
	recordType := s.defaultType
	if t := row.Get(FieldType); t != "" {
		recordType = t
	}

	// Step 2: existing-record lookup. The id space is global, so the
	// stored type plays no part here. create_only never looks up.
	var existing *record.Record
	if mode == ModeUpdateOrCreate {
		if id, err := strconv.ParseInt(row.Get(FieldID), 10, 64); err == nil && id > 0 {
			if rec, err := s.records.GetByID(ctx, id); err == nil {
				existing = rec
			}
		}
	}

	// Step 3: base-field staging. Title and status are never left
	// blank; all other fields keep their stored value when the cell
	// is absent or empty.
	var rec record.Record
	if existing != nil {
		rec = *existing
	}
	rec.Type = recordType

	if title := row.Get(FieldTitle); title != "" {
		rec.Title = title
	} else if rec.Title == "" {
		rec.Title = "notitle"
	}
	if status := row.Get(FieldStatus); status != "" {
		rec.Status = status
	} else if rec.Status == "" {
		rec.Status = record.StatusDraft
	}
	if body := row.Get(FieldBody); body != "" {
		rec.Body = body
	}
	if excerpt := row.Get(FieldExcerpt); excerpt != "" {
		rec.Excerpt = excerpt
	}
	if slug := row.Get(FieldSlug); slug != "" {
		rec.Slug = slug
	}
	if v := row.Get(FieldParentID); v != "" {
		rec.ParentID = coerceInt64(v)
	}
	if v := row.Get(FieldSortOrder); v != "" {
		rec.SortOrder = int(coerceInt64(v))
	}
	if v := row.Get(FieldPublishedAt); v != "" {
		if t, ok := parseCellTime(v); ok {
			rec.PublishedAt = t
		}
	}
	if v := row.Get(FieldModifiedAt); v != "" {
		if t, ok := parseCellTime(v); ok {
			rec.ModifiedAt = t
		}
	}

	// Step 4: author resolution, silently skipped when it fails.
	if login := row.Get(FieldAuthorLogin); login != "" {
		if u, err := s.users.FindByLogin(ctx, login); err == nil {
			rec.AuthorID = u.ID
		}
	}

	// Step 5: create-or-update dispatch.
	var (
		saved  *record.Record
		action Action
		err    error
	)
	if existing != nil {
		saved, err = s.records.Update(ctx, &rec)
		action = ActionUpdated
	} else {
		now := time.Now()
		if rec.PublishedAt.IsZero() {
			rec.PublishedAt = now
		}
		if rec.ModifiedAt.IsZero() {
			rec.ModifiedAt = now
		}
		saved, err = s.records.Create(ctx, &rec)
		action = ActionCreated
	}
	if err != nil {
		return "", &RowError{Err: errors.Wrap(err, "record create/update failed")}
	}

	// Step 6: thumbnail attachment, id cell wins over URL cell.
	s.attachThumbnail(ctx, saved.ID, row)

	// Steps 7 and 8: remaining columns are categorization or metadata.
	if err := s.assignExtraColumns(ctx, saved, row); err != nil {
		return "", &RowError{Err: err}
	}

	return action, nil
}

func (s *ImportService) attachThumbnail(ctx context.Context, recordID int64, row *RowMap) {
	if v := row.Get(FieldFeaturedImgID); v != "" {
		if assetID, err := strconv.ParseInt(v, 10, 64); err == nil && assetID > 0 {
			if err := s.records.SetThumbnailAssetID(ctx, recordID, assetID); err != nil {
				s.debugf("failed to attach thumbnail by id: %v", err)
			}
		}
		return
	}
	if url := row.Get(FieldFeaturedImage); url != "" {
		assetID, err := s.attachments.ResolveURL(ctx, url)
		if err != nil {
			s.debugf("unresolved thumbnail url %q: %v", url, err)
			return
		}
		if err := s.records.SetThumbnailAssetID(ctx, recordID, assetID); err != nil {
			s.debugf("failed to attach thumbnail: %v", err)
		}
	}
}

// assignExtraColumns classifies every non-reserved column of the row.
// Categorization wins over metadata, and the decision is made per row
// because it depends on the cell's value.
func (s *ImportService) assignExtraColumns(ctx context.Context, rec *record.Record, row *RowMap) error {
	dims, err := s.taxos.DimensionsForType(ctx, rec.Type)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(dims))
	for _, dim := range dims {
		known[dim.Slug] = struct{}{}
	}

	for _, key := range row.Keys() {
		if _, reserved := reservedFieldSet[key]; reserved {
			continue
		}
		value := row.Get(key)
		if value == "" {
			continue
		}

		_, isKnown := known[key]
		if isKnown || looksLikeDimension(key, value) {
			if err := s.assignTerms(ctx, rec, key, value); err != nil {
				return err
			}
			continue
		}

		if err := s.metas.Set(ctx, rec.ID, key, decodeMetaValue(value)); err != nil {
			return errors.Wrapf(err, "failed to write metadata %q", key)
		}
	}
	return nil
}

// assignTerms splits the cell into term slugs and replaces the
// record's term set for the dimension, creating the dimension and any
// missing terms on the way.
func (s *ImportService) assignTerms(ctx context.Context, rec *record.Record, dimension, value string) error {
	exists, err := s.taxos.Exists(ctx, dimension)
	if err != nil {
		return err
	}
	if !exists {
		dim := taxonomy.Dimension{
			Slug:         dimension,
			Label:        dimension,
			Hierarchical: true,
			Custom:       true,
		}
		if err := s.taxos.Register(ctx, dim, rec.Type); err != nil {
			return errors.Wrapf(err, "failed to register dimension %q", dimension)
		}
	}

	var (
		termIDs []int64
		seen    = make(map[int64]struct{})
	)
	for _, part := range strings.Split(value, termSeparator) {
		slug := strings.TrimSpace(part)
		if slug == "" {
			continue
		}
		term, err := s.taxos.FindTermBySlug(ctx, dimension, slug)
		if errors.Is(err, taxonomy.ErrTermNotFound) {
			term, err = s.taxos.CreateTerm(ctx, dimension, slug)
		}
		if err != nil {
			return errors.Wrapf(err, "failed to resolve term %q in %q", slug, dimension)
		}
		if _, dup := seen[term.ID]; dup {
			continue
		}
		seen[term.ID] = struct{}{}
		termIDs = append(termIDs, term.ID)
	}

	return errors.Wrapf(
		s.taxos.SetRecordTerms(ctx, rec.ID, dimension, termIDs),
		"failed to assign terms in %q", dimension,
	)
}

// decodeMetaValue interprets a metadata cell: valid JSON is stored
// decoded, anything else as the raw string.
func decodeMetaValue(value string) any {
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return decoded
	}
	return value
}

func coerceInt64(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var cellTimeLayouts = []string{cellTimeFormat, time.RFC3339, "2006-01-02"}

// parseCellTime parses a timestamp cell leniently. An unparsable cell
// is treated as absent, not as a row error.
func parseCellTime(v string) (time.Time, bool) {
	for _, layout := range cellTimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *ImportService) debugf(format string, args ...any) {
	if s.log != nil {
		s.log.Debugf(format, args...)
	}
}
