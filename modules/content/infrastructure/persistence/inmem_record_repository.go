package persistence

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/qoox/smartcsv/modules/content/domain/record"
)

// RecordTypeDef registers a record type with the in-memory store.
type RecordTypeDef struct {
	Name              string
	SupportsThumbnail bool
}

type InmemRecordRepository struct {
	mu      sync.Mutex
	nextID  int64
	types   *SafeMap[string, RecordTypeDef]
	storage *SafeMap[int64, record.Record]
	thumbs  *SafeMap[int64, int64]
}

func NewInmemRecordRepository(types ...RecordTypeDef) *InmemRecordRepository {
	r := &InmemRecordRepository{
		nextID:  1,
		types:   NewSafeMap[string, RecordTypeDef](),
		storage: NewSafeMap[int64, record.Record](),
		thumbs:  NewSafeMap[int64, int64](),
	}
	for _, def := range types {
		r.types.Set(def.Name, def)
	}
	return r
}

func (r *InmemRecordRepository) GetByID(ctx context.Context, id int64) (*record.Record, error) {
	rec, found := r.storage.Get(id)
	if !found {
		return nil, record.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *InmemRecordRepository) Create(ctx context.Context, rec *record.Record) (*record.Record, error) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.mu.Unlock()

	stored := *rec
	stored.ID = id
	r.storage.Set(id, stored)

	// Types arriving through import become known implicitly.
	if _, found := r.types.Get(stored.Type); !found {
		r.types.Set(stored.Type, RecordTypeDef{Name: stored.Type})
	}
	return &stored, nil
}

func (r *InmemRecordRepository) Update(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if _, found := r.storage.Get(rec.ID); !found {
		return nil, record.ErrRecordNotFound
	}
	stored := *rec
	r.storage.Set(stored.ID, stored)
	if _, found := r.types.Get(stored.Type); !found {
		r.types.Set(stored.Type, RecordTypeDef{Name: stored.Type})
	}
	return &stored, nil
}

func (r *InmemRecordRepository) List(ctx context.Context, q record.Query) ([]*record.Record, error) {
	all := r.storage.Values()

	matched := make([]*record.Record, 0, len(all))
	for i := range all {
		rec := all[i]
		if !matchType(rec.Type, q.Type) {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, rec.Status) {
			continue
		}
		if q.DateFrom != nil && rec.PublishedAt.Before(*q.DateFrom) {
			continue
		}
		if q.DateTo != nil && rec.PublishedAt.After(*q.DateTo) {
			continue
		}
		matched = append(matched, &rec)
	}

	// Newest first; fall back to id for a stable order.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PublishedAt.Equal(matched[j].PublishedAt) {
			return matched[i].PublishedAt.After(matched[j].PublishedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*record.Record{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func matchType(recType, queryType string) bool {
	if queryType == record.TypeAll {
		return !slices.Contains(record.ExcludedFromAll, recType)
	}
	return strings.EqualFold(recType, queryType)
}

func (r *InmemRecordRepository) Types(ctx context.Context) ([]string, error) {
	names := r.types.Keys()
	sort.Strings(names)
	return names, nil
}

func (r *InmemRecordRepository) TypeSupportsThumbnail(ctx context.Context, recordType string) (bool, error) {
	def, found := r.types.Get(recordType)
	if !found {
		return false, nil
	}
	return def.SupportsThumbnail, nil
}

func (r *InmemRecordRepository) ThumbnailAssetID(ctx context.Context, recordID int64) (int64, error) {
	assetID, found := r.thumbs.Get(recordID)
	if !found {
		return 0, nil
	}
	return assetID, nil
}

func (r *InmemRecordRepository) SetThumbnailAssetID(ctx context.Context, recordID, assetID int64) error {
	if _, found := r.storage.Get(recordID); !found {
		return record.ErrRecordNotFound
	}
	r.thumbs.Set(recordID, assetID)
	return nil
}
