package persistence

import (
	"context"
	"sort"

	"github.com/qoox/smartcsv/modules/content/domain/meta"
	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

type InmemMetaRepository struct {
	storage *SafeMap[int64, map[string]any]
	records record.Repository
	bus     eventbus.EventBus
}

// NewInmemMetaRepository stores metadata per record. Every mutation is
// announced on the bus so field discovery can invalidate its caches.
func NewInmemMetaRepository(records record.Repository, bus eventbus.EventBus) *InmemMetaRepository {
	return &InmemMetaRepository{
		storage: NewSafeMap[int64, map[string]any](),
		records: records,
		bus:     bus,
	}
}

func (r *InmemMetaRepository) Values(ctx context.Context, recordID int64) (map[string]any, error) {
	values, found := r.storage.Get(recordID)
	if !found {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

func (r *InmemMetaRepository) Get(ctx context.Context, recordID int64, key string) (any, error) {
	values, found := r.storage.Get(recordID)
	if !found {
		return nil, meta.ErrMetaNotFound
	}
	value, ok := values[key]
	if !ok {
		return nil, meta.ErrMetaNotFound
	}
	return value, nil
}

func (r *InmemMetaRepository) Set(ctx context.Context, recordID int64, key string, value any) error {
	values, found := r.storage.Get(recordID)
	if !found {
		values = make(map[string]any)
	} else {
		copied := make(map[string]any, len(values)+1)
		for k, v := range values {
			copied[k] = v
		}
		values = copied
	}
	values[key] = value
	r.storage.Set(recordID, values)

	if r.bus != nil {
		r.bus.Publish(meta.ChangedEvent{RecordID: recordID, Key: key})
	}
	return nil
}

func (r *InmemMetaRepository) Delete(ctx context.Context, recordID int64, key string) error {
	values, found := r.storage.Get(recordID)
	if !found {
		return nil
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	copied := make(map[string]any, len(values))
	for k, v := range values {
		if k != key {
			copied[k] = v
		}
	}
	r.storage.Set(recordID, copied)

	if r.bus != nil {
		r.bus.Publish(meta.ChangedEvent{RecordID: recordID, Key: key})
	}
	return nil
}

func (r *InmemMetaRepository) KeysForType(ctx context.Context, recordType string) ([]string, error) {
	recs, err := r.records.List(ctx, record.Query{Type: recordType})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, rec := range recs {
		values, found := r.storage.Get(rec.ID)
		if !found {
			continue
		}
		for k := range values {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
