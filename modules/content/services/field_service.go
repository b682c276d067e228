package services

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/qoox/smartcsv/modules/content/domain/meta"
	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

// CustomFieldSource contributes custom-field keys to schema discovery.
// Implementations return a key to label map for one record type.
type CustomFieldSource interface {
	ListFields(ctx context.Context, recordType string) (map[string]string, error)
}

// StaticFieldSource serves field definitions registered up front, the
// way a structured-field plugin would declare them.
type StaticFieldSource struct {
	fieldsByType map[string]map[string]string
}

func NewStaticFieldSource(fieldsByType map[string]map[string]string) *StaticFieldSource {
	return &StaticFieldSource{fieldsByType: fieldsByType}
}

func (s *StaticFieldSource) ListFields(ctx context.Context, recordType string) (map[string]string, error) {
	fields := s.fieldsByType[recordType]
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

type FieldServiceConfig struct {
	RecordRepo   record.Repository
	TaxonomyRepo taxonomy.Repository
	MetaRepo     meta.Repository
	Sources      []CustomFieldSource
	EventBus     eventbus.EventBus
	Logger       *logrus.Logger
}

// FieldService implements schema discovery: which CSV columns exist
// for a record type, grouped and ordered.
type FieldService struct {
	records record.Repository
	taxos   taxonomy.Repository
	metas   meta.Repository
	log     *logrus.Logger

	mu       sync.RWMutex
	sources  []CustomFieldSource
	keyCache map[string][]string
}

func NewFieldService(cfg FieldServiceConfig) *FieldService {
	s := &FieldService{
		records:  cfg.RecordRepo,
		taxos:    cfg.TaxonomyRepo,
		metas:    cfg.MetaRepo,
		sources:  cfg.Sources,
		log:      cfg.Logger,
		keyCache: make(map[string][]string),
	}
	if cfg.EventBus != nil {
		cfg.EventBus.Subscribe(s.onMetaChanged)
	}
	return s
}

// RegisterSource adds a custom-field source after construction.
// Discovery consults sources in registration order, first write wins.
func (s *FieldService) RegisterSource(source CustomFieldSource) {
	s.mu.Lock()
	s.sources = append(s.sources, source)
	s.mu.Unlock()
}

// onMetaChanged drops the observed-key cache for the affected record
// type. When the record cannot be resolved anymore the whole cache
// goes, which only costs a re-scan.
func (s *FieldService) onMetaChanged(e meta.ChangedEvent) {
	rec, err := s.records.GetByID(context.Background(), e.RecordID)
	if err != nil {
		s.mu.Lock()
		s.keyCache = make(map[string][]string)
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	delete(s.keyCache, rec.Type)
	s.mu.Unlock()
}

// GetAvailableFields returns the ordered field groups for a record
// type. The pseudo-type "all" yields only the basic group, since it
// addresses records of mixed types.
func (s *FieldService) GetAvailableFields(ctx context.Context, recordType string) ([]FieldGroup, error) {
	basic := FieldGroup{Key: GroupBasic, Label: "Basic Fields", Fields: basicFields}
	if recordType == record.TypeAll {
		return []FieldGroup{basic}, nil
	}

	groups := []FieldGroup{basic}

	supportsThumb, err := s.records.TypeSupportsThumbnail(ctx, recordType)
	if err != nil {
		return nil, err
	}
	if supportsThumb {
		groups = append(groups, FieldGroup{Key: GroupThumbnail, Label: "Featured Image", Fields: thumbnailFields})
	}

	dims, err := s.taxos.DimensionsForType(ctx, recordType)
	if err != nil {
		return nil, err
	}
	taxoFields := make([]Field, 0, len(dims))
	for _, dim := range dims {
		taxoFields = append(taxoFields, Field{Key: dim.Slug, Label: dim.Label})
	}
	groups = append(groups, FieldGroup{Key: GroupTaxonomies, Label: "Taxonomies", Fields: taxoFields})

	custom, err := s.customFields(ctx, recordType)
	if err != nil {
		return nil, err
	}
	groups = append(groups, FieldGroup{Key: GroupCustomFields, Label: "Custom Fields", Fields: custom})

	return groups, nil
}

// customFields merges every registered source in order, first write
// wins per key, then appends the keys observed on existing records.
// The result is sorted by key.
func (s *FieldService) customFields(ctx context.Context, recordType string) ([]Field, error) {
	s.mu.RLock()
	sources := make([]CustomFieldSource, len(s.sources))
	copy(sources, s.sources)
	s.mu.RUnlock()

	merged := make(map[string]string)
	for _, source := range sources {
		fields, err := source.ListFields(ctx, recordType)
		if err != nil {
			return nil, err
		}
		for key, label := range fields {
			if _, exists := merged[key]; !exists {
				merged[key] = label
			}
		}
	}

	observed, err := s.observedKeys(ctx, recordType)
	if err != nil {
		return nil, err
	}
	for _, key := range observed {
		if _, exists := merged[key]; !exists {
			merged[key] = key
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Field, 0, len(keys))
	for _, key := range keys {
		out = append(out, Field{Key: key, Label: merged[key]})
	}
	return out, nil
}

func (s *FieldService) observedKeys(ctx context.Context, recordType string) ([]string, error) {
	s.mu.RLock()
	cached, found := s.keyCache[recordType]
	s.mu.RUnlock()
	if found {
		return cached, nil
	}

	keys, err := s.metas.KeysForType(ctx, recordType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.keyCache[recordType] = keys
	s.mu.Unlock()

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"type": recordType,
			"keys": len(keys),
		}).Debug("rebuilt observed metadata key cache")
	}
	return keys, nil
}
