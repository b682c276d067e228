package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
)

type termKey struct {
	dimension string
	slug      string
}

type recordDimKey struct {
	recordID  int64
	dimension string
}

type InmemTaxonomyRepository struct {
	mu     sync.Mutex
	nextID int64

	dims *SafeMap[string, taxonomy.Dimension]
	// binding order matters for field discovery, so bindings are kept
	// as ordered slices per type.
	bindings *SafeMap[string, []string]
	terms    *SafeMap[termKey, taxonomy.Term]
	termByID *SafeMap[int64, taxonomy.Term]
	assigned *SafeMap[recordDimKey, []int64]
}

func NewInmemTaxonomyRepository() *InmemTaxonomyRepository {
	return &InmemTaxonomyRepository{
		nextID:   1,
		dims:     NewSafeMap[string, taxonomy.Dimension](),
		bindings: NewSafeMap[string, []string](),
		terms:    NewSafeMap[termKey, taxonomy.Term](),
		termByID: NewSafeMap[int64, taxonomy.Term](),
		assigned: NewSafeMap[recordDimKey, []int64](),
	}
}

func (r *InmemTaxonomyRepository) DimensionsForType(ctx context.Context, recordType string) ([]taxonomy.Dimension, error) {
	slugs, _ := r.bindings.Get(recordType)
	out := make([]taxonomy.Dimension, 0, len(slugs))
	for _, slug := range slugs {
		if dim, found := r.dims.Get(slug); found {
			out = append(out, dim)
		}
	}
	return out, nil
}

func (r *InmemTaxonomyRepository) Exists(ctx context.Context, slug string) (bool, error) {
	_, found := r.dims.Get(slug)
	return found, nil
}

func (r *InmemTaxonomyRepository) Register(ctx context.Context, dim taxonomy.Dimension, recordType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.dims.Get(dim.Slug); found {
		dim = existing
	} else {
		r.dims.Set(dim.Slug, dim)
	}

	slugs, _ := r.bindings.Get(recordType)
	for _, s := range slugs {
		if s == dim.Slug {
			return nil
		}
	}
	r.bindings.Set(recordType, append(slugs, dim.Slug))
	return nil
}

func (r *InmemTaxonomyRepository) CustomDimensions(ctx context.Context) ([]taxonomy.Dimension, error) {
	var out []taxonomy.Dimension
	for _, dim := range r.dims.Values() {
		if dim.Custom {
			out = append(out, dim)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *InmemTaxonomyRepository) FindTermBySlug(ctx context.Context, dimension, slug string) (*taxonomy.Term, error) {
	term, found := r.terms.Get(termKey{dimension: dimension, slug: slug})
	if !found {
		return nil, taxonomy.ErrTermNotFound
	}
	return &term, nil
}

func (r *InmemTaxonomyRepository) CreateTerm(ctx context.Context, dimension, slug string) (*taxonomy.Term, error) {
	if _, found := r.dims.Get(dimension); !found {
		return nil, taxonomy.ErrDimensionNotFound
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.mu.Unlock()

	term := taxonomy.Term{
		ID:            id,
		DimensionSlug: dimension,
		Slug:          slug,
		Name:          slug,
	}
	r.terms.Set(termKey{dimension: dimension, slug: slug}, term)
	r.termByID.Set(id, term)
	return &term, nil
}

func (r *InmemTaxonomyRepository) SetRecordTerms(ctx context.Context, recordID int64, dimension string, termIDs []int64) error {
	if _, found := r.dims.Get(dimension); !found {
		return taxonomy.ErrDimensionNotFound
	}
	ids := make([]int64, len(termIDs))
	copy(ids, termIDs)
	r.assigned.Set(recordDimKey{recordID: recordID, dimension: dimension}, ids)
	return nil
}

func (r *InmemTaxonomyRepository) RecordTermSlugs(ctx context.Context, recordID int64, dimension string) ([]string, error) {
	ids, _ := r.assigned.Get(recordDimKey{recordID: recordID, dimension: dimension})
	slugs := make([]string, 0, len(ids))
	for _, id := range ids {
		if term, found := r.termByID.Get(id); found {
			slugs = append(slugs, term.Slug)
		}
	}
	return slugs, nil
}
