package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/qoox/smartcsv/modules/content/domain/taxonomy"
)

type PgTaxonomyRepository struct {
	pool *pgxpool.Pool
}

func NewPgTaxonomyRepository(pool *pgxpool.Pool) *PgTaxonomyRepository {
	return &PgTaxonomyRepository{pool: pool}
}

func (r *PgTaxonomyRepository) DimensionsForType(ctx context.Context, recordType string) ([]taxonomy.Dimension, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.slug, d.label, d.hierarchical, d.custom
		FROM content_dimensions d
		JOIN content_dimension_types dt ON dt.dimension_slug = d.slug
		WHERE dt.record_type = $1
		ORDER BY dt.position ASC
	`, recordType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query dimensions")
	}
	defer rows.Close()

	var out []taxonomy.Dimension
	for rows.Next() {
		var dim taxonomy.Dimension
		if err := rows.Scan(&dim.Slug, &dim.Label, &dim.Hierarchical, &dim.Custom); err != nil {
			return nil, errors.Wrap(err, "failed to scan dimension")
		}
		out = append(out, dim)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating dimensions")
	}
	return out, nil
}

func (r *PgTaxonomyRepository) Exists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM content_dimensions WHERE slug = $1)
	`, slug).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check dimension")
	}
	return exists, nil
}

func (r *PgTaxonomyRepository) Register(ctx context.Context, dim taxonomy.Dimension, recordType string) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO content_dimensions (slug, label, hierarchical, custom)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO NOTHING
	`, dim.Slug, dim.Label, dim.Hierarchical, dim.Custom); err != nil {
		return errors.Wrap(err, "failed to insert dimension")
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO content_dimension_types (dimension_slug, record_type)
		VALUES ($1, $2)
		ON CONFLICT (dimension_slug, record_type) DO NOTHING
	`, dim.Slug, recordType); err != nil {
		return errors.Wrap(err, "failed to bind dimension to type")
	}
	return nil
}

func (r *PgTaxonomyRepository) CustomDimensions(ctx context.Context) ([]taxonomy.Dimension, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slug, label, hierarchical, custom
		FROM content_dimensions
		WHERE custom
		ORDER BY slug ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query custom dimensions")
	}
	defer rows.Close()

	var out []taxonomy.Dimension
	for rows.Next() {
		var dim taxonomy.Dimension
		if err := rows.Scan(&dim.Slug, &dim.Label, &dim.Hierarchical, &dim.Custom); err != nil {
			return nil, errors.Wrap(err, "failed to scan custom dimension")
		}
		out = append(out, dim)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating custom dimensions")
	}
	return out, nil
}

func (r *PgTaxonomyRepository) FindTermBySlug(ctx context.Context, dimension, slug string) (*taxonomy.Term, error) {
	var term taxonomy.Term
	err := r.pool.QueryRow(ctx, `
		SELECT id, dimension_slug, slug, name
		FROM content_terms
		WHERE dimension_slug = $1 AND slug = $2
	`, dimension, slug).Scan(&term.ID, &term.DimensionSlug, &term.Slug, &term.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taxonomy.ErrTermNotFound
		}
		return nil, errors.Wrap(err, "failed to find term")
	}
	return &term, nil
}

func (r *PgTaxonomyRepository) CreateTerm(ctx context.Context, dimension, slug string) (*taxonomy.Term, error) {
	var term taxonomy.Term
	err := r.pool.QueryRow(ctx, `
		INSERT INTO content_terms (dimension_slug, slug, name)
		VALUES ($1, $2, $2)
		RETURNING id, dimension_slug, slug, name
	`, dimension, slug).Scan(&term.ID, &term.DimensionSlug, &term.Slug, &term.Name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create term")
	}
	return &term, nil
}

func (r *PgTaxonomyRepository) SetRecordTerms(ctx context.Context, recordID int64, dimension string, termIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM content_record_terms
		WHERE record_id = $1 AND dimension_slug = $2
	`, recordID, dimension); err != nil {
		return errors.Wrap(err, "failed to clear record terms")
	}

	for _, termID := range termIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO content_record_terms (record_id, dimension_slug, term_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, recordID, dimension, termID); err != nil {
			return errors.Wrap(err, "failed to assign term")
		}
	}
	return errors.Wrap(tx.Commit(ctx), "failed to commit record terms")
}

func (r *PgTaxonomyRepository) RecordTermSlugs(ctx context.Context, recordID int64, dimension string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.slug
		FROM content_record_terms rt
		JOIN content_terms t ON t.id = rt.term_id
		WHERE rt.record_id = $1 AND rt.dimension_slug = $2
		ORDER BY t.slug ASC
	`, recordID, dimension)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query record terms")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, errors.Wrap(err, "failed to scan term slug")
		}
		out = append(out, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating term slugs")
	}
	return out, nil
}
