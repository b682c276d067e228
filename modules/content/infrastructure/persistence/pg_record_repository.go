package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/qoox/smartcsv/modules/content/domain/record"
)

const recordColumns = `
	id,
	type,
	title,
	body,
	excerpt,
	status,
	slug,
	author_id,
	parent_id,
	sort_order,
	published_at,
	modified_at`

type PgRecordRepository struct {
	pool *pgxpool.Pool
}

func NewPgRecordRepository(pool *pgxpool.Pool) *PgRecordRepository {
	return &PgRecordRepository{pool: pool}
}

func scanRecord(row pgx.Row) (*record.Record, error) {
	var rec record.Record
	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.Title,
		&rec.Body,
		&rec.Excerpt,
		&rec.Status,
		&rec.Slug,
		&rec.AuthorID,
		&rec.ParentID,
		&rec.SortOrder,
		&rec.PublishedAt,
		&rec.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PgRecordRepository) GetByID(ctx context.Context, id int64) (*record.Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM content_records
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound
		}
		return nil, errors.Wrap(err, "failed to get record")
	}
	return rec, nil
}

func (r *PgRecordRepository) Create(ctx context.Context, rec *record.Record) (*record.Record, error) {
	created, err := scanRecord(r.pool.QueryRow(ctx, `
		INSERT INTO content_records (
			type,
			title,
			body,
			excerpt,
			status,
			slug,
			author_id,
			parent_id,
			sort_order,
			published_at,
			modified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+recordColumns+`
	`,
		rec.Type,
		rec.Title,
		rec.Body,
		rec.Excerpt,
		rec.Status,
		rec.Slug,
		rec.AuthorID,
		rec.ParentID,
		rec.SortOrder,
		rec.PublishedAt,
		rec.ModifiedAt,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create record")
	}
	return created, nil
}

func (r *PgRecordRepository) Update(ctx context.Context, rec *record.Record) (*record.Record, error) {
	updated, err := scanRecord(r.pool.QueryRow(ctx, `
		UPDATE content_records
		SET
			type = $1,
			title = $2,
			body = $3,
			excerpt = $4,
			status = $5,
			slug = $6,
			author_id = $7,
			parent_id = $8,
			sort_order = $9,
			published_at = $10,
			modified_at = $11
		WHERE id = $12
		RETURNING `+recordColumns+`
	`,
		rec.Type,
		rec.Title,
		rec.Body,
		rec.Excerpt,
		rec.Status,
		rec.Slug,
		rec.AuthorID,
		rec.ParentID,
		rec.SortOrder,
		rec.PublishedAt,
		rec.ModifiedAt,
		rec.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound
		}
		return nil, errors.Wrap(err, "failed to update record")
	}
	return updated, nil
}

func (r *PgRecordRepository) List(ctx context.Context, q record.Query) ([]*record.Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Type == record.TypeAll {
		conds = append(conds, "type != ALL("+arg(record.ExcludedFromAll)+")")
	} else {
		conds = append(conds, "type = "+arg(q.Type))
	}
	if len(q.Statuses) > 0 {
		conds = append(conds, "status = ANY("+arg(q.Statuses)+")")
	}
	if q.DateFrom != nil {
		conds = append(conds, "published_at >= "+arg(*q.DateFrom))
	}
	if q.DateTo != nil {
		conds = append(conds, "published_at <= "+arg(*q.DateTo))
	}

	sql := `
		SELECT ` + recordColumns + `
		FROM content_records
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY published_at DESC, id DESC`
	if q.Limit > 0 {
		sql += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		sql += " OFFSET " + arg(q.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query records")
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating records")
	}
	return out, nil
}

func (r *PgRecordRepository) Types(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name FROM content_record_types
		UNION
		SELECT DISTINCT type FROM content_records
		ORDER BY 1
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query record types")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan record type")
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating record types")
	}
	return out, nil
}

func (r *PgRecordRepository) TypeSupportsThumbnail(ctx context.Context, recordType string) (bool, error) {
	var supports bool
	err := r.pool.QueryRow(ctx, `
		SELECT supports_thumbnail FROM content_record_types WHERE name = $1
	`, recordType).Scan(&supports)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to query thumbnail support")
	}
	return supports, nil
}

func (r *PgRecordRepository) ThumbnailAssetID(ctx context.Context, recordID int64) (int64, error) {
	var assetID *int64
	err := r.pool.QueryRow(ctx, `
		SELECT thumbnail_asset_id FROM content_records WHERE id = $1
	`, recordID).Scan(&assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, record.ErrRecordNotFound
		}
		return 0, errors.Wrap(err, "failed to query thumbnail asset")
	}
	if assetID == nil {
		return 0, nil
	}
	return *assetID, nil
}

func (r *PgRecordRepository) SetThumbnailAssetID(ctx context.Context, recordID, assetID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE content_records SET thumbnail_asset_id = $1 WHERE id = $2
	`, assetID, recordID)
	if err != nil {
		return errors.Wrap(err, "failed to set thumbnail asset")
	}
	if tag.RowsAffected() == 0 {
		return record.ErrRecordNotFound
	}
	return nil
}
