package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/qoox/smartcsv/modules/content/domain/attachment"
)

type PgAttachmentResolver struct {
	pool *pgxpool.Pool
}

func NewPgAttachmentResolver(pool *pgxpool.Pool) *PgAttachmentResolver {
	return &PgAttachmentResolver{pool: pool}
}

func (r *PgAttachmentResolver) ResolveURL(ctx context.Context, url string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM content_assets WHERE url = $1
	`, url).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, attachment.ErrAssetNotFound
		}
		return 0, errors.Wrap(err, "failed to resolve asset url")
	}
	return id, nil
}

func (r *PgAttachmentResolver) AssetURL(ctx context.Context, assetID int64) (string, error) {
	var url string
	err := r.pool.QueryRow(ctx, `
		SELECT url FROM content_assets WHERE id = $1
	`, assetID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", attachment.ErrAssetNotFound
		}
		return "", errors.Wrap(err, "failed to get asset url")
	}
	return url, nil
}
