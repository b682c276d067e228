package persistence

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/qoox/smartcsv/modules/content/domain/meta"
	"github.com/qoox/smartcsv/pkg/eventbus"
)

// PgMetaRepository stores metadata values as JSONB rows keyed by
// record id and key.
type PgMetaRepository struct {
	pool *pgxpool.Pool
	bus  eventbus.EventBus
}

func NewPgMetaRepository(pool *pgxpool.Pool, bus eventbus.EventBus) *PgMetaRepository {
	return &PgMetaRepository{pool: pool, bus: bus}
}

func (r *PgMetaRepository) Values(ctx context.Context, recordID int64) (map[string]any, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, value
		FROM content_record_meta
		WHERE record_id = $1
	`, recordID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metadata")
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan metadata")
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, errors.Wrap(err, "failed to decode metadata value")
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating metadata")
	}
	return out, nil
}

func (r *PgMetaRepository) Get(ctx context.Context, recordID int64, key string) (any, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM content_record_meta
		WHERE record_id = $1 AND key = $2
	`, recordID, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, meta.ErrMetaNotFound
		}
		return nil, errors.Wrap(err, "failed to get metadata")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata value")
	}
	return value, nil
}

func (r *PgMetaRepository) Set(ctx context.Context, recordID int64, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode metadata value")
	}
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO content_record_meta (record_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id, key) DO UPDATE SET value = EXCLUDED.value
	`, recordID, key, raw); err != nil {
		return errors.Wrap(err, "failed to set metadata")
	}

	if r.bus != nil {
		r.bus.Publish(meta.ChangedEvent{RecordID: recordID, Key: key})
	}
	return nil
}

func (r *PgMetaRepository) Delete(ctx context.Context, recordID int64, key string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM content_record_meta
		WHERE record_id = $1 AND key = $2
	`, recordID, key)
	if err != nil {
		return errors.Wrap(err, "failed to delete metadata")
	}

	if tag.RowsAffected() > 0 && r.bus != nil {
		r.bus.Publish(meta.ChangedEvent{RecordID: recordID, Key: key})
	}
	return nil
}

func (r *PgMetaRepository) KeysForType(ctx context.Context, recordType string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT m.key
		FROM content_record_meta m
		JOIN content_records rec ON rec.id = m.record_id
		WHERE rec.type = $1
		ORDER BY m.key ASC
	`, recordType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metadata keys")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "failed to scan metadata key")
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating metadata keys")
	}
	return out, nil
}
