package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/qoox/smartcsv/modules/content/domain/user"
)

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, login FROM content_users WHERE id = $1
	`, id).Scan(&u.ID, &u.Login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	return &u, nil
}

func (r *PgUserRepository) FindByLogin(ctx context.Context, login string) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, login FROM content_users WHERE login = $1
	`, login).Scan(&u.ID, &u.Login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to find user by login")
	}
	return &u, nil
}
