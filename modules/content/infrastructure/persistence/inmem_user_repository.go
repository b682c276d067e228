package persistence

import (
	"context"

	"github.com/qoox/smartcsv/modules/content/domain/user"
)

type InmemUserRepository struct {
	byID    *SafeMap[int64, user.User]
	byLogin *SafeMap[string, user.User]
}

func NewInmemUserRepository(users ...user.User) *InmemUserRepository {
	r := &InmemUserRepository{
		byID:    NewSafeMap[int64, user.User](),
		byLogin: NewSafeMap[string, user.User](),
	}
	for _, u := range users {
		r.byID.Set(u.ID, u)
		r.byLogin.Set(u.Login, u)
	}
	return r
}

func (r *InmemUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, found := r.byID.Get(id)
	if !found {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (r *InmemUserRepository) FindByLogin(ctx context.Context, login string) (*user.User, error) {
	u, found := r.byLogin.Get(login)
	if !found {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}
