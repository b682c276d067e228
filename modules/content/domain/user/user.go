// Package user holds the minimal author directory the pipeline needs:
// resolving a login from the authorLogin column and rendering it back
// on export.
package user

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID    int64
	Login string
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
}
