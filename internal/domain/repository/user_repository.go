package repository

import (
	"context"
	"errors"

	"github.com/bunny/boardhole/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the given key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned when a create collides on username.
	ErrDuplicateUsername = errors.New("username already taken")
)

// ListQuery carries already-clamped pagination and an optional search filter.
// An empty Search matches all users.
type ListQuery struct {
	Offset int
	Limit  int
	Search string
}

// UserRepository defines the persistence operations of the user directory.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	List(ctx context.Context, q ListQuery) ([]*entity.User, int64, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}
