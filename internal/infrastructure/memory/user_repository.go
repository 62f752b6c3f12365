// Package memory provides an in-memory UserRepository used by tests and
// queue-less local runs. Semantics mirror the postgres implementation:
// ids are monotonic and never reused, username is unique at creation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bunny/boardhole/internal/domain/entity"
	"github.com/bunny/boardhole/internal/domain/repository"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1, users: make(map[int64]*entity.User)}
}

func clone(u *entity.User) *entity.User {
	cp := *u
	cp.Roles = append([]entity.Role(nil), u.Roles...)
	return &cp
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicateUsername
		}
	}

	now := time.Now()
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = clone(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) List(_ context.Context, q repository.ListQuery) ([]*entity.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(q.Search)
	var matched []*entity.User
	for _, u := range r.users {
		if needle != "" &&
			!strings.Contains(strings.ToLower(u.Username), needle) &&
			!strings.Contains(strings.ToLower(u.Name), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if q.Offset < 0 || q.Offset >= len(matched) {
		return []*entity.User{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]*entity.User, 0, end-q.Offset)
	for _, u := range matched[q.Offset:end] {
		page = append(page, clone(u))
	}
	return page, total, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Email = u.Email
	stored.Name = u.Name
	stored.EmailVerified = u.EmailVerified
	stored.UpdatedAt = time.Now()
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Password = hash
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	// id counter is never rewound, so deleted ids are not reused
	delete(r.users, id)
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
