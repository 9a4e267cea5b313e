// internal/repository/memory/user_repo.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rebill-service/internal/domain/user"
	xerrors "rebill-service/internal/pkg/errors"
)

// UserRepository is an in-memory user.Repository.
type UserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]*user.User)}
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return xerrors.ErrDuplicateEntry
		}
	}

	r.nextID++
	u.ID = r.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []user.User{}
	for _, u := range r.users {
		if u.Active {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if offset > 0 {
		if offset >= len(out) {
			return []user.User{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
