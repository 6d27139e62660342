package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/google/uuid"
)

type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

// Add stores u, filling id and timestamps when empty.
func (r *UsersRepo) Add(u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = user.StatusActive
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *UsersRepo) GetActiveByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return user.User{}, err
	}
	if !u.IsActive() {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id, hash string, clearNeedChange bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.ErrUserNotFound
	}

	u.PasswordHash = hash
	if clearNeedChange {
		u.NeedPasswordChange = false
	}
	u.UpdatedAt = time.Now().UTC()
	r.byID[id] = u
	return nil
}

func (r *UsersRepo) UpdateStatus(_ context.Context, id string, status user.Status) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}

	u.Status = status
	u.UpdatedAt = time.Now().UTC()
	r.byID[id] = u
	return u, nil
}
