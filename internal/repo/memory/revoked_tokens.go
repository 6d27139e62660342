package memory

import (
	"context"
	"sync"
	"time"
)

type RevokedTokens struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewRevokedTokens() *RevokedTokens {
	return &RevokedTokens{items: make(map[string]time.Time)}
}

func (r *RevokedTokens) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	r.items[jti] = expiresAt
	r.mu.Unlock()
	return nil
}

func (r *RevokedTokens) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(r.items, jti)
		return false, nil
	}
	return true, nil
}
