package revocation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/carehub/internal/redisclient"
	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rdb, err := redisclient.Open(ctx, redisclient.Config{Addr: addr})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb)
}

func TestRedisStore_RevokeThenCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := s.IsRevoked(ctx, jti)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatalf("fresh jti reported revoked")
	}

	if err := s.Revoke(ctx, jti, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err = s.IsRevoked(ctx, jti)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected jti to be revoked")
	}
}

func TestRedisStore_ExpiredTokenIsNotStored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	jti := uuid.NewString()

	if err := s.Revoke(ctx, jti, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err := s.IsRevoked(ctx, jti)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatalf("already expired token should not be stored")
	}
}
