package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/carehub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevokedTokensRepo is the Postgres revocation store used when Redis is not configured.
type RevokedTokensRepo struct {
	base
}

func NewRevokedTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RevokedTokensRepo {
	return &RevokedTokensRepo{base{pool: pool, prom: prom}}
}

// Revoke is idempotent; revoking an already revoked id is a no-op.
func (r *RevokedTokensRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.observe("refresh_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO revoked_refresh_tokens (jti, expires_at)
			VALUES ($1, $2)
			ON CONFLICT (jti) DO NOTHING`, jti, expiresAt)
		return err
	})
}

func (r *RevokedTokensRepo) IsRevoked(ctx context.Context, jti string) (revoked bool, err error) {
	err = r.observe("refresh_tokens.is_revoked", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM revoked_refresh_tokens
				WHERE jti = $1 AND expires_at > NOW()
			)`, jti).Scan(&revoked)
	})
	return
}

// PurgeExpired drops rows whose token could no longer verify anyway.
func (r *RevokedTokensRepo) PurgeExpired(ctx context.Context) (n int64, err error) {
	err = r.observe("refresh_tokens.purge_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_refresh_tokens WHERE expires_at <= NOW()`)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return
}
