package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSuperAdmin creates the SUPER_ADMIN login and its admin profile the
// first time the API boots with SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD set.
// Later boots leave an existing account untouched, password included.
func EnsureSuperAdmin(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SuperAdminEmail == "" || cfg.SuperAdminPassword == "" {
		return nil
	}

	var exists bool
	if err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, cfg.SuperAdminEmail,
	).Scan(&exists); err != nil {
		return fmt.Errorf("look up super admin: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := security.HashPassword(cfg.SuperAdminPassword, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash super admin password: %w", err)
	}

	// the profile is only written when this statement created the login
	_, err = pool.Exec(ctx, `
		WITH login AS (
			INSERT INTO users (id, email, password_hash, role, status, need_password_change)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			ON CONFLICT (email) DO NOTHING
			RETURNING email
		)
		INSERT INTO admins (id, email, name, contact_number)
		SELECT $6, email, $7, '' FROM login
		ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), cfg.SuperAdminEmail, hash,
		user.RoleSuperAdmin, user.StatusActive,
		uuid.NewString(), cfg.SuperAdminName,
	)
	if err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	return nil
}
