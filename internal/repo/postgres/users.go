package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, role, status, need_password_change, created_at, updated_at`

type UsersRepo struct {
	base
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{pool: pool, prom: prom}}
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u      user.User
		role   string
		status string
	)

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &status, &u.NeedPasswordChange, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, err
	}

	u.Role = user.Role(role)
	u.Status = user.Status(status)
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	return
}

// GetActiveByEmail only returns users whose status is ACTIVE.
func (r *UsersRepo) GetActiveByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_active_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1 AND status = 'ACTIVE'`, email))
		return err
	})
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	if isInvalidUUID(err) {
		return user.User{}, user.ErrUserNotFound
	}
	return
}

// UpdatePassword stores a new hash. clearNeedChange resets the forced-change flag.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, hash string, clearNeedChange bool) error {
	var tag pgconn.CommandTag

	err := r.observe("users.update_password", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `
			UPDATE users
			SET password_hash = $2,
			    need_password_change = CASE WHEN $3 THEN FALSE ELSE need_password_change END,
			    updated_at = NOW()
			WHERE id = $1`, id, hash, clearNeedChange)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UsersRepo) UpdateStatus(ctx context.Context, id string, status user.Status) (u user.User, err error) {
	err = r.observe("users.update_status", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `
			UPDATE users SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, id, string(status)))
		return err
	})
	if isInvalidUUID(err) {
		return user.User{}, user.ErrUserNotFound
	}
	return
}

// List pages users with a case-insensitive email search plus exact filters.
func (r *UsersRepo) List(ctx context.Context, f user.ListFilter) (items []user.User, total int, err error) {
	f = f.Normalize()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.SearchTerm != "" {
		add("email ILIKE '%%' || $%d || '%%'", f.SearchTerm)
	}
	if f.Email != "" {
		add("email = $%d", f.Email)
	}
	if f.Role != "" {
		add("role = $%d", string(f.Role))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	err = r.observe("users.list", func() error {
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
			return err
		}

		q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
			userColumns, where, f.SortBy, f.SortOrder, len(args)+1, len(args)+2)

		rows, err := r.pool.Query(ctx, q, append(args, f.Limit, f.Offset())...)
		if err != nil {
			return err
		}
		defer rows.Close()

		items = make([]user.User, 0, f.Limit)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			items = append(items, u)
		}
		return rows.Err()
	})

	return
}

func (r *UsersRepo) insertUser(ctx context.Context, tx pgx.Tx, u user.User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), string(u.Status), u.NeedPasswordChange, u.CreatedAt, u.UpdatedAt)
	if IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) CreateAdmin(ctx context.Context, u user.User, a user.Admin) (user.Admin, error) {
	err := r.observe("users.create_admin", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if err := r.insertUser(ctx, tx, u); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO admins (id, email, name, profile_photo, contact_number, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				a.ID, a.Email, a.Name, a.ProfilePhoto, a.ContactNumber, a.CreatedAt, a.UpdatedAt)
			return err
		})
	})
	if err != nil {
		return user.Admin{}, err
	}
	return a, nil
}

func (r *UsersRepo) CreateDoctor(ctx context.Context, u user.User, d user.Doctor) (user.Doctor, error) {
	err := r.observe("users.create_doctor", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if err := r.insertUser(ctx, tx, u); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, email, name, profile_photo, contact_number, address,
				                     registration_number, experience, gender, appointment_fee,
				                     qualification, current_working_place, designation, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
				d.ID, d.Email, d.Name, d.ProfilePhoto, d.ContactNumber, d.Address,
				d.RegistrationNumber, d.Experience, d.Gender, d.AppointmentFee,
				d.Qualification, d.CurrentWorkingPlace, d.Designation, d.CreatedAt, d.UpdatedAt)
			return err
		})
	})
	if err != nil {
		return user.Doctor{}, err
	}
	return d, nil
}

func (r *UsersRepo) CreatePatient(ctx context.Context, u user.User, p user.Patient) (user.Patient, error) {
	err := r.observe("users.create_patient", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if err := r.insertUser(ctx, tx, u); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, email, name, profile_photo, contact_number, address, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				p.ID, p.Email, p.Name, p.ProfilePhoto, p.ContactNumber, p.Address, p.CreatedAt, p.UpdatedAt)
			return err
		})
	})
	if err != nil {
		return user.Patient{}, err
	}
	return p, nil
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
