package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/carehub/internal/domain/specialty"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const specialtyColumns = `id, title, icon, created_at, updated_at`

type SpecialtiesRepo struct {
	base
}

func NewSpecialtiesRepo(pool *pgxpool.Pool, prom *observability.Prom) *SpecialtiesRepo {
	return &SpecialtiesRepo{base{pool: pool, prom: prom}}
}

func scanSpecialty(row pgx.Row) (specialty.Specialty, error) {
	var s specialty.Specialty
	err := row.Scan(&s.ID, &s.Title, &s.Icon, &s.CreatedAt, &s.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows), isInvalidUUID(err):
		return specialty.Specialty{}, specialty.ErrNotFound
	case IsUniqueViolation(err):
		return specialty.Specialty{}, specialty.ErrTitleTaken
	}
	return s, err
}

func (r *SpecialtiesRepo) Create(ctx context.Context, req specialty.CreateRequest) (s specialty.Specialty, err error) {
	err = r.observe("specialties.create", func() error {
		s, err = scanSpecialty(r.pool.QueryRow(ctx, `
			INSERT INTO specialties (id, title, icon) VALUES ($1,$2,$3)
			RETURNING `+specialtyColumns, uuid.NewString(), req.Title, req.Icon))
		return err
	})
	return
}

func (r *SpecialtiesRepo) List(ctx context.Context) (items []specialty.Specialty, err error) {
	err = r.observe("specialties.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+specialtyColumns+` FROM specialties ORDER BY title`)
		if err != nil {
			return err
		}
		defer rows.Close()

		items = make([]specialty.Specialty, 0)
		for rows.Next() {
			s, err := scanSpecialty(rows)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		return rows.Err()
	})
	return
}

func (r *SpecialtiesRepo) GetByID(ctx context.Context, id string) (s specialty.Specialty, err error) {
	err = r.observe("specialties.get_by_id", func() error {
		s, err = scanSpecialty(r.pool.QueryRow(ctx, `SELECT `+specialtyColumns+` FROM specialties WHERE id = $1`, id))
		return err
	})
	return
}

func (r *SpecialtiesRepo) Update(ctx context.Context, id string, req specialty.UpdateRequest) (s specialty.Specialty, err error) {
	err = r.observe("specialties.update", func() error {
		s, err = scanSpecialty(r.pool.QueryRow(ctx, `
			UPDATE specialties SET
			    title = COALESCE($2, title),
			    icon = COALESCE($3, icon),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+specialtyColumns, id, req.Title, req.Icon))
		return err
	})
	return
}

func (r *SpecialtiesRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("specialties.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM specialties WHERE id = $1`, id)
		return err
	})
	if isInvalidUUID(err) {
		return specialty.ErrNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return specialty.ErrNotFound
	}
	return nil
}
