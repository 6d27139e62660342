package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/carehub/internal/domain/schedule"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `id, start_date_time, end_date_time, created_at, updated_at`

type SchedulesRepo struct {
	base
}

func NewSchedulesRepo(pool *pgxpool.Pool, prom *observability.Prom) *SchedulesRepo {
	return &SchedulesRepo{base{pool: pool, prom: prom}}
}

func scanSchedule(row pgx.Row) (schedule.Schedule, error) {
	var s schedule.Schedule
	err := row.Scan(&s.ID, &s.StartDateTime, &s.EndDateTime, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return s, err
}

// CreateSlots inserts every slot that does not exist yet and returns only the new rows.
func (r *SchedulesRepo) CreateSlots(ctx context.Context, slots []schedule.Slot) (created []schedule.Schedule, err error) {
	err = r.observe("schedules.create_slots", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			created = make([]schedule.Schedule, 0, len(slots))
			for _, sl := range slots {
				s, err := scanSchedule(tx.QueryRow(ctx, `
					INSERT INTO schedules (id, start_date_time, end_date_time)
					VALUES ($1,$2,$3)
					ON CONFLICT (start_date_time, end_date_time) DO NOTHING
					RETURNING `+scheduleColumns, uuid.NewString(), sl.Start, sl.End))
				if errors.Is(err, schedule.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				created = append(created, s)
			}
			return nil
		})
	})
	return
}

func (r *SchedulesRepo) List(ctx context.Context, f schedule.ListFilter) (items []schedule.Schedule, total int, err error) {
	var (
		conds []string
		args  []any
	)

	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conds = append(conds, fmt.Sprintf("start_date_time >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, f.EndDate.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("end_date_time < $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	err = r.observe("schedules.list", func() error {
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM schedules`+where, args...).Scan(&total); err != nil {
			return err
		}

		q := fmt.Sprintf(`SELECT %s FROM schedules%s ORDER BY start_date_time ASC LIMIT $%d OFFSET $%d`,
			scheduleColumns, where, len(args)+1, len(args)+2)

		rows, err := r.pool.Query(ctx, q, append(args, f.Limit, pageOffset(f.Page, f.Limit))...)
		if err != nil {
			return err
		}
		defer rows.Close()

		items = make([]schedule.Schedule, 0, f.Limit)
		for rows.Next() {
			s, err := scanSchedule(rows)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		return rows.Err()
	})
	return
}

func (r *SchedulesRepo) GetByID(ctx context.Context, id string) (s schedule.Schedule, err error) {
	err = r.observe("schedules.get_by_id", func() error {
		s, err = scanSchedule(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
		return err
	})
	return
}

func (r *SchedulesRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("schedules.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
		return err
	})
	switch {
	case isInvalidUUID(err):
		return schedule.ErrNotFound
	case isForeignKeyViolation(err):
		return schedule.ErrInUse
	case err != nil:
		return err
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
