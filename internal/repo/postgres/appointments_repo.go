package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/carehub/internal/domain/appointment"
	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, patient_id, doctor_id, schedule_id, video_calling_id, status, payment_status, created_at, updated_at`

// appointmentColumnsA is appointmentColumns qualified for queries that alias appointments as a.
const appointmentColumnsA = `a.id, a.patient_id, a.doctor_id, a.schedule_id, a.video_calling_id, a.status, a.payment_status, a.created_at, a.updated_at`

type AppointmentsRepo struct {
	base
}

func NewAppointmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AppointmentsRepo {
	return &AppointmentsRepo{base{pool: pool, prom: prom}}
}

// scanAppointment reads appointmentColumns followed by any extra destinations.
func scanAppointment(row pgx.Row, extra ...any) (appointment.Appointment, error) {
	var (
		a             appointment.Appointment
		status        string
		paymentStatus string
	)

	dest := append([]any{&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduleID, &a.VideoCallingID, &status, &paymentStatus, &a.CreatedAt, &a.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Appointment{}, appointment.ErrNotFound
		}
		return appointment.Appointment{}, err
	}

	a.Status = appointment.Status(status)
	a.PaymentStatus = payment.Status(paymentStatus)
	return a, nil
}

// Create books a slot for the patient and opens its PENDING payment for the doctor's fee.
func (r *AppointmentsRepo) Create(ctx context.Context, patientEmail string, req appointment.CreateRequest) (out appointment.WithPayment, err error) {
	err = r.observe("appointments.create", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			var patientID string
			err := tx.QueryRow(ctx, `SELECT id FROM patients WHERE email = $1 AND is_deleted = FALSE`, patientEmail).Scan(&patientID)
			if errors.Is(err, pgx.ErrNoRows) {
				return user.ErrProfileMissing
			}
			if err != nil {
				return err
			}

			var fee int64
			err = tx.QueryRow(ctx, `
				SELECT d.appointment_fee
				FROM doctors d, schedules s
				WHERE d.id = $1 AND d.is_deleted = FALSE AND s.id = $2`, req.DoctorID, req.ScheduleID).Scan(&fee)
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return appointment.ErrDoctorOrSlot
			}
			if err != nil {
				return err
			}

			a, err := scanAppointment(tx.QueryRow(ctx, `
				INSERT INTO appointments (id, patient_id, doctor_id, schedule_id, video_calling_id, status, payment_status)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
				RETURNING `+appointmentColumns,
				uuid.NewString(), patientID, req.DoctorID, req.ScheduleID, uuid.NewString(),
				string(appointment.StatusScheduled), string(payment.StatusPending)))
			if IsUniqueViolation(err) {
				return appointment.ErrSlotTaken
			}
			if err != nil {
				return err
			}

			p, err := scanPayment(tx.QueryRow(ctx, `
				INSERT INTO payments (id, appointment_id, amount, status)
				VALUES ($1,$2,$3,$4)
				RETURNING `+paymentColumns,
				uuid.NewString(), a.ID, fee, string(payment.StatusPending)))
			if err != nil {
				return err
			}

			out = appointment.WithPayment{Appointment: a, Payment: p}
			return nil
		})
	})
	return
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id string) (out appointment.WithPayment, err error) {
	err = r.observe("appointments.get_by_id", func() error {
		var patientEmail, doctorEmail string
		a, err := scanAppointment(r.pool.QueryRow(ctx, `
			SELECT `+appointmentColumnsA+`, pt.email, d.email
			FROM appointments a
			JOIN patients pt ON pt.id = a.patient_id
			JOIN doctors d ON d.id = a.doctor_id
			WHERE a.id = $1`, id), &patientEmail, &doctorEmail)
		if err != nil {
			return err
		}

		p, err := scanPayment(r.pool.QueryRow(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE appointment_id = $1`, id))
		if err != nil && !errors.Is(err, payment.ErrPaymentNotFound) {
			return err
		}

		out = appointment.WithPayment{Appointment: a, Payment: p, PatientEmail: patientEmail, DoctorEmail: doctorEmail}
		return nil
	})
	if isInvalidUUID(err) {
		return appointment.WithPayment{}, appointment.ErrNotFound
	}
	return
}
