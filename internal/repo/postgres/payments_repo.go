package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, appointment_id, amount, status, gateway_ref, payment_intent_ref, gateway_customer, created_at, updated_at`

type PaymentsRepo struct {
	base
}

func NewPaymentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PaymentsRepo {
	return &PaymentsRepo{base{pool: pool, prom: prom}}
}

func scanPayment(row pgx.Row) (payment.Payment, error) {
	var (
		p      payment.Payment
		status string
	)

	err := row.Scan(&p.ID, &p.AppointmentID, &p.Amount, &status, &p.GatewayRef, &p.PaymentIntentRef, &p.GatewayCustomer, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.Payment{}, payment.ErrPaymentNotFound
		}
		return payment.Payment{}, err
	}

	p.Status = payment.Status(status)
	return p, nil
}

func (r *PaymentsRepo) GetByAppointmentID(ctx context.Context, appointmentID string) (p payment.Payment, err error) {
	err = r.observe("payments.get_by_appointment", func() error {
		p, err = scanPayment(r.pool.QueryRow(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE appointment_id = $1`, appointmentID))
		return err
	})
	if isInvalidUUID(err) {
		return payment.Payment{}, payment.ErrPaymentNotFound
	}
	return
}

// AttachSession records the hosted checkout session on a still pending payment.
func (r *PaymentsRepo) AttachSession(ctx context.Context, paymentID, sessionID string, customer *string) error {
	var tag pgconn.CommandTag

	err := r.observe("payments.attach_session", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `
			UPDATE payments
			SET gateway_ref = $2,
			    gateway_customer = COALESCE($3, gateway_customer),
			    updated_at = NOW()
			WHERE id = $1 AND status = 'PENDING'`, paymentID, sessionID, customer)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrAlreadySettled
	}
	return nil
}

// ApplyTransition moves the payment matching t.Reference out of PENDING and mirrors
// the new status onto its appointment, all in one transaction. The row lock plus the
// status guard make concurrent or repeated deliveries apply at most once.
func (r *PaymentsRepo) ApplyTransition(ctx context.Context, t payment.Transition) (res payment.TransitionResult, err error) {
	err = r.observe("payments.apply_transition", func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			current, err := scanPayment(tx.QueryRow(ctx, `
				SELECT `+paymentColumns+`
				FROM payments
				WHERE gateway_ref = $1 OR payment_intent_ref = $1
				ORDER BY created_at
				LIMIT 1
				FOR UPDATE`, t.Reference))
			if err != nil {
				return err
			}

			if current.Status.IsTerminal() {
				res = payment.TransitionResult{Payment: current}
				return nil
			}

			updated, err := scanPayment(tx.QueryRow(ctx, `
				UPDATE payments
				SET status = $2,
				    payment_intent_ref = COALESCE(NULLIF($3, ''), payment_intent_ref),
				    updated_at = NOW()
				WHERE id = $1 AND status = 'PENDING'
				RETURNING `+paymentColumns, current.ID, string(t.To), t.PaymentIntentRef))
			if errors.Is(err, payment.ErrPaymentNotFound) {
				res = payment.TransitionResult{Payment: current}
				return nil
			}
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `
				UPDATE appointments
				SET payment_status = $2, updated_at = NOW()
				WHERE id = $1`, updated.AppointmentID, string(t.To))
			if err != nil {
				return err
			}

			res = payment.TransitionResult{Payment: updated, Applied: true}
			return nil
		})
	})
	return
}

func (r *PaymentsRepo) GetCheckout(ctx context.Context, appointmentID string) (c payment.Checkout, err error) {
	err = r.observe("payments.get_checkout", func() error {
		var status string
		p := &c.Payment
		err := r.pool.QueryRow(ctx, `
			SELECT p.id, p.appointment_id, p.amount, p.status, p.gateway_ref, p.payment_intent_ref,
			       p.gateway_customer, p.created_at, p.updated_at, pt.email, d.name
			FROM payments p
			JOIN appointments a ON a.id = p.appointment_id
			JOIN patients pt ON pt.id = a.patient_id
			JOIN doctors d ON d.id = a.doctor_id
			WHERE p.appointment_id = $1`, appointmentID).Scan(
			&p.ID, &p.AppointmentID, &p.Amount, &status, &p.GatewayRef, &p.PaymentIntentRef,
			&p.GatewayCustomer, &p.CreatedAt, &p.UpdatedAt, &c.PatientEmail, &c.DoctorName,
		)
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return payment.ErrPaymentNotFound
		}
		p.Status = payment.Status(status)
		return err
	})
	return
}

func (r *PaymentsRepo) GetReceipt(ctx context.Context, paymentID string) (rc payment.Receipt, err error) {
	err = r.observe("payments.get_receipt", func() error {
		var status string
		err := r.pool.QueryRow(ctx, `
			SELECT p.id, p.appointment_id, p.amount, p.status,
			       pt.email, pt.name, d.name, s.start_date_time
			FROM payments p
			JOIN appointments a ON a.id = p.appointment_id
			JOIN patients pt ON pt.id = a.patient_id
			JOIN doctors d ON d.id = a.doctor_id
			JOIN schedules s ON s.id = a.schedule_id
			WHERE p.id = $1`, paymentID).Scan(
			&rc.PaymentID, &rc.AppointmentID, &rc.Amount, &status,
			&rc.PatientEmail, &rc.PatientName, &rc.DoctorName, &rc.SlotStart,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.ErrPaymentNotFound
		}
		rc.Status = payment.Status(status)
		return err
	})
	return
}
