package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/carehub/internal/db"
	"github.com/geocoder89/carehub/internal/domain/appointment"
	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/domain/schedule"
	"github.com/geocoder89/carehub/internal/repo/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `
		TRUNCATE payments, appointments, schedules, patients, doctors, admins, users, jobs, revoked_refresh_tokens
		CASCADE`)
	require.NoError(t, err)

	return pool
}

type booking struct {
	appointment appointment.WithPayment
	doctorID    string
	scheduleID  string
	patient     string
}

func seedBooking(t *testing.T, pool *pgxpool.Pool) booking {
	t.Helper()
	ctx := context.Background()

	patientEmail := "pat-" + uuid.NewString()[:8] + "@example.com"
	doctorEmail := "doc-" + uuid.NewString()[:8] + "@example.com"
	doctorID := uuid.NewString()

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role) VALUES
			($1, $2, 'x', 'DOCTOR'),
			($3, $4, 'x', 'PATIENT')`,
		uuid.NewString(), doctorEmail, uuid.NewString(), patientEmail)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO doctors (id, email, name, contact_number, registration_number, gender,
		                     appointment_fee, qualification, current_working_place, designation)
		VALUES ($1, $2, 'Dr. Who', '1', 'R1', 'MALE', 5000, 'MBBS', 'Clinic', 'GP')`,
		doctorID, doctorEmail)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO patients (id, email, name) VALUES ($1, $2, 'Pat')`,
		uuid.NewString(), patientEmail)
	require.NoError(t, err)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slots, err := postgres.NewSchedulesRepo(pool, nil).CreateSlots(ctx, []schedule.Slot{{Start: start, End: start.Add(30 * time.Minute)}})
	require.NoError(t, err)
	require.Len(t, slots, 1)

	appts := postgres.NewAppointmentsRepo(pool, nil)
	a, err := appts.Create(ctx, patientEmail, appointment.CreateRequest{DoctorID: doctorID, ScheduleID: slots[0].ID})
	require.NoError(t, err)

	return booking{appointment: a, doctorID: doctorID, scheduleID: slots[0].ID, patient: patientEmail}
}

func TestAppointmentsRepo_CreateOpensPendingPayment(t *testing.T) {
	pool := testPool(t)
	b := seedBooking(t, pool)

	assert.Equal(t, appointment.StatusScheduled, b.appointment.Status)
	assert.Equal(t, payment.StatusPending, b.appointment.PaymentStatus)
	assert.Equal(t, int64(5000), b.appointment.Payment.Amount)
	assert.Equal(t, payment.StatusPending, b.appointment.Payment.Status)

	_, err := postgres.NewAppointmentsRepo(pool, nil).Create(context.Background(), b.patient,
		appointment.CreateRequest{DoctorID: b.doctorID, ScheduleID: b.scheduleID})
	assert.ErrorIs(t, err, appointment.ErrSlotTaken)

	got, err := postgres.NewAppointmentsRepo(pool, nil).GetByID(context.Background(), b.appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, b.patient, got.PatientEmail)
	assert.True(t, got.Involves(b.patient))
	assert.False(t, got.Involves("someone-else@example.com"))

	_, err = postgres.NewAppointmentsRepo(pool, nil).GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, appointment.ErrNotFound)
}

func TestPaymentsRepo_ApplyTransitionOnce(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := postgres.NewPaymentsRepo(pool, nil)
	b := seedBooking(t, pool)

	require.NoError(t, repo.AttachSession(ctx, b.appointment.Payment.ID, "cs_once", nil))

	res, err := repo.ApplyTransition(ctx, payment.Transition{Reference: "cs_once", To: payment.StatusCompleted, PaymentIntentRef: "pi_once"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, payment.StatusCompleted, res.Payment.Status)

	// duplicate delivery, now addressed by the intent id
	res, err = repo.ApplyTransition(ctx, payment.Transition{Reference: "pi_once", To: payment.StatusFailed})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, payment.StatusCompleted, res.Payment.Status)

	var mirrored string
	require.NoError(t, pool.QueryRow(ctx, `SELECT payment_status FROM appointments WHERE id = $1`, b.appointment.ID).Scan(&mirrored))
	assert.Equal(t, "COMPLETED", mirrored)

	err = repo.AttachSession(ctx, b.appointment.Payment.ID, "cs_late", nil)
	assert.ErrorIs(t, err, payment.ErrAlreadySettled)
}

func TestPaymentsRepo_ApplyTransitionUnknownReference(t *testing.T) {
	pool := testPool(t)
	repo := postgres.NewPaymentsRepo(pool, nil)

	_, err := repo.ApplyTransition(context.Background(), payment.Transition{Reference: "cs_missing", To: payment.StatusCompleted})
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound))
}

func TestPaymentsRepo_ConcurrentDeliveriesApplyOnce(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := postgres.NewPaymentsRepo(pool, nil)
	b := seedBooking(t, pool)

	require.NoError(t, repo.AttachSession(ctx, b.appointment.Payment.ID, "cs_race", nil))

	const deliveries = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.ApplyTransition(ctx, payment.Transition{Reference: "cs_race", To: payment.StatusCompleted})
			if err != nil {
				t.Errorf("apply: %v", err)
				return
			}
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
}
