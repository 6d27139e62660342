package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/appointment"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AppointmentStore interface {
	Create(ctx context.Context, patientEmail string, req appointment.CreateRequest) (appointment.WithPayment, error)
	GetByID(ctx context.Context, id string) (appointment.WithPayment, error)
}

type AppointmentsHandler struct {
	store AppointmentStore
}

func NewAppointmentsHandler(store AppointmentStore) *AppointmentsHandler {
	return &AppointmentsHandler{store: store}
}

func (h *AppointmentsHandler) Create(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req appointment.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	a, err := h.store.Create(cctx, email, req)
	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrSlotTaken):
			RespondConflict(ctx, "slot_taken", "This slot is already booked for the doctor")
		case errors.Is(err, appointment.ErrDoctorOrSlot):
			RespondNotFound(ctx, "Doctor or schedule not found")
		case errors.Is(err, user.ErrProfileMissing):
			RespondNotFound(ctx, "Patient profile not found")
		default:
			RespondInternal(ctx, "Could not create appointment")
		}
		return
	}

	RespondOK(ctx, http.StatusCreated, "Appointment created successfully", a)
}

// GetByID serves staff, and the patient or doctor named on the appointment.
func (h *AppointmentsHandler) GetByID(ctx *gin.Context) {
	role, ok := middlewares.RoleFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}
	email, _ := middlewares.EmailFromContext(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	a, err := h.store.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return
		}
		RespondInternal(ctx, "Something went wrong")
		return
	}

	if !role.IsStaff() && !a.Involves(email) {
		RespondForbidden(ctx, "forbidden", "You are not allowed to view this appointment")
		return
	}

	RespondOK(ctx, http.StatusOK, "Appointment retrieved successfully", a)
}
