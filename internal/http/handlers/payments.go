package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/http/middlewares"
	"github.com/geocoder89/carehub/internal/payments/stripegw"
	"github.com/geocoder89/carehub/internal/service/payments"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

type EventParser interface {
	ParseEvent(payload []byte, signature string) (payment.Event, error)
}

type PaymentFlow interface {
	CreateSession(ctx context.Context, appointmentID, patientEmail string) (string, error)
	Reconcile(ctx context.Context, ev payment.Event) (payments.Outcome, error)
}

type PaymentsHandler struct {
	flow   PaymentFlow
	parser EventParser
	log    *slog.Logger
}

func NewPaymentsHandler(flow PaymentFlow, parser EventParser, log *slog.Logger) *PaymentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PaymentsHandler{flow: flow, parser: parser, log: log}
}

type CreateSessionRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
}

func (h *PaymentsHandler) CreateSession(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req CreateSessionRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	url, err := h.flow.CreateSession(cctx, req.AppointmentID, email)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNotFound):
			RespondBadRequest(ctx, "Appointment or payment not found", nil)
		case errors.Is(err, payments.ErrForbidden):
			RespondForbidden(ctx, "forbidden", "Appointment belongs to another patient")
		case errors.Is(err, payments.ErrSettled):
			RespondConflict(ctx, "payment_settled", "Payment is already settled")
		case errors.Is(err, stripegw.ErrNotConfigured):
			RespondError(ctx, http.StatusServiceUnavailable, "payments_unavailable", "Payments are not configured", nil)
		default:
			h.log.ErrorContext(ctx.Request.Context(), "payment.session.failed", "appointment_id", req.AppointmentID, "err", err)
			RespondInternal(ctx, "Could not create payment session")
		}
		return
	}

	RespondOK(ctx, http.StatusOK, "Payment session created", gin.H{"url": url})
}

// Webhook verifies the signature over the raw body before reconciling. Storage
// failures answer 500 so the gateway redelivers.
func (h *PaymentsHandler) Webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody+1))
	var tooLarge *http.MaxBytesError
	if len(payload) > maxWebhookBody || errors.As(err, &tooLarge) {
		h.log.WarnContext(ctx.Request.Context(), "payment.webhook.rejected", "reason", "payload_too_large")
		ctx.String(http.StatusRequestEntityTooLarge, "Webhook Error: %s", "payload too large")
		return
	}
	if err != nil {
		ctx.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	ev, err := h.parser.ParseEvent(payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.WarnContext(ctx.Request.Context(), "payment.webhook.rejected", "err", err)
		ctx.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if _, err := h.flow.Reconcile(cctx, ev); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "payment.webhook.reconcile_failed", "event_id", ev.ID, "err", err)
		ctx.String(http.StatusInternalServerError, "Webhook Error: %s", "could not apply event")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"received": true})
}
