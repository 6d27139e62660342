package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/schedule"
	"github.com/gin-gonic/gin"
)

type ScheduleStore interface {
	CreateSlots(ctx context.Context, slots []schedule.Slot) ([]schedule.Schedule, error)
	List(ctx context.Context, f schedule.ListFilter) ([]schedule.Schedule, int, error)
	GetByID(ctx context.Context, id string) (schedule.Schedule, error)
	Delete(ctx context.Context, id string) error
}

type SchedulesHandler struct {
	store           ScheduleStore
	defaultInterval int
}

func NewSchedulesHandler(store ScheduleStore, defaultIntervalMinutes int) *SchedulesHandler {
	return &SchedulesHandler{store: store, defaultInterval: defaultIntervalMinutes}
}

func (h *SchedulesHandler) Create(ctx *gin.Context) {
	var req schedule.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}
	if req.IntervalMinutes == 0 {
		req.IntervalMinutes = h.defaultInterval
	}

	slots, err := schedule.Slots(req)
	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	created, err := h.store.CreateSlots(cctx, slots)
	if err != nil {
		RespondInternal(ctx, "Could not create schedules")
		return
	}

	RespondOK(ctx, http.StatusCreated, "Schedules created successfully", created)
}

func (h *SchedulesHandler) List(ctx *gin.Context) {
	f := schedule.ListFilter{
		Page:  queryInt(ctx, "page", 1),
		Limit: queryInt(ctx, "limit", 10),
	}

	var ok bool
	if f.StartDate, ok = optionalDay(ctx, "startDate"); !ok {
		return
	}
	if f.EndDate, ok = optionalDay(ctx, "endDate"); !ok {
		return
	}
	f = f.Normalize()

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.store.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list schedules")
		return
	}

	RespondList(ctx, "Schedules retrieved successfully", ListMeta{Page: f.Page, Limit: f.Limit, Total: total}, items)
}

func (h *SchedulesHandler) GetByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.store.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		respondScheduleError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Schedule retrieved successfully", s)
}

func (h *SchedulesHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.Delete(cctx, ctx.Param("id")); err != nil {
		respondScheduleError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Schedule deleted successfully", nil)
}

func optionalDay(ctx *gin.Context, key string) (*time.Time, bool) {
	v := ctx.Query(key)
	if v == "" {
		return nil, true
	}

	day, err := schedule.ParseDay(v)
	if err != nil {
		RespondBadRequest(ctx, "Invalid "+key+", expected YYYY-MM-DD", nil)
		return nil, false
	}
	return &day, true
}

func respondScheduleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		RespondNotFound(ctx, "Schedule not found")
	case errors.Is(err, schedule.ErrInUse):
		RespondConflict(ctx, "schedule_in_use", "Schedule is booked by an appointment")
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}
