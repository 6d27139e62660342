package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/carehub/internal/cache"
	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/specialty"
	"github.com/gin-gonic/gin"
)

const specialtiesCacheKey = "specialties:all"

type SpecialtyStore interface {
	Create(ctx context.Context, req specialty.CreateRequest) (specialty.Specialty, error)
	List(ctx context.Context) ([]specialty.Specialty, error)
	GetByID(ctx context.Context, id string) (specialty.Specialty, error)
	Update(ctx context.Context, id string, req specialty.UpdateRequest) (specialty.Specialty, error)
	Delete(ctx context.Context, id string) error
}

type SpecialtiesHandler struct {
	store SpecialtyStore
	cache *cache.Cache[[]specialty.Specialty]
}

func NewSpecialtiesHandler(store SpecialtyStore, c *cache.Cache[[]specialty.Specialty]) *SpecialtiesHandler {
	if c == nil {
		c = cache.New[[]specialty.Specialty](30 * time.Second)
	}
	return &SpecialtiesHandler{store: store, cache: c}
}

func (h *SpecialtiesHandler) Create(ctx *gin.Context) {
	var req specialty.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.store.Create(cctx, req)
	if err != nil {
		respondSpecialtyError(ctx, err)
		return
	}

	h.cache.Delete(specialtiesCacheKey)
	RespondOK(ctx, http.StatusCreated, "Specialty created successfully", s)
}

func (h *SpecialtiesHandler) List(ctx *gin.Context) {
	items, hit, err := h.cache.Load(specialtiesCacheKey, func() ([]specialty.Specialty, error) {
		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()
		return h.store.List(cctx)
	})
	if err != nil {
		RespondInternal(ctx, "Could not list specialties")
		return
	}

	if hit {
		ctx.Header("X-Cache", "HIT")
	} else {
		ctx.Header("X-Cache", "MISS")
	}
	RespondOKWithETag(ctx, "Specialties retrieved successfully", items)
}

func (h *SpecialtiesHandler) GetByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.store.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		respondSpecialtyError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Specialty retrieved successfully", s)
}

func (h *SpecialtiesHandler) Update(ctx *gin.Context) {
	var req specialty.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	s, err := h.store.Update(cctx, ctx.Param("id"), req)
	if err != nil {
		respondSpecialtyError(ctx, err)
		return
	}

	h.cache.Delete(specialtiesCacheKey)
	RespondOK(ctx, http.StatusOK, "Specialty updated successfully", s)
}

func (h *SpecialtiesHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.Delete(cctx, ctx.Param("id")); err != nil {
		respondSpecialtyError(ctx, err)
		return
	}

	h.cache.Delete(specialtiesCacheKey)
	RespondOK(ctx, http.StatusOK, "Specialty deleted successfully", nil)
}

func respondSpecialtyError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, specialty.ErrNotFound):
		RespondNotFound(ctx, "Specialty not found")
	case errors.Is(err, specialty.ErrTitleTaken):
		RespondConflict(ctx, "title_taken", "A specialty with this title already exists")
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}
