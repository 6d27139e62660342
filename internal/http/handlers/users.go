package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/http/middlewares"
	"github.com/geocoder89/carehub/internal/search"
	"github.com/geocoder89/carehub/internal/service/users"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	CreateAdmin(ctx context.Context, password string, in users.AdminInput) (user.Admin, error)
	CreateDoctor(ctx context.Context, password string, in users.DoctorInput) (user.Doctor, error)
	CreatePatient(ctx context.Context, password string, in users.PatientInput) (user.Patient, error)
	List(ctx context.Context, f user.ListFilter) ([]user.User, int, user.ListFilter, error)
	Me(ctx context.Context, email string) (user.Profile, error)
	UpdateStatus(ctx context.Context, id string, status user.Status) (user.User, error)
	UpdateMyProfile(ctx context.Context, email string, upd user.ProfileUpdate) (user.Profile, error)
	SearchDoctors(ctx context.Context, q string, page, limit int) (int64, []search.Doctor, error)
}

type UsersHandler struct {
	svc UserService
}

func NewUsersHandler(svc UserService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

type CreateAdminRequest struct {
	Password string           `json:"password" binding:"required,min=6"`
	Admin    users.AdminInput `json:"admin" binding:"required"`
}

type CreateDoctorRequest struct {
	Password string            `json:"password" binding:"required,min=6"`
	Doctor   users.DoctorInput `json:"doctor" binding:"required"`
}

type CreatePatientRequest struct {
	Password string             `json:"password" binding:"required,min=6"`
	Patient  users.PatientInput `json:"patient" binding:"required"`
}

type UpdateStatusRequest struct {
	Status user.Status `json:"status" binding:"required,oneof=ACTIVE BLOCKED DELETED"`
}

func (h *UsersHandler) CreateAdmin(ctx *gin.Context) {
	var req CreateAdminRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	a, err := h.svc.CreateAdmin(cctx, req.Password, req.Admin)
	if err != nil {
		respondUserError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusCreated, "Admin created successfully", a)
}

func (h *UsersHandler) CreateDoctor(ctx *gin.Context) {
	var req CreateDoctorRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	d, err := h.svc.CreateDoctor(cctx, req.Password, req.Doctor)
	if err != nil {
		respondUserError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusCreated, "Doctor created successfully", d)
}

func (h *UsersHandler) CreatePatient(ctx *gin.Context) {
	var req CreatePatientRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	p, err := h.svc.CreatePatient(cctx, req.Password, req.Patient)
	if err != nil {
		respondUserError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusCreated, "Patient created successfully", p)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	f := user.ListFilter{
		SearchTerm: ctx.Query("searchTerm"),
		Email:      ctx.Query("email"),
		Role:       user.Role(ctx.Query("role")),
		Status:     user.Status(ctx.Query("status")),
		Page:       queryInt(ctx, "page", 1),
		Limit:      queryInt(ctx, "limit", 10),
		SortBy:     ctx.Query("sortBy"),
		SortOrder:  ctx.Query("sortOrder"),
	}

	if f.Role != "" && !f.Role.Valid() {
		RespondBadRequest(ctx, "Invalid role filter", gin.H{"role": f.Role})
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		RespondBadRequest(ctx, "Invalid status filter", gin.H{"status": f.Status})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, f, err := h.svc.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	RespondList(ctx, "Users retrieved successfully", ListMeta{Page: f.Page, Limit: f.Limit, Total: total}, items)
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.svc.Me(cctx, email)
	if err != nil {
		respondUserError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Profile retrieved successfully", p)
}

func (h *UsersHandler) UpdateStatus(ctx *gin.Context) {
	var req UpdateStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.svc.UpdateStatus(cctx, ctx.Param("id"), req.Status)
	if err != nil {
		respondUserError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "User status updated", u)
}

func (h *UsersHandler) UpdateMyProfile(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)
	role, ok2 := middlewares.RoleFromContext(ctx)
	if !ok || !ok2 {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	upd, ok := bindProfileUpdate(ctx, role)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	p, err := h.svc.UpdateMyProfile(cctx, email, upd)
	if err != nil {
		respondUserError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Profile updated successfully", p)
}

func (h *UsersHandler) SearchDoctors(ctx *gin.Context) {
	page := queryInt(ctx, "page", 1)
	limit := queryInt(ctx, "limit", 10)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	total, docs, err := h.svc.SearchDoctors(cctx, ctx.Query("q"), page, limit)
	if err != nil {
		if errors.Is(err, search.ErrDisabled) {
			RespondError(ctx, http.StatusServiceUnavailable, "search_unavailable", "Doctor search is not configured", nil)
			return
		}
		RespondInternal(ctx, "Could not search doctors")
		return
	}

	RespondList(ctx, "Doctors retrieved successfully", ListMeta{Page: page, Limit: limit, Total: int(total)}, docs)
}

// bindProfileUpdate decodes the body into the variant owned by role.
func bindProfileUpdate(ctx *gin.Context, role user.Role) (user.ProfileUpdate, bool) {
	switch role {
	case user.RoleSuperAdmin:
		return bindVariant[user.SuperAdminUpdate](ctx)
	case user.RoleAdmin:
		return bindVariant[user.AdminUpdate](ctx)
	case user.RoleDoctor:
		return bindVariant[user.DoctorUpdate](ctx)
	case user.RolePatient:
		return bindVariant[user.PatientUpdate](ctx)
	}

	RespondForbidden(ctx, "forbidden", "Unknown role")
	return nil, false
}

func bindVariant[T user.ProfileUpdate](ctx *gin.Context) (user.ProfileUpdate, bool) {
	var v T
	if !BindJSON(ctx, &v) {
		return nil, false
	}
	return v, true
}

func respondUserError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, user.ErrProfileMissing):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use")
	case errors.Is(err, users.ErrInvalidProfile):
		RespondBadRequest(ctx, "Profile fields do not match your role", nil)
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	v := ctx.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
