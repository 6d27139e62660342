// Package users creates accounts with their role profile, lists them for staff
// and keeps doctor profiles mirrored into the search index.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/search"
	"github.com/geocoder89/carehub/internal/security"
	"github.com/google/uuid"
)

var ErrInvalidProfile = errors.New("profile update does not match role")

type Store interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	GetActiveByEmail(ctx context.Context, email string) (user.User, error)
	UpdateStatus(ctx context.Context, id string, status user.Status) (user.User, error)
	List(ctx context.Context, f user.ListFilter) ([]user.User, int, error)
	CreateAdmin(ctx context.Context, u user.User, a user.Admin) (user.Admin, error)
	CreateDoctor(ctx context.Context, u user.User, d user.Doctor) (user.Doctor, error)
	CreatePatient(ctx context.Context, u user.User, p user.Patient) (user.Patient, error)
	GetProfile(ctx context.Context, u user.User) (user.Profile, error)
	UpdateProfile(ctx context.Context, u user.User, upd user.ProfileUpdate) (user.Profile, error)
}

type DoctorIndex interface {
	IndexDoctor(ctx context.Context, d search.Doctor) error
	SearchDoctors(ctx context.Context, q string, page, limit int) (int64, []search.Doctor, error)
}

// IndexRetrier queues a later index write when the inline one fails.
type IndexRetrier interface {
	IndexDoctor(ctx context.Context, email string) error
}

type Service struct {
	store      Store
	index      DoctorIndex
	retry      IndexRetrier
	bcryptCost int
	log        *slog.Logger
}

func NewService(store Store, index DoctorIndex, retry IndexRetrier, bcryptCost int, log *slog.Logger) *Service {
	if index == nil {
		index = search.Disabled{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, index: index, retry: retry, bcryptCost: bcryptCost, log: log}
}

type AdminInput struct {
	Name          string  `json:"name" binding:"required,min=2"`
	Email         string  `json:"email" binding:"required,email"`
	ContactNumber string  `json:"contactNumber" binding:"required"`
	ProfilePhoto  *string `json:"profilePhoto" binding:"omitempty,url"`
}

type DoctorInput struct {
	Name                string  `json:"name" binding:"required,min=2"`
	Email               string  `json:"email" binding:"required,email"`
	ContactNumber       string  `json:"contactNumber" binding:"required"`
	ProfilePhoto        *string `json:"profilePhoto" binding:"omitempty,url"`
	Address             *string `json:"address"`
	RegistrationNumber  string  `json:"registrationNumber" binding:"required"`
	Experience          int     `json:"experience" binding:"min=0"`
	Gender              string  `json:"gender" binding:"required,oneof=MALE FEMALE"`
	AppointmentFee      int64   `json:"appointmentFee" binding:"required,min=1"`
	Qualification       string  `json:"qualification" binding:"required"`
	CurrentWorkingPlace string  `json:"currentWorkingPlace" binding:"required"`
	Designation         string  `json:"designation" binding:"required"`
}

type PatientInput struct {
	Name          string  `json:"name" binding:"required,min=2"`
	Email         string  `json:"email" binding:"required,email"`
	ContactNumber *string `json:"contactNumber"`
	Address       *string `json:"address"`
	ProfilePhoto  *string `json:"profilePhoto" binding:"omitempty,url"`
}

func (s *Service) newUser(email, password string, role user.Role, needChange bool) (user.User, error) {
	hash, err := security.HashPassword(password, s.bcryptCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return user.User{
		ID:                 uuid.NewString(),
		Email:              strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:       hash,
		Role:               role,
		Status:             user.StatusActive,
		NeedPasswordChange: needChange,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CreateAdmin is used by staff; the new admin must change the password on first login.
func (s *Service) CreateAdmin(ctx context.Context, password string, in AdminInput) (user.Admin, error) {
	u, err := s.newUser(in.Email, password, user.RoleAdmin, true)
	if err != nil {
		return user.Admin{}, err
	}

	return s.store.CreateAdmin(ctx, u, user.Admin{
		ID:            uuid.NewString(),
		Email:         u.Email,
		Name:          in.Name,
		ProfilePhoto:  in.ProfilePhoto,
		ContactNumber: in.ContactNumber,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	})
}

func (s *Service) CreateDoctor(ctx context.Context, password string, in DoctorInput) (user.Doctor, error) {
	u, err := s.newUser(in.Email, password, user.RoleDoctor, true)
	if err != nil {
		return user.Doctor{}, err
	}

	d, err := s.store.CreateDoctor(ctx, u, user.Doctor{
		ID:                  uuid.NewString(),
		Email:               u.Email,
		Name:                in.Name,
		ProfilePhoto:        in.ProfilePhoto,
		ContactNumber:       in.ContactNumber,
		Address:             in.Address,
		RegistrationNumber:  in.RegistrationNumber,
		Experience:          in.Experience,
		Gender:              in.Gender,
		AppointmentFee:      in.AppointmentFee,
		Qualification:       in.Qualification,
		CurrentWorkingPlace: in.CurrentWorkingPlace,
		Designation:         in.Designation,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	})
	if err != nil {
		return user.Doctor{}, err
	}

	s.syncDoctor(ctx, d)
	return d, nil
}

// CreatePatient is self-registration, so no forced password change.
func (s *Service) CreatePatient(ctx context.Context, password string, in PatientInput) (user.Patient, error) {
	u, err := s.newUser(in.Email, password, user.RolePatient, false)
	if err != nil {
		return user.Patient{}, err
	}

	return s.store.CreatePatient(ctx, u, user.Patient{
		ID:            uuid.NewString(),
		Email:         u.Email,
		Name:          in.Name,
		ProfilePhoto:  in.ProfilePhoto,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	})
}

func (s *Service) List(ctx context.Context, f user.ListFilter) ([]user.User, int, user.ListFilter, error) {
	f = f.Normalize()
	items, total, err := s.store.List(ctx, f)
	return items, total, f, err
}

func (s *Service) Me(ctx context.Context, email string) (user.Profile, error) {
	u, err := s.store.GetActiveByEmail(ctx, email)
	if err != nil {
		return user.Profile{}, err
	}
	return s.store.GetProfile(ctx, u)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status user.Status) (user.User, error) {
	return s.store.UpdateStatus(ctx, id, status)
}

// UpdateMyProfile applies upd to the caller's own profile. The variant must
// match the caller's role.
func (s *Service) UpdateMyProfile(ctx context.Context, email string, upd user.ProfileUpdate) (user.Profile, error) {
	u, err := s.store.GetActiveByEmail(ctx, email)
	if err != nil {
		return user.Profile{}, err
	}

	if upd.Role() != u.Role {
		return user.Profile{}, ErrInvalidProfile
	}

	p, err := s.store.UpdateProfile(ctx, u, upd)
	if err != nil {
		return user.Profile{}, err
	}

	if p.Doctor != nil {
		s.syncDoctor(ctx, *p.Doctor)
	}

	return p, nil
}

func (s *Service) SearchDoctors(ctx context.Context, q string, page, limit int) (int64, []search.Doctor, error) {
	return s.index.SearchDoctors(ctx, strings.TrimSpace(q), page, limit)
}

// syncDoctor writes the doctor to the search index. A failed write is queued
// for the worker and never fails the caller.
func (s *Service) syncDoctor(ctx context.Context, d user.Doctor) {
	err := s.index.IndexDoctor(ctx, search.DoctorFromProfile(d))
	if err == nil || errors.Is(err, search.ErrDisabled) {
		return
	}

	s.log.WarnContext(ctx, "search.index_doctor_failed", "doctor_id", d.ID, "err", err)

	if s.retry == nil {
		return
	}
	if err := s.retry.IndexDoctor(ctx, d.Email); err != nil {
		s.log.ErrorContext(ctx, "search.index_doctor_enqueue_failed", "doctor_id", d.ID, "err", err)
	}
}
