package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleDoctor     Role = "DOCTOR"
	RolePatient    Role = "PATIENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// IsStaff covers the roles that manage other users' records.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
	StatusDeleted Status = "DELETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusDeleted:
		return true
	}
	return false
}

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already in use")
	ErrProfileMissing = errors.New("profile not found")
)

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"` // never expose hash in JSON
	Role               Role      `json:"role"`
	Status             Status    `json:"status"`
	NeedPasswordChange bool      `json:"needPasswordChange"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}

type ListFilter struct {
	SearchTerm string
	Email      string
	Role       Role
	Status     Status
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// Normalize clamps paging and restricts sorting to known columns.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	switch f.SortBy {
	case "email", "role", "status", "created_at":
	default:
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
	return f
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
