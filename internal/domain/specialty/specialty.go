package specialty

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("specialty not found")
	ErrTitleTaken = errors.New("specialty title already exists")
)

type Specialty struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Title string `json:"title" binding:"required,min=2,max=100"`
	Icon  string `json:"icon" binding:"omitempty,url"`
}

type UpdateRequest struct {
	Title *string `json:"title" binding:"omitempty,min=2,max=100"`
	Icon  *string `json:"icon" binding:"omitempty,url"`
}
