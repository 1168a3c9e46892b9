package api

import (
	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/noteservice"
)

// Request bodies (aliased from the domain layer).
type (
	RegisterRequest       = noteservice.RegisterInput
	LoginRequest          = noteservice.LoginInput
	ProfileRequest        = noteservice.ProfileInput
	PasswordRequest       = noteservice.PasswordInput
	CreateNoteRequest     = noteservice.NoteInput
	UpdateNoteRequest     = noteservice.NoteUpdate
	CreateCategoryRequest = noteservice.CategoryInput
)

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// CategoryListResponse wraps category listings.
type CategoryListResponse struct {
	Categories []models.Category `json:"categories" validate:"required"`
}
