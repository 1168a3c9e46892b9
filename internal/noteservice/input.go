package noteservice

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/notekeep/internal/apperr"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordLen = 72

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Validate validates the registration input.
func (in *RegisterInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(1, maxPasswordLen)),
		validation.Field(&in.Username, validation.Required, validation.Length(1, 64)),
	)
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login input.
func (in *LoginInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// ProfileInput updates the current user's email and username.
type ProfileInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Validate validates the profile input.
func (in *ProfileInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	return validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Username, validation.Required, validation.Length(1, 64)),
	)
}

// PasswordInput changes the current user's password.
type PasswordInput struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword"`
	Confirm string `json:"confirmPassword"`
}

// Validate validates the password change input.
func (in *PasswordInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Current, validation.Required),
		validation.Field(&in.New, validation.Required, validation.Length(1, maxPasswordLen)),
		validation.Field(&in.Confirm, validation.Required,
			validation.By(func(any) error {
				if in.Confirm != in.New {
					return errors.New("new passwords do not match")
				}
				return nil
			})),
	)
}

// NoteInput is the content of a new note.
type NoteInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// Validate trims the input and validates it.
func (in *NoteInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	return validation.ValidateStruct(in,
		validation.Field(&in.Content, validation.Required),
		validation.Field(&in.Category, validation.Required),
	)
}

// NoteUpdate is a partial note edit; nil fields are left as they are.
type NoteUpdate struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

// Validate trims the set fields and validates them.
func (in *NoteUpdate) Validate() error {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(in.Title)
	trim(in.Content)
	trim(in.Category)
	return validation.ValidateStruct(in,
		validation.Field(&in.Content, validation.NilOrNotEmpty),
		validation.Field(&in.Category, validation.NilOrNotEmpty),
	)
}

// CategoryInput names a new category.
type CategoryInput struct {
	Name string `json:"name"`
}

// Validate trims and validates the category name.
func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 50)),
	)
}

type validatable interface {
	Validate() error
}

// check runs v.Validate and tags failures with apperr.ErrInvalid.
func check(v validatable) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	return nil
}
