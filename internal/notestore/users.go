package notestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/models"
)

// Users returns every registered user. Storage failures yield an empty slice.
func (s *Store) Users(ctx context.Context) []models.User {
	users, err := load[models.User](ctx, s.backend, UsersKey)
	if err != nil {
		s.logFailure("get users failed", err)
		return []models.User{}
	}
	return users
}

// RegisterUser creates a user, makes it the current user and seeds the
// default categories. It fails with apperr.ErrAlreadyExists when the email
// is taken; the users collection is not written in that case.
func (s *Store) RegisterUser(ctx context.Context, email, password, username string) (models.User, error) {
	s.usersMu.Lock()
	users, err := load[models.User](ctx, s.backend, UsersKey)
	if err != nil {
		s.usersMu.Unlock()
		s.logFailure("register user failed", err)
		return models.User{}, err
	}
	for _, u := range users {
		if u.Email == email {
			s.usersMu.Unlock()
			return models.User{}, apperr.ErrAlreadyExists
		}
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		s.usersMu.Unlock()
		return models.User{}, err
	}
	user := models.User{
		ID:           s.newID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	users = append(users, user)
	if err := save(ctx, s.backend, UsersKey, users); err != nil {
		s.usersMu.Unlock()
		s.logFailure("register user failed", err)
		return models.User{}, err
	}
	if err := s.setCurrentUser(ctx, user); err != nil {
		s.usersMu.Unlock()
		s.logFailure("register user failed", err, slog.String("user_id", user.ID))
		return models.User{}, err
	}
	s.usersMu.Unlock()

	// Seeding failures are logged only; the account already exists.
	if err := s.InitializeDefaultCategories(ctx, user.ID); err != nil {
		s.logger.Warn("seed default categories failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}
	return user, nil
}

// LoginUser looks up email and verifies password. On success the user
// becomes the current user. Unknown email and wrong password both return
// apperr.ErrInvalidCredentials.
func (s *Store) LoginUser(ctx context.Context, email, password string) (models.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := load[models.User](ctx, s.backend, UsersKey)
	if err != nil {
		s.logFailure("login failed", err)
		return models.User{}, err
	}
	for _, u := range users {
		if u.Email != email {
			continue
		}
		if !checkPassword(u.PasswordHash, password) {
			break
		}
		if err := s.setCurrentUser(ctx, u); err != nil {
			s.logFailure("login failed", err, slog.String("user_id", u.ID))
			return models.User{}, err
		}
		return u, nil
	}
	return models.User{}, apperr.ErrInvalidCredentials
}

// CurrentUser returns the session user. ok is false when nobody is logged
// in or the session record cannot be read.
func (s *Store) CurrentUser(ctx context.Context) (models.User, bool) {
	raw, ok, err := s.backend.Get(ctx, CurrentUserKey)
	if err != nil {
		s.logFailure("get current user failed", err)
		return models.User{}, false
	}
	if !ok || raw == "" {
		return models.User{}, false
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logFailure("get current user failed", err)
		return models.User{}, false
	}
	return u, true
}

// Logout clears the current user. The users collection is untouched.
func (s *Store) Logout(ctx context.Context) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	if err := s.backend.Remove(ctx, CurrentUserKey); err != nil {
		s.logFailure("logout failed", err)
		return err
	}
	return nil
}

// UpdateUser overwrites email and username of userID, and its password
// when password is non-empty. The current user is refreshed when it is the
// edited user. Returns apperr.ErrNotFound for an unknown id.
func (s *Store) UpdateUser(ctx context.Context, userID, email, username, password string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := load[models.User](ctx, s.backend, UsersKey)
	if err != nil {
		s.logFailure("update user failed", err, slog.String("user_id", userID))
		return err
	}
	idx := findUser(users, userID)
	if idx == -1 {
		return apperr.ErrNotFound
	}
	return s.rewriteUser(ctx, users, idx, email, username, password)
}

// ChangePassword replaces the password of userID after verifying current.
func (s *Store) ChangePassword(ctx context.Context, userID, current, next string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := load[models.User](ctx, s.backend, UsersKey)
	if err != nil {
		s.logFailure("change password failed", err, slog.String("user_id", userID))
		return err
	}
	idx := findUser(users, userID)
	if idx == -1 {
		return apperr.ErrNotFound
	}
	if !checkPassword(users[idx].PasswordHash, current) {
		return apperr.ErrInvalidCredentials
	}
	return s.rewriteUser(ctx, users, idx, users[idx].Email, users[idx].Username, next)
}

func findUser(users []models.User, userID string) int {
	for i, u := range users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

// rewriteUser edits users[idx], saves the collection and refreshes the
// session record. Callers hold usersMu.
func (s *Store) rewriteUser(ctx context.Context, users []models.User, idx int, email, username, password string) error {
	userID := users[idx].ID
	users[idx].Email = email
	users[idx].Username = username
	if password != "" {
		hash, err := s.hashPassword(password)
		if err != nil {
			return err
		}
		users[idx].PasswordHash = hash
	}

	if err := save(ctx, s.backend, UsersKey, users); err != nil {
		s.logFailure("update user failed", err, slog.String("user_id", userID))
		return err
	}

	current, ok := s.CurrentUser(ctx)
	if ok && current.ID == userID {
		if err := s.setCurrentUser(ctx, users[idx]); err != nil {
			s.logFailure("refresh current user failed", err, slog.String("user_id", userID))
			return err
		}
	}
	return nil
}

// setCurrentUser stores a full copy of u as the session record.
// Callers hold usersMu.
func (s *Store) setCurrentUser(ctx context.Context, u models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("notestore: encode current user: %w", err)
	}
	return s.backend.Set(ctx, CurrentUserKey, string(data))
}
