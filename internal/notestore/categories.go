package notestore

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/models"
)

// Categories returns the categories owned by userID.
// Storage failures yield an empty slice.
func (s *Store) Categories(ctx context.Context, userID string) []models.Category {
	all, err := load[models.Category](ctx, s.backend, CategoriesKey)
	if err != nil {
		s.logFailure("get categories failed", err, slog.String("user_id", userID))
		return []models.Category{}
	}
	out := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// Category returns a single category by id.
func (s *Store) Category(ctx context.Context, categoryID string) (models.Category, error) {
	all, err := load[models.Category](ctx, s.backend, CategoriesKey)
	if err != nil {
		s.logFailure("get category failed", err, slog.String("category_id", categoryID))
		return models.Category{}, err
	}
	for _, c := range all {
		if c.ID == categoryID {
			return c, nil
		}
	}
	return models.Category{}, apperr.ErrNotFound
}

// InitializeDefaultCategories adds each default category the user does not
// already have, comparing names case-insensitively. Safe to call repeatedly.
func (s *Store) InitializeDefaultCategories(ctx context.Context, userID string) error {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	all, err := load[models.Category](ctx, s.backend, CategoriesKey)
	if err != nil {
		s.logFailure("initialize categories failed", err, slog.String("user_id", userID))
		return err
	}

	existing := make(map[string]struct{})
	for _, c := range all {
		if c.UserID == userID {
			existing[strings.ToLower(c.Name)] = struct{}{}
		}
	}

	added := 0
	for _, name := range models.DefaultCategories {
		if _, ok := existing[strings.ToLower(name)]; ok {
			continue
		}
		all = append(all, models.Category{ID: s.newID(), Name: name, UserID: userID})
		added++
	}
	if added == 0 {
		return nil
	}
	if err := save(ctx, s.backend, CategoriesKey, all); err != nil {
		s.logFailure("initialize categories failed", err, slog.String("user_id", userID))
		return err
	}
	return nil
}

// AddCategory appends a category. Name uniqueness is the caller's concern.
func (s *Store) AddCategory(ctx context.Context, userID, name string) (models.Category, error) {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	all, err := load[models.Category](ctx, s.backend, CategoriesKey)
	if err != nil {
		s.logFailure("add category failed", err, slog.String("user_id", userID))
		return models.Category{}, err
	}
	c := models.Category{ID: s.newID(), Name: name, UserID: userID}
	all = append(all, c)
	if err := save(ctx, s.backend, CategoriesKey, all); err != nil {
		s.logFailure("add category failed", err, slog.String("user_id", userID))
		return models.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes the category if present. Notes filed under its
// name keep their category string.
func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	all, err := load[models.Category](ctx, s.backend, CategoriesKey)
	if err != nil {
		s.logFailure("delete category failed", err, slog.String("category_id", categoryID))
		return err
	}
	kept := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.ID != categoryID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	if err := save(ctx, s.backend, CategoriesKey, kept); err != nil {
		s.logFailure("delete category failed", err, slog.String("category_id", categoryID))
		return err
	}
	return nil
}
