// Package noteservice coordinates the data store, input validation, list
// filtering and change events for the API and MCP layers.
package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/checksum"
	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/notelist"
	"github.com/starford/notekeep/internal/notestore"
)

// Event topics published after successful mutations.
const (
	TopicNoteCreated     = "note.created"
	TopicNoteUpdated     = "note.updated"
	TopicNoteDeleted     = "note.deleted"
	TopicCategoryCreated = "category.created"
	TopicCategoryDeleted = "category.deleted"
	TopicSessionChanged  = "session.changed"
)

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	PublishChange(topic string, data map[string]string)
}

type nopPublisher struct{}

func (nopPublisher) PublishChange(string, map[string]string) {}

// Service wraps a notestore.Store with validation and ownership checks.
type Service struct {
	store  *notestore.Store
	events Publisher
	logger *slog.Logger
}

// NewService creates a new note service. events may be nil.
func NewService(store *notestore.Store, events Publisher, logger *slog.Logger) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, events: events, logger: logger}
}

// --- Session ---

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Profile, error) {
	if err := check(&in); err != nil {
		return models.Profile{}, err
	}
	u, err := s.store.RegisterUser(ctx, in.Email, in.Password, in.Username)
	if err != nil {
		return models.Profile{}, err
	}
	s.logger.Info("user registered", slog.String("user_id", u.ID))
	s.events.PublishChange(TopicSessionChanged, map[string]string{"userId": u.ID})
	return u.Profile(), nil
}

// Login opens a session for the matching user.
func (s *Service) Login(ctx context.Context, in LoginInput) (models.Profile, error) {
	if err := check(&in); err != nil {
		return models.Profile{}, err
	}
	u, err := s.store.LoginUser(ctx, in.Email, in.Password)
	if err != nil {
		return models.Profile{}, err
	}
	s.events.PublishChange(TopicSessionChanged, map[string]string{"userId": u.ID})
	return u.Profile(), nil
}

// Logout closes the current session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Logout(ctx); err != nil {
		return err
	}
	s.events.PublishChange(TopicSessionChanged, map[string]string{})
	return nil
}

// CurrentUser returns the session user or apperr.ErrUnauthenticated.
func (s *Service) CurrentUser(ctx context.Context) (models.User, error) {
	u, ok := s.store.CurrentUser(ctx)
	if !ok {
		return models.User{}, apperr.ErrUnauthenticated
	}
	return u, nil
}

// UpdateProfile changes the current user's email and username. The email
// must not belong to another user.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (models.Profile, error) {
	if err := check(&in); err != nil {
		return models.Profile{}, err
	}
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	for _, other := range s.store.Users(ctx) {
		if other.ID != u.ID && other.Email == in.Email {
			return models.Profile{}, apperr.ErrAlreadyExists
		}
	}
	if err := s.store.UpdateUser(ctx, u.ID, in.Email, in.Username, ""); err != nil {
		return models.Profile{}, err
	}
	s.events.PublishChange(TopicSessionChanged, map[string]string{"userId": u.ID})
	u.Email, u.Username = in.Email, in.Username
	return u.Profile(), nil
}

// ChangePassword replaces the current user's password.
func (s *Service) ChangePassword(ctx context.Context, in PasswordInput) error {
	if err := check(&in); err != nil {
		return err
	}
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return s.store.ChangePassword(ctx, u.ID, in.Current, in.New)
}

// --- Notes ---

// ListNotes returns userID's notes filtered and ordered by f.
func (s *Service) ListNotes(ctx context.Context, userID string, f notelist.Filter) []models.Note {
	return notelist.Apply(s.store.Notes(ctx, userID), f)
}

// GetNote returns a note owned by userID. Notes of other users are
// reported as apperr.ErrNotFound.
func (s *Service) GetNote(ctx context.Context, userID, noteID string) (models.Note, error) {
	n, err := s.store.Note(ctx, noteID)
	if err != nil {
		return models.Note{}, err
	}
	if n.UserID != userID {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

// CreateNote stores a new note for userID.
func (s *Service) CreateNote(ctx context.Context, userID string, in NoteInput) (models.Note, error) {
	if err := check(&in); err != nil {
		return models.Note{}, err
	}
	n, err := s.store.AddNote(ctx, models.NoteDraft{
		UserID:   userID,
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
	})
	if err != nil {
		return models.Note{}, err
	}
	s.events.PublishChange(TopicNoteCreated, map[string]string{"id": n.ID, "userId": userID})
	return n, nil
}

// UpdateNote applies in to a note owned by userID. A non-empty ifMatch must
// equal the note's current ETag, otherwise apperr.ErrConflict is returned.
func (s *Service) UpdateNote(ctx context.Context, userID, noteID string, in NoteUpdate, ifMatch string) (models.Note, error) {
	if err := check(&in); err != nil {
		return models.Note{}, err
	}
	n, err := s.store.UpdateNote(ctx, noteID, models.NotePatch{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
	}, func(current models.Note) error {
		if current.UserID != userID {
			return apperr.ErrNotFound
		}
		if ifMatch != "" && ifMatch != ETag(current) {
			return apperr.ErrConflict
		}
		return nil
	})
	if err != nil {
		return models.Note{}, err
	}
	s.events.PublishChange(TopicNoteUpdated, map[string]string{"id": n.ID, "userId": userID})
	return n, nil
}

// DeleteNote removes a note owned by userID. Deleting a missing note succeeds.
func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	n, err := s.store.Note(ctx, noteID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.ErrNotFound
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return err
	}
	s.events.PublishChange(TopicNoteDeleted, map[string]string{"id": noteID, "userId": userID})
	return nil
}

// ETag returns the content digest used for optimistic concurrency on notes.
func ETag(n models.Note) string {
	sum, err := checksum.OfJSON(n)
	if err != nil {
		return ""
	}
	return sum
}

// --- Categories ---

// ListCategories returns userID's categories.
func (s *Service) ListCategories(ctx context.Context, userID string) []models.Category {
	return s.store.Categories(ctx, userID)
}

// CreateCategory adds a category unless userID already has one with the
// same name, ignoring case.
func (s *Service) CreateCategory(ctx context.Context, userID string, in CategoryInput) (models.Category, error) {
	if err := check(&in); err != nil {
		return models.Category{}, err
	}
	if _, ok := s.findCategory(ctx, userID, in.Name); ok {
		return models.Category{}, apperr.ErrAlreadyExists
	}
	c, err := s.store.AddCategory(ctx, userID, in.Name)
	if err != nil {
		return models.Category{}, err
	}
	s.events.PublishChange(TopicCategoryCreated, map[string]string{"id": c.ID, "userId": userID})
	return c, nil
}

// DeleteCategory removes a category owned by userID. Deleting a missing
// category succeeds.
func (s *Service) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	c, err := s.store.Category(ctx, categoryID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return apperr.ErrNotFound
	}
	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}
	s.events.PublishChange(TopicCategoryDeleted, map[string]string{"id": categoryID, "userId": userID})
	return nil
}

// findCategory looks up userID's category by name, ignoring case.
func (s *Service) findCategory(ctx context.Context, userID, name string) (models.Category, bool) {
	for _, c := range s.store.Categories(ctx, userID) {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return models.Category{}, false
}
