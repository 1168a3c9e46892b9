package notestore

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/models"
)

// Notes returns the notes owned by userID in stored order.
// Storage failures yield an empty slice.
func (s *Store) Notes(ctx context.Context, userID string) []models.Note {
	all, err := load[models.Note](ctx, s.backend, NotesKey)
	if err != nil {
		s.logFailure("get notes failed", err, slog.String("user_id", userID))
		return []models.Note{}
	}
	out := make([]models.Note, 0, len(all))
	for _, n := range all {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Note returns a single note by id.
func (s *Store) Note(ctx context.Context, noteID string) (models.Note, error) {
	all, err := load[models.Note](ctx, s.backend, NotesKey)
	if err != nil {
		s.logFailure("get note failed", err, slog.String("note_id", noteID))
		return models.Note{}, err
	}
	for _, n := range all {
		if n.ID == noteID {
			return n, nil
		}
	}
	return models.Note{}, apperr.ErrNotFound
}

// AddNote stores draft under a new identifier and returns the stored note.
func (s *Store) AddNote(ctx context.Context, draft models.NoteDraft) (models.Note, error) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	all, err := load[models.Note](ctx, s.backend, NotesKey)
	if err != nil {
		s.logFailure("add note failed", err, slog.String("user_id", draft.UserID))
		return models.Note{}, err
	}

	added := draft.DateAdded
	if added.IsZero() {
		added = s.now()
	}
	note := models.Note{
		ID:        s.newID(),
		UserID:    draft.UserID,
		Title:     draft.Title,
		Content:   draft.Content,
		Category:  draft.Category,
		DateAdded: added,
	}
	all = append(all, note)
	if err := save(ctx, s.backend, NotesKey, all); err != nil {
		s.logFailure("add note failed", err, slog.String("user_id", draft.UserID))
		return models.Note{}, err
	}
	return note, nil
}

// NoteCheck inspects the stored note before an update. A non-nil error
// aborts the update.
type NoteCheck func(models.Note) error

// UpdateNote merges patch over the note and stamps its edited time.
// Returns apperr.ErrNotFound, without writing, for an unknown id. The checks
// run against the stored note under the same lock as the write.
func (s *Store) UpdateNote(ctx context.Context, noteID string, patch models.NotePatch, checks ...NoteCheck) (models.Note, error) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	all, err := load[models.Note](ctx, s.backend, NotesKey)
	if err != nil {
		s.logFailure("update note failed", err, slog.String("note_id", noteID))
		return models.Note{}, err
	}
	idx := -1
	for i, n := range all {
		if n.ID == noteID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Note{}, apperr.ErrNotFound
	}
	for _, check := range checks {
		if err := check(all[idx]); err != nil {
			return models.Note{}, err
		}
	}

	updated := patch.Apply(all[idx])
	edited := s.editedAt(updated.DateAdded)
	updated.DateEdited = &edited
	all[idx] = updated

	if err := save(ctx, s.backend, NotesKey, all); err != nil {
		s.logFailure("update note failed", err, slog.String("note_id", noteID))
		return models.Note{}, err
	}
	return updated, nil
}

// DeleteNote removes the note if present. Deleting an absent note succeeds
// without rewriting the collection.
func (s *Store) DeleteNote(ctx context.Context, noteID string) error {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	all, err := load[models.Note](ctx, s.backend, NotesKey)
	if err != nil {
		s.logFailure("delete note failed", err, slog.String("note_id", noteID))
		return err
	}
	kept := make([]models.Note, 0, len(all))
	for _, n := range all {
		if n.ID != noteID {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	if err := save(ctx, s.backend, NotesKey, kept); err != nil {
		s.logFailure("delete note failed", err, slog.String("note_id", noteID))
		return err
	}
	return nil
}

// editedAt never returns a time before added, even if the clock went back.
func (s *Store) editedAt(added time.Time) time.Time {
	now := s.now()
	if now.Before(added) {
		return added
	}
	return now
}
