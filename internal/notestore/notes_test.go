package notestore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notekeep/internal/apperr"
	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/notestore"
	"github.com/starford/notekeep/internal/storage"
	"github.com/starford/notekeep/internal/testutil"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func ptr(s string) *string { return &s }

func TestAddNote_ScopedToOwner(t *testing.T) {
	s, _ := testutil.MemoryStore(t)
	ctx := context.Background()

	n, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.DateAdded.IsZero())
	assert.Nil(t, n.DateEdited)

	notes := s.Notes(ctx, "u1")
	require.Len(t, notes, 1)
	assert.Equal(t, "hello", notes[0].Content)
	assert.Equal(t, n.ID, notes[0].ID)

	assert.Empty(t, s.Notes(ctx, "u2"))
}

func TestAddNote_KeepsSuppliedDate(t *testing.T) {
	s, _ := testutil.MemoryStore(t)
	n, err := s.AddNote(context.Background(), models.NoteDraft{UserID: "u1", Content: "x", DateAdded: epoch})
	require.NoError(t, err)
	assert.True(t, n.DateAdded.Equal(epoch))
}

func TestAddNote_IdentifiersUniqueWithinSameInstant(t *testing.T) {
	clock := testutil.NewClock(epoch)
	s := testutil.Store(t, storage.NewMemory(), clock)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		n, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: fmt.Sprint(i)})
		require.NoError(t, err)
		_, dup := seen[n.ID]
		require.False(t, dup, "duplicate id %s", n.ID)
		seen[n.ID] = struct{}{}
	}
}

func TestAddNote_PreservesInsertionOrder(t *testing.T) {
	s, _ := testutil.MemoryStore(t)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c"} {
		_, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: c})
		require.NoError(t, err)
	}
	var got []string
	for _, n := range s.Notes(ctx, "u1") {
		got = append(got, n.Content)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestAddNote_StorageFailurePropagates(t *testing.T) {
	backend := testutil.NewFlakyBackend()
	s := testutil.Store(t, backend, nil)

	backend.FailWrites(true)
	_, err := s.AddNote(context.Background(), models.NoteDraft{UserID: "u1", Content: "x"})
	assert.ErrorIs(t, err, testutil.ErrBackend)

	backend.FailWrites(false)
	backend.FailReads(true)
	_, err = s.AddNote(context.Background(), models.NoteDraft{UserID: "u1", Content: "x"})
	assert.ErrorIs(t, err, testutil.ErrBackend)
}

func TestAddNote_ConcurrentWritersLoseNothing(t *testing.T) {
	s, _ := testutil.MemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Notes(ctx, "u1"), 20)
}

func TestUpdateNote_MergesAndStampsEditTime(t *testing.T) {
	clock := testutil.NewClock(epoch)
	s := testutil.Store(t, storage.NewMemory(), clock)
	ctx := context.Background()

	n, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Title: "t", Content: "hello", Category: "Work"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := s.UpdateNote(ctx, n.ID, models.NotePatch{Content: ptr("bye")})
	require.NoError(t, err)
	assert.Equal(t, "bye", updated.Content)
	assert.Equal(t, "t", updated.Title)
	assert.Equal(t, "Work", updated.Category)
	require.NotNil(t, updated.DateEdited)
	assert.False(t, updated.DateEdited.Before(updated.DateAdded))

	stored, err := s.Note(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "bye", stored.Content)
	require.NotNil(t, stored.DateEdited)
	assert.True(t, stored.DateEdited.Equal(epoch.Add(time.Minute)))
}

func TestUpdateNote_EditTimeNeverBeforeCreation(t *testing.T) {
	clock := testutil.NewClock(epoch)
	s := testutil.Store(t, storage.NewMemory(), clock)
	ctx := context.Background()

	n, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "x", DateAdded: epoch.Add(time.Hour)})
	require.NoError(t, err)
	updated, err := s.UpdateNote(ctx, n.ID, models.NotePatch{Title: ptr("new")})
	require.NoError(t, err)
	assert.True(t, updated.DateEdited.Equal(n.DateAdded))
}

func TestUpdateNote_UnknownIDLeavesStorageUnchanged(t *testing.T) {
	backend := testutil.NewFlakyBackend()
	s := testutil.Store(t, backend, nil)
	ctx := context.Background()

	_, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "hello"})
	require.NoError(t, err)
	before, _, _ := backend.Get(ctx, notestore.NotesKey)
	writes := backend.Sets()

	_, err = s.UpdateNote(ctx, "nonexistent", models.NotePatch{Content: ptr("bye")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	after, _, _ := backend.Get(ctx, notestore.NotesKey)
	assert.Equal(t, before, after)
	assert.Equal(t, writes, backend.Sets())
}

func TestDeleteNote_Idempotent(t *testing.T) {
	s, mem := testutil.MemoryStore(t)
	ctx := context.Background()

	keep, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "keep"})
	require.NoError(t, err)
	gone, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "gone"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(ctx, gone.ID))
	notes := s.Notes(ctx, "u1")
	require.Len(t, notes, 1)
	assert.Equal(t, keep.ID, notes[0].ID)

	before, _, _ := mem.Get(ctx, notestore.NotesKey)
	require.NoError(t, s.DeleteNote(ctx, gone.ID))
	after, _, _ := mem.Get(ctx, notestore.NotesKey)
	assert.Equal(t, before, after)
}

func TestNote_NotFound(t *testing.T) {
	s, _ := testutil.MemoryStore(t)
	_, err := s.Note(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNotes_CorruptBlobTreatedAsFailure(t *testing.T) {
	s, mem := testutil.MemoryStore(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, notestore.NotesKey, "{not json"))

	assert.Empty(t, s.Notes(ctx, "u1"))
	_, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "x"})
	assert.Error(t, err, "writes must not clobber an unreadable collection")
	raw, _, _ := mem.Get(ctx, notestore.NotesKey)
	assert.Equal(t, "{not json", raw)
}

func TestUpdateNote_FailedCheckSkipsWrite(t *testing.T) {
	backend := testutil.NewFlakyBackend()
	seq := 0
	s := notestore.New(backend,
		notestore.WithLogger(testutil.Logger()),
		notestore.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("note-%d", seq)
		}))
	ctx := context.Background()

	n, err := s.AddNote(ctx, models.NoteDraft{UserID: "u1", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "note-1", n.ID)
	writes := backend.Sets()

	var seen models.Note
	_, err = s.UpdateNote(ctx, n.ID, models.NotePatch{Content: ptr("bye")}, func(current models.Note) error {
		seen = current
		return apperr.ErrConflict
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, n.ID, seen.ID)
	assert.Equal(t, "hello", seen.Content)
	assert.Equal(t, writes, backend.Sets())

	stored, err := s.Note(ctx, "note-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)
}
