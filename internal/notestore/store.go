// Package notestore is the local data store: users, the current session,
// notes and categories, each kept as one JSON collection in a storage.Backend.
//
// Every operation reads the whole collection, changes it in memory and writes
// it back with a single Set. A mutex per collection serializes those
// read-modify-write cycles within the process.
package notestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/notekeep/internal/storage"
)

// Backend keys, one per collection.
const (
	UsersKey       = "@users"
	CurrentUserKey = "@current_user"
	NotesKey       = "@notes"
	CategoriesKey  = "@categories"
)

// Store implements user, session, note and category operations.
type Store struct {
	backend  storage.Backend
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	hashCost int

	usersMu      sync.Mutex // @users and @current_user
	notesMu      sync.Mutex
	categoriesMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the time source used for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides record identifier generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithHashCost sets the bcrypt cost for password hashes.
func WithHashCost(cost int) Option {
	return func(s *Store) {
		s.hashCost = cost
	}
}

// New creates a Store on top of backend.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load decodes the collection at key. An absent key is an empty collection.
func load[T any](ctx context.Context, b storage.Backend, key string) ([]T, error) {
	raw, ok, err := b.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("notestore: decode %s: %w", key, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// save replaces the collection at key.
func save[T any](ctx context.Context, b storage.Backend, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("notestore: encode %s: %w", key, err)
	}
	return b.Set(ctx, key, string(data))
}

func (s *Store) logFailure(msg string, err error, attrs ...any) {
	s.logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
}
