// Package testutil provides shared test helpers for stores, backends and clocks.
package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/notekeep/internal/notestore"
	"github.com/starford/notekeep/internal/storage"
)

// ErrBackend is returned by FlakyBackend when a failure is switched on.
var ErrBackend = errors.New("backend unavailable")

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// FlakyBackend wraps a Backend and fails on demand. It counts writes.
type FlakyBackend struct {
	storage.Backend

	mu      sync.Mutex
	failGet bool
	failSet bool
	sets    int
}

// NewFlakyBackend wraps an in-memory backend.
func NewFlakyBackend() *FlakyBackend {
	return &FlakyBackend{Backend: storage.NewMemory()}
}

// FailReads toggles read failures.
func (f *FlakyBackend) FailReads(on bool) {
	f.mu.Lock()
	f.failGet = on
	f.mu.Unlock()
}

// FailWrites toggles write and remove failures.
func (f *FlakyBackend) FailWrites(on bool) {
	f.mu.Lock()
	f.failSet = on
	f.mu.Unlock()
}

// Sets returns the number of successful Set calls so far.
func (f *FlakyBackend) Sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func (f *FlakyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, ErrBackend
	}
	return f.Backend.Get(ctx, key)
}

func (f *FlakyBackend) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return ErrBackend
	}
	if err := f.Backend.Set(ctx, key, value); err != nil {
		return err
	}
	f.sets++
	return nil
}

func (f *FlakyBackend) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return ErrBackend
	}
	return f.Backend.Remove(ctx, key)
}

// Store builds a Store over backend with a cheap bcrypt cost, a silent
// logger and the given clock (time.Now when nil).
func Store(t *testing.T, backend storage.Backend, clock *Clock) *notestore.Store {
	t.Helper()
	opts := []notestore.Option{
		notestore.WithLogger(Logger()),
		notestore.WithHashCost(bcrypt.MinCost),
	}
	if clock != nil {
		opts = append(opts, notestore.WithClock(clock.Now))
	}
	return notestore.New(backend, opts...)
}

// MemoryStore builds a Store over a fresh in-memory backend.
func MemoryStore(t *testing.T) (*notestore.Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return Store(t, mem, nil), mem
}
