// Package store persists the options snapshot in an external key-value store
// and reports changes made by any writer.
//
// Backends:
//   - memory: in-process storage for tests and single-process use
//   - file: one JSON file, written atomically, watched for outside edits
//   - redis: one key plus a pub/sub channel, shared by several daemons
//
// Every Store has an origin ID. Saves publish a Change carrying it so a watcher
// can tell its own echoes from other writers. Readers always reload the whole
// snapshot on a change; the notification carries no data.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Change announces that the stored snapshot was replaced.
type Change struct {
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Load returns the stored snapshot. Returns nil, nil if nothing is stored yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the snapshot and notifies watchers.
	Save(ctx context.Context, data []byte) error

	// Watch delivers a Change for every save, including this store's own.
	// The channel closes when ctx is done or the store is closed. Changes
	// may be coalesced when the reader falls behind.
	Watch(ctx context.Context) (<-chan Change, error)

	// Origin identifies this store instance in the Changes it publishes.
	Origin() string

	Close() error
}

// NewOrigin returns a fresh writer identity.
func NewOrigin() string {
	return uuid.NewString()
}

// notify delivers c without blocking; a full buffer already holds a pending
// reload, which will read the latest snapshot anyway.
func notify(ch chan Change, c Change) {
	select {
	case ch <- c:
	default:
	}
}
