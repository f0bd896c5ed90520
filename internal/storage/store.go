// Package storage provides abstractions for durable persistence of the
// party set.
package storage

import (
	"context"

	"github.com/sylvanite/partyhub/internal/party"
)

// Store persists the full party set. Implementations must guarantee that a
// failed Save never corrupts previously committed state, and that Load
// skips individually malformed records instead of failing the whole load.
type Store interface {
	// Save replaces the persisted set with the given snapshots.
	Save(ctx context.Context, snapshots []party.Snapshot) error

	// Load returns every readable snapshot. Home locations come back as
	// unresolved tokens inside each snapshot; resolving them requires the
	// caller's world registry.
	Load(ctx context.Context) ([]party.Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
