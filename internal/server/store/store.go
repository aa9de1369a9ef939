// Package store declares the port to the durable document and snapshot
// stores consumed by the sync engine. Implementations live under
// internal/server/repositories; the engine treats every call as one atomic
// read-modify-write unit and adds no locking of its own.
package store

import (
	"context"

	"github.com/elyesghazel/notedown/internal/server/models"
)

// Store is the narrow interface over the two durable stores: per-owner
// document lists and the global published-snapshot list.
type Store interface {
	// ListDocuments returns the full document list of one owner scope.
	ListDocuments(ctx context.Context, ownerScope string) ([]models.Document, error)

	// SaveDocuments replaces the full document list of one owner scope.
	SaveDocuments(ctx context.Context, ownerScope string, docs []models.Document) error

	// ListOwnerScopes returns every owner scope known to the store, in
	// unspecified order.
	ListOwnerScopes(ctx context.Context) ([]string, error)

	// ListSnapshots returns the global published-snapshot list.
	ListSnapshots(ctx context.Context) ([]models.Snapshot, error)

	// SaveSnapshots replaces the global published-snapshot list.
	SaveSnapshots(ctx context.Context, snaps []models.Snapshot) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
