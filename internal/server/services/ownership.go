// Package services contains the sync engine's business logic: lazy snapshot
// ownership resolution, guest share admission, and the session-level join and
// update operations.
package services

import (
	"context"
	"fmt"

	"github.com/elyesghazel/notedown/internal/common"
	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/server/models"
	"github.com/elyesghazel/notedown/internal/server/store"
)

// OwnershipResolver finds the owner scope of a published snapshot. Snapshots
// created before owner tracking carry no owner; the resolver scans every
// owner scope for the referenced document and writes the discovered owner
// back onto the snapshot, so the scan runs at most once per snapshot.
type OwnershipResolver struct {
	store  store.Store
	logger logging.Logger
}

func NewOwnershipResolver(st store.Store, log logging.Logger) *OwnershipResolver {
	return &OwnershipResolver{store: st, logger: log.With("module", "ownership")}
}

// ResolveOwner returns the owner scope of snap. A populated OwnerScope is
// returned as-is. Otherwise owner scopes are scanned in unspecified order
// until one's document list contains snap.DocID; the match is persisted back
// to the snapshot store before returning. If no scope owns the document
// (e.g. it was deleted after publishing), common.ErrOwnerNotFound is
// returned and callers must treat the operation as terminally failed.
func (r *OwnershipResolver) ResolveOwner(ctx context.Context, snap models.Snapshot) (string, error) {
	if snap.OwnerScope != "" {
		return snap.OwnerScope, nil
	}

	scopes, err := r.store.ListOwnerScopes(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing owner scopes: %w", err)
	}

	for _, scope := range scopes {
		docs, err := r.store.ListDocuments(ctx, scope)
		if err != nil {
			return "", fmt.Errorf("error listing documents for scope %s: %w", scope, err)
		}
		for _, doc := range docs {
			if doc.ID != snap.DocID {
				continue
			}
			if err := r.writeBack(ctx, snap.UUID, scope); err != nil {
				return "", err
			}
			r.logger.Info(ctx, "resolved snapshot owner", "uuid", snap.UUID, "owner", scope)
			return scope, nil
		}
	}

	return "", common.ErrOwnerNotFound
}

// writeBack persists the discovered owner scope onto the stored snapshot.
func (r *OwnershipResolver) writeBack(ctx context.Context, uuid, ownerScope string) error {
	snaps, err := r.store.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("error listing snapshots: %w", err)
	}
	for i := range snaps {
		if snaps[i].UUID == uuid {
			snaps[i].OwnerScope = ownerScope
		}
	}
	if err := r.store.SaveSnapshots(ctx, snaps); err != nil {
		return fmt.Errorf("error saving snapshots: %w", err)
	}
	return nil
}
