package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/elyesghazel/notedown/internal/common"
	"github.com/elyesghazel/notedown/internal/cryptox"
	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/server/models"
	"github.com/elyesghazel/notedown/internal/server/store"
)

// minGuestNameLen is the minimum trimmed display-name length for guests.
const minGuestNameLen = 2

// AdmissionService validates a guest's request to join a share session.
type AdmissionService struct {
	store    store.Store
	resolver *OwnershipResolver
	logger   logging.Logger
}

func NewAdmissionService(st store.Store, resolver *OwnershipResolver, log logging.Logger) *AdmissionService {
	return &AdmissionService{store: st, resolver: resolver, logger: log.With("module", "admission")}
}

// AdmitShareJoin checks a guest join request and returns the grant binding
// the guest to the share's document. Checks run in a fixed order and
// short-circuit on the first failure: guest name, snapshot existence,
// editability, password, owner resolution. The returned error is one of the
// admission sentinels in the common package; its text is the reason sent in
// the join acknowledgment.
func (s *AdmissionService) AdmitShareJoin(ctx context.Context, uuid, guestName, suppliedPassword string) (*models.ShareGrant, error) {
	name := strings.TrimSpace(guestName)
	if utf8.RuneCountInString(name) < minGuestNameLen {
		return nil, common.ErrGuestNameRequired
	}

	snap, err := s.findSnapshot(ctx, uuid)
	if err != nil {
		return nil, err
	}

	if !snap.Editable {
		return nil, common.ErrShareNotEditable
	}

	if snap.EditPasswordHash != "" {
		ok, err := cryptox.VerifyPassword(suppliedPassword, snap.EditPasswordHash)
		if err != nil {
			s.logger.Warn(ctx, "stored password hash unreadable", "uuid", uuid, "err", err)
		}
		if !ok {
			return nil, common.ErrInvalidPassword
		}
	}

	ownerScope, err := s.resolver.ResolveOwner(ctx, snap)
	if err != nil {
		return nil, err
	}

	return &models.ShareGrant{
		UUID:       snap.UUID,
		DocID:      snap.DocID,
		OwnerScope: ownerScope,
		GuestName:  name,
	}, nil
}

func (s *AdmissionService) findSnapshot(ctx context.Context, uuid string) (models.Snapshot, error) {
	snaps, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("error listing snapshots: %w", err)
	}
	for _, snap := range snaps {
		if snap.UUID == uuid {
			return snap, nil
		}
	}
	return models.Snapshot{}, common.ErrShareNotFound
}
