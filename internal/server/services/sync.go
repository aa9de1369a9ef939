package services

import (
	"context"
	"fmt"
	"time"

	"github.com/elyesghazel/notedown/internal/common"
	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/server/models"
	"github.com/elyesghazel/notedown/internal/server/store"
)

// DocumentRoom names the broadcast room of a document's owner sessions.
func DocumentRoom(docID string) string { return "doc:" + docID }

// ShareRoom names the broadcast room of one published share.
func ShareRoom(uuid string) string { return "share:" + uuid }

// Broadcast describes the fan-out a successful update produces. The
// transport delivers it to every connection in Rooms except the originating
// one.
type Broadcast struct {
	DocumentID string
	Content    string
	Rooms      []string
}

// SyncService implements the join and update operations of the sync engine.
//
// Updates perform an unsynchronized read-modify-write of the owner's
// document list: two concurrent writers to the same document can both read
// before either writes, and the later save wins. The client-side debounce
// keeps same-origin edits serialized; a per-document mutex would be needed
// for true concurrent multi-writer safety.
type SyncService struct {
	store     store.Store
	admission *AdmissionService
	logger    logging.Logger
}

func NewSyncService(st store.Store, admission *AdmissionService, log logging.Logger) *SyncService {
	return &SyncService{store: st, admission: admission, logger: log.With("module", "sync")}
}

// JoinDocument authorizes sess to enter a document room. The session must
// carry a resolved identity whose document list currently contains docID;
// ownership is re-checked here on every join, never cached.
func (s *SyncService) JoinDocument(ctx context.Context, sess *models.Session, docID string) error {
	if !sess.IsOwner() {
		return common.ErrorUnauthorized
	}

	docs, err := s.store.ListDocuments(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("error listing documents: %w", err)
	}
	for _, doc := range docs {
		if doc.ID == docID {
			return nil
		}
	}
	return common.ErrorNotFound
}

// JoinShare runs share admission and, on success, binds the resulting grant
// to the session. The grant is additive: an authenticated owner keeps its
// identity alongside the guest binding.
func (s *SyncService) JoinShare(ctx context.Context, sess *models.Session, uuid, guestName, password string) error {
	grant, err := s.admission.AdmitShareJoin(ctx, uuid, guestName, password)
	if err != nil {
		return err
	}
	sess.Share = grant
	return nil
}

// ApplyDocumentUpdate persists newContent for one of the session owner's
// documents and keeps all published snapshots of that document in step.
// Ownership is re-derived from the store on every call; a missing document
// yields common.ErrorNotFound, which the transport drops silently.
func (s *SyncService) ApplyDocumentUpdate(ctx context.Context, sess *models.Session, docID, newContent string) (*Broadcast, error) {
	if !sess.IsOwner() {
		return nil, common.ErrorUnauthorized
	}
	return s.applyUpdate(ctx, sess.UserID, docID, newContent, false)
}

// ApplyShareUpdate persists newContent through a guest-share binding. The
// owner scope captured at join time is used as-is, not re-resolved. A stale
// binding (snapshot unpublished since the join) yields common.ErrorNotFound.
func (s *SyncService) ApplyShareUpdate(ctx context.Context, sess *models.Session, uuid, newContent string) (*Broadcast, error) {
	if sess.Share == nil || sess.Share.UUID != uuid {
		return nil, common.ErrorUnauthorized
	}
	return s.applyUpdate(ctx, sess.Share.OwnerScope, sess.Share.DocID, newContent, true)
}

// applyUpdate is the shared write-through path: update the source document,
// then every snapshot referencing it, then report the rooms to notify.
// requireSnapshot guards the share path, whose binding is only valid while
// the snapshot is still published.
func (s *SyncService) applyUpdate(ctx context.Context, ownerScope, docID, newContent string, requireSnapshot bool) (*Broadcast, error) {
	snaps, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}

	now := time.Now()
	affected := make([]string, 0, 1)
	changed := false
	for i := range snaps {
		if snaps[i].DocID != docID {
			continue
		}
		snaps[i].Content = newContent
		snaps[i].PublishedAt = now
		affected = append(affected, snaps[i].UUID)
		changed = true
	}
	if requireSnapshot && !changed {
		return nil, common.ErrorNotFound
	}

	docs, err := s.store.ListDocuments(ctx, ownerScope)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	found := false
	for i := range docs {
		if docs[i].ID != docID {
			continue
		}
		docs[i].Content = newContent
		docs[i].UpdatedAt = now
		found = true
		break
	}
	if !found {
		return nil, common.ErrorNotFound
	}

	if err := s.store.SaveDocuments(ctx, ownerScope, docs); err != nil {
		return nil, fmt.Errorf("error saving documents: %w", err)
	}
	if changed {
		if err := s.store.SaveSnapshots(ctx, snaps); err != nil {
			return nil, fmt.Errorf("error saving snapshots: %w", err)
		}
	}

	rooms := make([]string, 0, 1+len(affected))
	rooms = append(rooms, DocumentRoom(docID))
	for _, uuid := range affected {
		rooms = append(rooms, ShareRoom(uuid))
	}

	return &Broadcast{DocumentID: docID, Content: newContent, Rooms: rooms}, nil
}
