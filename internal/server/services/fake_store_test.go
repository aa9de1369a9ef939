package services

import (
	"context"
	"sync"

	"github.com/elyesghazel/notedown/internal/server/models"
)

// fakeStore is an in-memory store double that counts adapter calls so tests
// can observe scan and write-back behavior.
type fakeStore struct {
	mu        sync.Mutex
	documents map[string][]models.Document
	snapshots []models.Snapshot

	listDocumentsCalls   int
	saveDocumentsCalls   int
	listOwnerScopesCalls int
	listSnapshotsCalls   int
	saveSnapshotsCalls   int

	listDocumentsErr error
	saveDocumentsErr error
	saveSnapshotsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{documents: make(map[string][]models.Document)}
}

func (f *fakeStore) ListDocuments(ctx context.Context, ownerScope string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDocumentsCalls++
	if f.listDocumentsErr != nil {
		return nil, f.listDocumentsErr
	}
	docs := make([]models.Document, len(f.documents[ownerScope]))
	copy(docs, f.documents[ownerScope])
	return docs, nil
}

func (f *fakeStore) SaveDocuments(ctx context.Context, ownerScope string, docs []models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveDocumentsCalls++
	if f.saveDocumentsErr != nil {
		return f.saveDocumentsErr
	}
	cp := make([]models.Document, len(docs))
	copy(cp, docs)
	f.documents[ownerScope] = cp
	return nil
}

func (f *fakeStore) ListOwnerScopes(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOwnerScopesCalls++
	scopes := make([]string, 0, len(f.documents))
	for scope := range f.documents {
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func (f *fakeStore) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSnapshotsCalls++
	snaps := make([]models.Snapshot, len(f.snapshots))
	copy(snaps, f.snapshots)
	return snaps, nil
}

func (f *fakeStore) SaveSnapshots(ctx context.Context, snaps []models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveSnapshotsCalls++
	if f.saveSnapshotsErr != nil {
		return f.saveSnapshotsErr
	}
	cp := make([]models.Snapshot, len(snaps))
	copy(cp, snaps)
	f.snapshots = cp
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

// document returns the stored content of one document, or "" if absent.
func (f *fakeStore) document(ownerScope, docID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.documents[ownerScope] {
		if doc.ID == docID {
			return doc.Content
		}
	}
	return ""
}

// snapshot returns the stored snapshot with the given uuid.
func (f *fakeStore) snapshot(uuid string) (models.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, snap := range f.snapshots {
		if snap.UUID == uuid {
			return snap, true
		}
	}
	return models.Snapshot{}, false
}
