// Package inmemory provides a process-local Store implementation used for
// development mode and tests. Each call is atomic under one mutex, matching
// the read-modify-write contract of the port.
package inmemory

import (
	"context"
	"sync"

	"github.com/elyesghazel/notedown/internal/server/models"
)

type Store struct {
	mu        sync.Mutex
	documents map[string][]models.Document
	snapshots []models.Snapshot
}

func New() *Store {
	return &Store{documents: make(map[string][]models.Document)}
}

func (s *Store) ListDocuments(ctx context.Context, ownerScope string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]models.Document, len(s.documents[ownerScope]))
	copy(docs, s.documents[ownerScope])
	return docs, nil
}

func (s *Store) SaveDocuments(ctx context.Context, ownerScope string, docs []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.Document, len(docs))
	copy(cp, docs)
	s.documents[ownerScope] = cp
	return nil
}

func (s *Store) ListOwnerScopes(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scopes := make([]string, 0, len(s.documents))
	for scope := range s.documents {
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps := make([]models.Snapshot, len(s.snapshots))
	copy(snaps, s.snapshots)
	return snaps, nil
}

func (s *Store) SaveSnapshots(ctx context.Context, snaps []models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.Snapshot, len(snaps))
	copy(cp, snaps)
	s.snapshots = cp
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
