package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elyesghazel/notedown/internal/common"
	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/server/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestResolveOwner_CacheHit(t *testing.T) {
	st := newFakeStore()
	r := NewOwnershipResolver(st, testLogger())

	owner, err := r.ResolveOwner(context.Background(), models.Snapshot{
		UUID: "abc", DocID: "d1", OwnerScope: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)
	assert.Zero(t, st.listOwnerScopesCalls, "cache hit must not scan")
	assert.Zero(t, st.listDocumentsCalls)
}

func TestResolveOwner_ScanWritesBackAndSecondCallIsCacheHit(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.documents["u1"] = []models.Document{{ID: "d9", OwnerScope: "u1"}}
	st.documents["u2"] = []models.Document{{ID: "d1", OwnerScope: "u2"}}
	st.snapshots = []models.Snapshot{{UUID: "abc", DocID: "d1", Editable: true}}

	r := NewOwnershipResolver(st, testLogger())

	snaps, err := st.ListSnapshots(ctx)
	require.NoError(t, err)
	owner, err := r.ResolveOwner(ctx, snaps[0])
	require.NoError(t, err)
	assert.Equal(t, "u2", owner)
	assert.Equal(t, 1, st.listOwnerScopesCalls)
	assert.Equal(t, 1, st.saveSnapshotsCalls, "discovered owner must be written back")

	stored, ok := st.snapshot("abc")
	require.True(t, ok)
	assert.Equal(t, "u2", stored.OwnerScope)

	// The write-back makes the next resolution a cache hit: the re-read
	// snapshot carries the owner, so no second scan happens.
	scanCalls := st.listDocumentsCalls
	snaps, err = st.ListSnapshots(ctx)
	require.NoError(t, err)
	owner, err = r.ResolveOwner(ctx, snaps[0])
	require.NoError(t, err)
	assert.Equal(t, "u2", owner)
	assert.Equal(t, 1, st.listOwnerScopesCalls)
	assert.Equal(t, scanCalls, st.listDocumentsCalls)
}

func TestResolveOwner_NotFound(t *testing.T) {
	st := newFakeStore()
	st.documents["u1"] = []models.Document{{ID: "d9", OwnerScope: "u1"}}

	r := NewOwnershipResolver(st, testLogger())

	_, err := r.ResolveOwner(context.Background(), models.Snapshot{UUID: "abc", DocID: "gone"})
	assert.ErrorIs(t, err, common.ErrOwnerNotFound)
}
