package auth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elyesghazel/notedown/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestResolveIdentity_ValidToken(t *testing.T) {
	secret := []byte("k")
	tok, err := GenerateToken("u1", secret, time.Hour)
	require.NoError(t, err)

	got := ResolveIdentity(context.Background(), Credentials{Token: tok}, secret, testLogger())
	assert.Equal(t, "u1", got)
}

func TestResolveIdentity_TokenWinsOverGuest(t *testing.T) {
	secret := []byte("k")
	tok, err := GenerateToken("u1", secret, time.Hour)
	require.NoError(t, err)

	got := ResolveIdentity(context.Background(), Credentials{Token: tok, GuestID: "g1"}, secret, testLogger())
	assert.Equal(t, "u1", got)
}

func TestResolveIdentity_InvalidTokenFallsBackToGuest(t *testing.T) {
	got := ResolveIdentity(context.Background(), Credentials{Token: "garbage", GuestID: "g1"}, []byte("k"), testLogger())
	assert.Equal(t, GuestScopePrefix+"g1", got)
}

func TestResolveIdentity_ExpiredTokenFallsBackToGuest(t *testing.T) {
	secret := []byte("k")
	tok, err := GenerateToken("u1", secret, -time.Minute)
	require.NoError(t, err)

	got := ResolveIdentity(context.Background(), Credentials{Token: tok, GuestID: "g1"}, secret, testLogger())
	assert.Equal(t, GuestScopePrefix+"g1", got)
}

func TestResolveIdentity_NoCredentials(t *testing.T) {
	got := ResolveIdentity(context.Background(), Credentials{}, []byte("k"), testLogger())
	assert.Equal(t, "", got)

	got = ResolveIdentity(context.Background(), Credentials{GuestID: "   "}, []byte("k"), testLogger())
	assert.Equal(t, "", got)
}
