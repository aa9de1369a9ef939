package auth

import (
	"context"
	"strings"

	"github.com/elyesghazel/notedown/internal/logging"
)

// GuestScopePrefix namespaces synthetic guest identities so they can never
// collide with authenticated user ids.
const GuestScopePrefix = "guest:"

// Credentials is the raw credential material available when a connection is
// established: an opaque signed token and an optional guest identifier the
// client stored on a previous visit.
type Credentials struct {
	Token   string
	GuestID string
}

// ResolveIdentity turns connection credentials into an owner scope.
//
// A valid token wins and yields its subject. Otherwise a present guest
// identifier yields a stable pseudo-identity under GuestScopePrefix. Anything
// else resolves to "" (no identity). Validation failures are logged and
// degrade to the next fallback; this function never fails.
func ResolveIdentity(ctx context.Context, creds Credentials, secretKey []byte, log logging.Logger) string {
	if creds.Token != "" {
		userID, err := GetUserIDFromToken(creds.Token, secretKey)
		if err == nil && userID != "" {
			return userID
		}
		if err != nil {
			log.Debug(ctx, "token validation failed, falling back", "err", err)
		}
	}

	if guest := strings.TrimSpace(creds.GuestID); guest != "" {
		return GuestScopePrefix + guest
	}

	return ""
}
