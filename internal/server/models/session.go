package models

// ShareGrant is a connection's authorization to edit one document through a
// published share link. It is created only after admission succeeds and
// captures the owner scope resolved at join time.
type ShareGrant struct {
	UUID       string
	DocID      string
	OwnerScope string
	GuestName  string
}

// Session is the transient, connection-scoped identity state. It is never
// persisted: created on connect, mutated by joins, discarded on disconnect.
//
// UserID is empty for unauthenticated connections. Share is nil until a
// successful share join; it is additive metadata and does not replace an
// owner identity held by the same connection.
type Session struct {
	UserID string
	Share  *ShareGrant
}

// IsOwner reports whether the session carries a resolved identity.
func (s *Session) IsOwner() bool { return s.UserID != "" }
