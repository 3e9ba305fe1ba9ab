package provider

// Cursor is the position in a provider's transaction delta feed. It is a
// tagged value rather than a nullable string so that "never synced / full
// resync requested" (NoCursor) is distinct from a provider-issued token,
// including an empty one.
type Cursor struct {
	token string
	valid bool
}

// NoCursor is the absent cursor: the next sync is a full resync.
var NoCursor = Cursor{}

// NewCursor wraps a provider-issued cursor token. An empty token is still a
// valid position if the provider says so.
func NewCursor(token string) Cursor {
	return Cursor{token: token, valid: true}
}

// Token returns the raw cursor token and whether one is present.
func (c Cursor) Token() (string, bool) {
	return c.token, c.valid
}

// IsNone reports whether this is the absent cursor.
func (c Cursor) IsNone() bool {
	return !c.valid
}

// String renders the cursor for logs without leaking the full token.
func (c Cursor) String() string {
	if !c.valid {
		return "<none>"
	}
	if len(c.token) <= 8 {
		return c.token
	}
	return c.token[:8] + "..."
}
