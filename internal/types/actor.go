// README: Caller identity threaded explicitly through every service call.
package types

// Actor is the authenticated caller as reported by the identity provider.
// Role flags are trusted as-is; the core never re-derives them.
type Actor struct {
	UserID        ID
	EmailVerified bool
	IsProvider    bool
	IsAdmin       bool
}

func (a Actor) Valid() bool {
	return a.UserID != ""
}
