package session

// State is the per-client session payload.
type State struct {
	IdentityID int64  `json:"identity_id,omitempty"`
	Username   string `json:"username,omitempty"`
}

// Anonymous is the empty session.
var Anonymous = State{}

// Authenticated reports whether the state carries an identity id. It does
// not check that the identity still exists; use Gate.ResolveIdentity.
func (s State) Authenticated() bool {
	return s.IdentityID > 0
}
