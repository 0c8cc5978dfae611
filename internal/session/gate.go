package session

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"inkpost/internal/domain"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// unreadable stored credentials alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned for operations that need a login.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the identity does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// Reason explains a denied decision.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var (
	allow               = Decision{Allowed: true}
	denyUnauthenticated = Decision{Reason: ReasonUnauthenticated}
	denyForbidden       = Decision{Reason: ReasonForbidden}
)

// Err converts a denied decision into its sentinel error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonForbidden:
		return ErrForbidden
	default:
		return ErrUnauthenticated
	}
}

// Identities looks identities up by id.
type Identities interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator checks a username and password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// Gate resolves session identities and enforces post ownership.
type Gate struct {
	identities Identities
	auth       Authenticator
	logger     *logrus.Logger
}

// NewGate builds a Gate. A nil logger falls back to a default logrus logger.
func NewGate(identities Identities, auth Authenticator, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gate{identities: identities, auth: auth, logger: logger}
}

// ResolveIdentity returns the live identity behind st, or false when the
// session is anonymous or its identity can no longer be found.
func (g *Gate) ResolveIdentity(ctx context.Context, st State) (*domain.User, bool) {
	if !st.Authenticated() {
		return nil, false
	}
	user, err := g.identities.GetByID(ctx, st.IdentityID)
	if err != nil || user == nil {
		if err != nil {
			g.logger.WithField("identity_id", st.IdentityID).Debugf("resolve identity: %v", err)
		}
		return nil, false
	}
	return user, true
}

// Login verifies credentials and returns a fresh authenticated State. On
// failure st is returned unchanged together with ErrInvalidCredentials, or
// with the lookup error when the store itself failed.
func (g *Gate) Login(ctx context.Context, st State, username, password string) (State, error) {
	user, err := g.auth.Authenticate(ctx, username, password)
	if err != nil {
		return st, err
	}
	if user == nil || user.ID <= 0 {
		return st, ErrInvalidCredentials
	}
	return State{IdentityID: user.ID, Username: user.Username}, nil
}

// Logout discards all session state.
func (g *Gate) Logout(State) State {
	return Anonymous
}

// AuthorizeCreate allows any resolvable identity to create a post and
// returns that identity, which must become the post owner.
func (g *Gate) AuthorizeCreate(ctx context.Context, st State) (*domain.User, Decision) {
	user, ok := g.ResolveIdentity(ctx, st)
	if !ok {
		return nil, denyUnauthenticated
	}
	return user, allow
}

// AuthorizeMutation allows edits and deletes of post only by its owner.
func (g *Gate) AuthorizeMutation(ctx context.Context, st State, post *domain.Post) Decision {
	user, ok := g.ResolveIdentity(ctx, st)
	if !ok {
		return denyUnauthenticated
	}
	if post == nil || user.ID != post.OwnerID {
		return denyForbidden
	}
	return allow
}
