package session

import "fmt"

// State names a node of the session automaton.
type State string

const (
	// StateRestoring is the initial state while the persisted session is read.
	StateRestoring State = "restoring"
	// StateAnonymous means no user is logged in.
	StateAnonymous State = "anonymous"
	// StateAuthenticating means a login attempt is in flight.
	StateAuthenticating State = "authenticating"
	// StateAuthenticated means user and token are both present.
	StateAuthenticated State = "authenticated"
	// StateAuthFailed means the last login attempt was rejected.
	StateAuthFailed State = "auth_failed"
)

// Session is a point-in-time snapshot of the lifecycle state. Copies are
// handed to readers; only the Manager mutates the live value.
type Session struct {
	State State
	User  *User
	Token string
	Err   string
}

// IsAuthenticated is derived, never stored: user and token are co-nullable
// and authentication holds exactly when both are present.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// IsLoading reports whether restoration or a login attempt is in progress.
func (s Session) IsLoading() bool {
	return s.State == StateRestoring || s.State == StateAuthenticating
}

func (s Session) String() string {
	user := "<nil>"
	if s.User != nil {
		user = fmt.Sprintf("%d", s.User.ID)
	}
	return fmt.Sprintf(
		"state=%s user=%s authenticated=%t loading=%t err=%q",
		s.State,
		user,
		s.IsAuthenticated(),
		s.IsLoading(),
		s.Err,
	)
}
