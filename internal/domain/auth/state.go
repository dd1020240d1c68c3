package auth

// StateKind tags the application auth state.
type StateKind string

const (
	StateUnauthenticated StateKind = "unauthenticated"
	StateLoading         StateKind = "loading"
	StateAuthenticated   StateKind = "authenticated"
)

// State is the process-wide auth state of one client runtime.
// Profile is set only when Kind is StateAuthenticated.
type State struct {
	Kind    StateKind    `json:"status"`
	Profile *UserProfile `json:"user,omitempty"`
}

// Unauthenticated returns the signed-out state.
func Unauthenticated() State { return State{Kind: StateUnauthenticated} }

// Loading returns the bootstrap-in-progress state.
func Loading() State { return State{Kind: StateLoading} }

// Authenticated returns the signed-in state for p.
func Authenticated(p UserProfile) State {
	p.Normalize()
	return State{Kind: StateAuthenticated, Profile: &p}
}

// IsAuthenticated reports whether a profile is attached.
func (s State) IsAuthenticated() bool {
	return s.Kind == StateAuthenticated && s.Profile != nil
}

// IsTerminal reports whether s is a state the bootstrapper may end in.
func (s State) IsTerminal() bool {
	return s.Kind == StateUnauthenticated || s.Kind == StateAuthenticated
}

// EventKind enumerates identity-provider auth state changes.
type EventKind string

const (
	EventSignedIn         EventKind = "SIGNED_IN"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventTokenRefreshed   EventKind = "TOKEN_REFRESHED"
	EventUserUpdated      EventKind = "USER_UPDATED"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

// Event is a single auth state change pushed by the identity client.
// Session is nil for EventSignedOut. Seq increases with every event a client
// emits.
type Event struct {
	Kind    EventKind
	Session *ProviderSession
	Seq     uint64
}
