package domain

// SessionState is the authentication state of one browser session.
type SessionState string

const (
	SessionLoggedOut SessionState = "LOGGED_OUT"
	SessionLoggedIn  SessionState = "LOGGED_IN"
)

// Authenticated reports whether the state grants the dashboard.
func (s SessionState) Authenticated() bool {
	return s == SessionLoggedIn
}

// View identifies which of the two mutually exclusive pages is shown.
type View string

const (
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
)

// Credentials are captured by the login form.
type Credentials struct {
	Username string
	Password string
}

// AuthOutcome enumerates results of a login submit.
type AuthOutcome string

const (
	AuthAuthenticated AuthOutcome = "AUTHENTICATED"
	AuthRejected      AuthOutcome = "REJECTED"
)

// AuthResult is Authenticated or Rejected(Reason).
type AuthResult struct {
	Outcome AuthOutcome
	Reason  string
}

// Authenticated builds a successful result.
func Authenticated() AuthResult {
	return AuthResult{Outcome: AuthAuthenticated}
}

// Rejected builds a failed result carrying the reason shown to the user.
func Rejected(reason string) AuthResult {
	return AuthResult{Outcome: AuthRejected, Reason: reason}
}

// OK reports whether the submit authenticated the session.
func (r AuthResult) OK() bool {
	return r.Outcome == AuthAuthenticated
}
