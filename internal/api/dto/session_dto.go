package dto

import "github.com/spec-kit/dashboard-gate/internal/domain"

// LoginRequest is accepted as a form post or JSON body.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Credentials converts the request to the domain value.
func (r LoginRequest) Credentials() domain.Credentials {
	return domain.Credentials{Username: r.Username, Password: r.Password}
}

// SessionResponse describes a browser session's gate.
type SessionResponse struct {
	State         domain.SessionState `json:"state"`
	View          domain.View         `json:"view"`
	Authenticated bool                `json:"authenticated"`
}
