package domain

import "time"

// Event names published to the user events topic.
const (
	EventUserRegistered  = "user.registered"
	EventUserLoggedIn    = "user.login"
	EventUserLoggedOut   = "user.logout"
	EventPasswordChanged = "password.changed"
	EventEmailVerified   = "email.verified"
	EventUserDeactivated = "user.deactivated"
)

// UserEvent is the wire shape for account lifecycle notifications. Events
// are published after the owning transaction commits and are best effort.
type UserEvent struct {
	Name       string    `json:"name"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	UserType   UserType  `json:"user_type,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
