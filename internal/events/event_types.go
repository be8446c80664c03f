package events

import (
	"time"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventUserLoggedOut  EventType = "user_logged_out"
	EventTokenRenewed   EventType = "token_renewed"
	EventAuthRejected   EventType = "auth_rejected"
)

// Event represents an audit event emitted by the gateway.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// AuthRejectedPayload describes a rejection.
type AuthRejectedPayload struct {
	Path string `json:"path"`
	Code int    `json:"code"`
}

// TokenRenewedPayload describes a successful rotation.
type TokenRenewedPayload struct {
	Role domain.Role `json:"role"`
}
