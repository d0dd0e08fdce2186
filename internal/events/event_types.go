package events

import (
	"time"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRolesChanged         EventType = "roles_changed"
	EventExchangeTokenCreated EventType = "exchange_token_created"
	EventSubscriptionRecorded EventType = "subscription_recorded"
)

// RoleChangeAction tells listeners which direction a role set moved.
type RoleChangeAction string

const (
	RoleGranted RoleChangeAction = "granted"
	RoleRevoked RoleChangeAction = "revoked"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Identity  string      `json:"identity"` // account id or email
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RolesChangedPayload payload.
type RolesChangedPayload struct {
	AccountID *string          `json:"account_id,omitempty"`
	Email     string           `json:"email,omitempty"`
	Role      string           `json:"role"`
	Plan      string           `json:"plan"`
	Action    RoleChangeAction `json:"action"`
}

// ExchangeTokenCreatedPayload payload.
type ExchangeTokenCreatedPayload struct {
	Kind      domain.ExchangeTokenKind `json:"kind"`
	Identity  string                   `json:"identity"`
	ExpiresAt time.Time                `json:"expires_at"`
}

// SubscriptionRecordedPayload payload.
type SubscriptionRecordedPayload struct {
	Plan      string `json:"plan"`
	ExpiresAt int64  `json:"expires_at"`
	Cancelled bool   `json:"cancelled"`
}
