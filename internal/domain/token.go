package domain

import "time"

// ExchangeTokenKind namespaces the three opaque-token flavors. They share
// one shape and lifecycle but are stored and redeemed separately.
type ExchangeTokenKind string

const (
	TokenKindDashboard           ExchangeTokenKind = "dashboard"
	TokenKindPurchaseLink        ExchangeTokenKind = "purchase-link"
	TokenKindOfflineSubscription ExchangeTokenKind = "offline-subscription"
)

// ExchangeToken binds an opaque random key to an identity for a bounded
// time window. It is created once, read until expiry, never updated, and
// removed only by the store's native TTL.
type ExchangeToken struct {
	Token     string
	Identity  string // email or account id
	ExpiresAt time.Time
}
