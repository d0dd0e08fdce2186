package dto

import (
	"time"

	"github.com/spec-kit/entitlement-service/internal/domain"
)

// FeatureResponse is one resolved catalog feature.
type FeatureResponse struct {
	Permission   string `json:"permission"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	URL          string `json:"url,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	GrantingRole string `json:"granting_role"`
}

// NewFeatureResponses projects resolved features for transport.
func NewFeatureResponses(features []domain.ResolvedFeature) []FeatureResponse {
	out := make([]FeatureResponse, 0, len(features))
	for _, f := range features {
		out = append(out, FeatureResponse{
			Permission:   f.PermissionName,
			Name:         f.Name,
			Description:  f.Description,
			URL:          f.URL,
			ExpiresAt:    f.ExpiresAt,
			GrantingRole: f.GrantingRole,
		})
	}
	return out
}

// TokenIssueRequest payload for minting an exchange token.
type TokenIssueRequest struct {
	Kind     string `json:"kind"`
	Identity string `json:"identity"`
}

// TokenIssueResponse carries the opaque token and its expiry.
type TokenIssueResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenAuthenticateRequest payload for redeeming an exchange token.
type TokenAuthenticateRequest struct {
	Kind     string `json:"kind"`
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// SubscriptionResponse is one active subscription bound to an identity.
type SubscriptionResponse struct {
	ID        string `json:"id"`
	Plan      string `json:"plan"`
	ExpiresAt int64  `json:"expires_at"`
	Cancelled bool   `json:"cancelled"`
}

// NewSubscriptionResponses projects subscriptions for transport.
func NewSubscriptionResponses(subs []domain.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubscriptionResponse{
			ID:        s.ID,
			Plan:      s.Plan,
			ExpiresAt: s.ExpiresAt,
			Cancelled: s.Cancelled,
		})
	}
	return out
}

// BillingEventRequest is the inbound billing notification.
type BillingEventRequest struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	Plan      string `json:"plan"`
	ExpiresAt int64  `json:"expires_at"`
}
