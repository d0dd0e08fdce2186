package domain

import "time"

// Subscription is a time-bounded grant of a plan tier to an account.
// ExpiresAt is the sole authority for activity: a cancelled subscription
// keeps granting access until it expires.
type Subscription struct {
	ID        string
	AccountID string
	Plan      string
	ExpiresAt int64 // microseconds since epoch
	Cancelled bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the subscription is live at the given instant.
// The boundary is strict: expiry equal to now is already inactive.
func (s Subscription) Active(nowMicros int64) bool {
	return s.ExpiresAt > nowMicros
}

// OfflineSubscription is an email-keyed subscription held by a principal
// without a registered account. Its role set lives on the subscription
// record itself.
type OfflineSubscription struct {
	ID        string
	Email     string
	Plan      string
	ExpiresAt int64 // microseconds since epoch
	Cancelled bool
	Roles     []Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the offline subscription is live at the given instant.
func (s OfflineSubscription) Active(nowMicros int64) bool {
	return s.ExpiresAt > nowMicros
}

// UnixMicros converts a wall-clock instant to the epoch-microsecond
// representation used for subscription and token expiries.
func UnixMicros(t time.Time) int64 {
	return t.UnixMicro()
}
