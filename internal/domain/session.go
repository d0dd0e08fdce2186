package domain

import "time"

// Session describes the client session a set of claims is issued against.
// The session store itself lives outside this service; only this
// descriptor is projected into signed claims.
type Session struct {
	ID         string
	AccountID  string
	APIVersion string
	DeviceInfo string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
