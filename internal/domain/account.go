package domain

import "time"

// Account is a registered principal identified by a stable id and email.
// Its role set is owned by the account; the roles themselves are shared
// references into the central role catalog.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether a role of the given name is attached.
func (a *Account) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
