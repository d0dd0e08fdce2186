package domain

// Feature is a read-only catalog entry describing a product capability
// unlocked by the permission it is keyed on.
type Feature struct {
	PermissionName string
	Name           string
	Description    string
	URL            string
}

// ResolvedFeature is a catalog entry projected for one principal at
// resolution time. ExpiresAt and GrantingRole are injected per resolution
// and never persisted back to the catalog.
type ResolvedFeature struct {
	Feature
	ExpiresAt    int64 // microseconds since epoch
	GrantingRole string
}
