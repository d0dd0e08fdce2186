package domain

// Permission is an atomic named capability. Its name is the join key into
// the feature catalog.
type Permission struct {
	ID   string
	Name string
}

// Role bundles permissions under a unique name. Roles form a fixed,
// centrally managed catalog; this service attaches and detaches existing
// roles but never creates ad-hoc ones.
type Role struct {
	ID          string
	Name        string
	Permissions []Permission
}
