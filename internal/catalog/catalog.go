package catalog

import "github.com/spec-kit/entitlement-service/internal/domain"

// ExtensionURLPlaceholder marks catalog URLs that must be completed with
// the configured extension base URL and a per-principal extension key.
const ExtensionURLPlaceholder = "{EXTENSION_URL}"

// Catalog is the immutable feature table keyed by permission name. It is
// loaded once at startup and safe for unsynchronized concurrent reads.
type Catalog struct {
	features map[string]domain.Feature
}

// New builds a catalog from the given entries. Later entries for the same
// permission name win.
func New(features []domain.Feature) *Catalog {
	byPermission := make(map[string]domain.Feature, len(features))
	for _, f := range features {
		byPermission[f.PermissionName] = f
	}
	return &Catalog{features: byPermission}
}

// ByPermission returns the catalog entry joined to a permission name.
// A miss means the permission unlocks no catalog feature.
func (c *Catalog) ByPermission(name string) (domain.Feature, bool) {
	f, ok := c.features[name]
	return f, ok
}

// Default returns the built-in product catalog.
func Default() *Catalog {
	return New([]domain.Feature{
		{PermissionName: "cloud-link", Name: "Cloud Link", Description: "Sync settings across devices"},
		{PermissionName: "theme-pack", Name: "Theme Pack", Description: "Premium color themes"},
		{PermissionName: "priority-support", Name: "Priority Support", Description: "Front of the support queue"},
		{PermissionName: "extension-gallery", Name: "Extension Gallery", Description: "Private extension listing", URL: ExtensionURLPlaceholder},
		{PermissionName: "usage-dashboard", Name: "Usage Dashboard", Description: "Detailed usage analytics"},
	})
}
