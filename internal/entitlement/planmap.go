package entitlement

// PlanRoleMap is the fixed bidirectional lookup between subscription plan
// tiers and role names. It is built once at startup and safe for
// unsynchronized concurrent reads. A lookup miss is not an error: callers
// treat it as "no entitlement change applies".
type PlanRoleMap struct {
	planToRole map[string]string
	roleToPlan map[string]string
}

// NewPlanRoleMap builds the map from a plan→role table.
func NewPlanRoleMap(table map[string]string) *PlanRoleMap {
	m := &PlanRoleMap{
		planToRole: make(map[string]string, len(table)),
		roleToPlan: make(map[string]string, len(table)),
	}
	for plan, role := range table {
		m.planToRole[plan] = role
		m.roleToPlan[role] = plan
	}
	return m
}

// DefaultPlanRoleMap returns the built-in three-tier table.
func DefaultPlanRoleMap() *PlanRoleMap {
	return NewPlanRoleMap(map[string]string{
		"core": "core-user",
		"plus": "plus-user",
		"pro":  "pro-user",
	})
}

// RoleForPlan resolves the role name granted by a plan.
func (m *PlanRoleMap) RoleForPlan(plan string) (string, bool) {
	role, ok := m.planToRole[plan]
	return role, ok
}

// PlanForRole resolves the plan that grants a role.
func (m *PlanRoleMap) PlanForRole(role string) (string, bool) {
	plan, ok := m.roleToPlan[role]
	return plan, ok
}
