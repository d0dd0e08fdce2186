package entitlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/events"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

// RoleReconciler attaches and detaches plan-mapped roles on a principal's
// role set. Grants and revokes are idempotent; a missing plan mapping or
// role record is reported as "no change", never an error. Transitions
// happen only on explicit billing-driven calls, there is no background
// sweep revoking roles for expired subscriptions.
type RoleReconciler struct {
	plans      *PlanRoleMap
	roles      repository.RoleRepository
	accounts   repository.AccountRepository
	offline    repository.OfflineSubscriptionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ReconcilerDependencies encapsulates collaborator requirements.
type ReconcilerDependencies struct {
	Plans       *PlanRoleMap
	RoleRepo    repository.RoleRepository
	AccountRepo repository.AccountRepository
	OfflineRepo repository.OfflineSubscriptionRepository
	Dispatcher  events.Dispatcher
}

// NewRoleReconciler builds the reconciler.
func NewRoleReconciler(deps ReconcilerDependencies, logger *zap.Logger) *RoleReconciler {
	return &RoleReconciler{
		plans:      deps.Plans,
		roles:      deps.RoleRepo,
		accounts:   deps.AccountRepo,
		offline:    deps.OfflineRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// GrantForPlan attaches the role mapped to plan onto the account. Returns
// whether the role set changed. Repeated grants of a held role are a no-op.
func (r *RoleReconciler) GrantForPlan(ctx context.Context, account *domain.Account, plan string) (bool, error) {
	role, ok, err := r.resolveRole(ctx, plan)
	if err != nil || !ok {
		return false, err
	}

	held := make(map[string]struct{}, len(account.Roles))
	for _, existing := range account.Roles {
		held[existing.Name] = struct{}{}
	}
	if _, exists := held[role.Name]; exists {
		return false, nil
	}

	account.Roles = append(account.Roles, *role)
	if err := r.accounts.Save(ctx, account); err != nil {
		return false, err
	}

	r.publishRolesChanged(ctx, account.Email, &account.ID, role.Name, plan, events.RoleGranted)
	return true, nil
}

// GrantForOfflineSubscription attaches the plan-mapped role to an
// email-keyed subscription record. The record must still be active at the
// supplied instant; an expired one means "no active subscription" and the
// grant is skipped.
func (r *RoleReconciler) GrantForOfflineSubscription(ctx context.Context, sub *domain.OfflineSubscription, nowMicros int64) (bool, error) {
	if !sub.Active(nowMicros) {
		r.logger.Warn("offline subscription not active, skipping grant",
			zap.String("email", sub.Email),
			zap.String("plan", sub.Plan))
		return false, nil
	}

	role, ok, err := r.resolveRole(ctx, sub.Plan)
	if err != nil || !ok {
		return false, err
	}

	for _, existing := range sub.Roles {
		if existing.Name == role.Name {
			return false, nil
		}
	}

	sub.Roles = append(sub.Roles, *role)
	if err := r.offline.Save(ctx, sub); err != nil {
		return false, err
	}

	r.publishRolesChanged(ctx, sub.Email, nil, role.Name, sub.Plan, events.RoleGranted)
	return true, nil
}

// RevokeForPlan removes the role mapped to plan from the account's role
// set. Only the role name is needed here, so no role record is loaded.
// Revoking a role not held is a no-op.
func (r *RoleReconciler) RevokeForPlan(ctx context.Context, account *domain.Account, plan string) (bool, error) {
	roleName, ok := r.plans.RoleForPlan(plan)
	if !ok {
		r.logger.Warn("no role mapped to plan, skipping revoke", zap.String("plan", plan))
		return false, nil
	}

	kept := account.Roles[:0:0]
	for _, role := range account.Roles {
		if role.Name != roleName {
			kept = append(kept, role)
		}
	}
	if len(kept) == len(account.Roles) {
		return false, nil
	}

	account.Roles = kept
	if err := r.accounts.Save(ctx, account); err != nil {
		return false, err
	}

	r.publishRolesChanged(ctx, account.Email, &account.ID, roleName, plan, events.RoleRevoked)
	return true, nil
}

// resolveRole maps the plan to a role record. Both a mapping miss and a
// missing catalog row collapse to (nil, false, nil).
func (r *RoleReconciler) resolveRole(ctx context.Context, plan string) (*domain.Role, bool, error) {
	roleName, ok := r.plans.RoleForPlan(plan)
	if !ok {
		r.logger.Warn("no role mapped to plan, skipping grant", zap.String("plan", plan))
		return nil, false, nil
	}

	role, err := r.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("mapped role missing from catalog",
				zap.String("plan", plan),
				zap.String("role", roleName))
			return nil, false, nil
		}
		return nil, false, err
	}
	return role, true, nil
}

func (r *RoleReconciler) publishRolesChanged(ctx context.Context, email string, accountID *string, roleName, plan string, action events.RoleChangeAction) {
	identity := email
	if accountID != nil {
		identity = *accountID
	}
	_ = r.dispatcher.Publish(ctx, events.NewEvent(events.EventRolesChanged, identity, events.RolesChangedPayload{
		AccountID: accountID,
		Email:     email,
		Role:      roleName,
		Plan:      plan,
		Action:    action,
	}))
}
