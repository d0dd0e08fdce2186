package entitlement

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/entitlement-service/internal/catalog"
	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/repository"
)

// FeatureResolver derives the full set of entitled features for a
// principal straight from its subscriptions. It deliberately ignores the
// persisted role set so the result is correct even when the reconciler
// has not run yet; the cost is recomputation per call, which is bounded
// by the principal's own data.
type FeatureResolver struct {
	plans         *PlanRoleMap
	roles         repository.RoleRepository
	subscriptions repository.SubscriptionRepository
	catalog       *catalog.Catalog
	baseURL       string
	logger        *zap.Logger
}

// NewFeatureResolver builds the resolver. An empty baseURL disables URL
// templating: catalog entries carrying the placeholder are then omitted.
func NewFeatureResolver(
	plans *PlanRoleMap,
	roles repository.RoleRepository,
	subscriptions repository.SubscriptionRepository,
	features *catalog.Catalog,
	baseURL string,
	logger *zap.Logger,
) *FeatureResolver {
	return &FeatureResolver{
		plans:         plans,
		roles:         roles,
		subscriptions: subscriptions,
		catalog:       features,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// ResolveForAccount loads the account's subscriptions and resolves them.
func (r *FeatureResolver) ResolveForAccount(ctx context.Context, accountID, extensionKey string) ([]domain.ResolvedFeature, error) {
	subs, err := r.subscriptions.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, subs, extensionKey)
}

// Resolve walks subscriptions → roles → permissions → catalog and merges
// duplicates by permission name, keeping the greater expiry. The returned
// slice is insertion-ordered so assertions stay deterministic; the order
// carries no meaning.
func (r *FeatureResolver) Resolve(ctx context.Context, subs []domain.Subscription, extensionKey string) ([]domain.ResolvedFeature, error) {
	resolved := make([]domain.ResolvedFeature, 0)
	index := make(map[string]int)

	for _, plan := range distinctPlans(subs) {
		roleName, ok := r.plans.RoleForPlan(plan)
		if !ok {
			r.logger.Warn("no role mapped to plan, skipping", zap.String("plan", plan))
			continue
		}

		role, err := r.roles.GetByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.Warn("mapped role missing from catalog",
					zap.String("plan", plan),
					zap.String("role", roleName))
				continue
			}
			return nil, err
		}

		longest := longestLasting(subs, plan)

		for _, perm := range role.Permissions {
			feature, ok := r.catalog.ByPermission(perm.Name)
			if !ok {
				continue
			}

			if strings.Contains(feature.URL, catalog.ExtensionURLPlaceholder) {
				if r.baseURL == "" || extensionKey == "" {
					continue
				}
				feature.URL = strings.ReplaceAll(feature.URL,
					catalog.ExtensionURLPlaceholder, r.baseURL+"/"+extensionKey)
			}

			if i, exists := index[perm.Name]; exists {
				// Overlapping grants never shrink an expiry already recorded.
				if longest.ExpiresAt > resolved[i].ExpiresAt {
					resolved[i].ExpiresAt = longest.ExpiresAt
				}
				continue
			}

			resolved = append(resolved, domain.ResolvedFeature{
				Feature:      feature,
				ExpiresAt:    longest.ExpiresAt,
				GrantingRole: role.Name,
			})
			index[perm.Name] = len(resolved) - 1
		}
	}

	return resolved, nil
}

// distinctPlans lists plan names in first-occurrence order, collapsing
// duplicates of the same plan.
func distinctPlans(subs []domain.Subscription) []string {
	seen := make(map[string]struct{}, len(subs))
	plans := make([]string, 0, len(subs))
	for _, sub := range subs {
		if _, ok := seen[sub.Plan]; ok {
			continue
		}
		seen[sub.Plan] = struct{}{}
		plans = append(plans, sub.Plan)
	}
	return plans
}

// longestLasting picks the subscription for plan with the latest expiry.
// Ties keep the earlier entry (stable sort, no secondary key).
func longestLasting(subs []domain.Subscription, plan string) domain.Subscription {
	matching := make([]domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Plan == plan {
			matching = append(matching, sub)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].ExpiresAt > matching[j].ExpiresAt
	})
	return matching[0]
}
