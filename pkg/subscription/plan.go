package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Plan describes a subscription tier and its quotas. Plans are immutable
// catalog entries loaded once at startup; the ID doubles as the tier key.
type Plan struct {
	ID                    Tier         `yaml:"id"`
	Name                  string       `yaml:"name"`
	MonthlyPrice          Money        `yaml:"monthly_price"`
	YearlyPrice           Money        `yaml:"yearly_price"`
	PhotoCredits          int          `yaml:"photo_credits"`
	MaxModels             int          `yaml:"max_models"`
	MaxParallelGeneration int          `yaml:"max_parallel_generation"`
	Capabilities          Capabilities `yaml:"capabilities"`
	Popular               bool         `yaml:"popular"`
}

// Price returns the plan price for the given billing cycle.
func (p Plan) Price(cycle BillingCycle) Money {
	if cycle == CycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// Limits returns the quota bundle for the plan.
func (p Plan) Limits() Limits {
	return Limits{
		PhotoCredits:          p.PhotoCredits,
		MaxModels:             p.MaxModels,
		MaxParallelGeneration: p.MaxParallelGeneration,
		Capabilities:          p.Capabilities,
	}
}

// Catalog is an immutable tier -> plan lookup. It is built once from a
// CatalogSource and is safe for unsynchronized concurrent reads.
type Catalog struct {
	plans map[Tier]Plan
}

// NewCatalog loads plans from the source and validates them.
// Panics if src is nil to fail fast during initialization.
func NewCatalog(ctx context.Context, src CatalogSource) (*Catalog, error) {
	if src == nil {
		panic("subscription: CatalogSource is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	return &Catalog{plans: plans}, nil
}

// Plan returns the full catalog entry for a tier.
func (c *Catalog) Plan(tier Tier) (Plan, error) {
	plan, ok := c.plans[tier]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return plan, nil
}

// LimitsFor returns the quota bundle for a tier.
// Fails with ErrUnknownTier for tiers outside the catalog.
func (c *Catalog) LimitsFor(tier Tier) (Limits, error) {
	plan, err := c.Plan(tier)
	if err != nil {
		return Limits{}, err
	}
	return plan.Limits(), nil
}

// Plans returns all catalog entries in canonical tier order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, tier := range Tiers {
		if plan, ok := c.plans[tier]; ok {
			out = append(out, plan)
		}
	}
	return out
}

// validatePlans ensures plan configurations are internally consistent.
// Catches configuration errors early to prevent runtime issues.
func validatePlans(plans map[Tier]Plan) error {
	if len(plans) == 0 {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("catalog has no plans"))
	}

	for tier, plan := range plans {
		if plan.ID != tier {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", tier, plan.ID))
		}
		if !slices.Contains(Tiers, tier) {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s is not a known tier", tier))
		}
		if plan.PhotoCredits <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has non-positive photo credits: %d", tier, plan.PhotoCredits))
		}
		if plan.MaxModels <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has non-positive model limit: %d", tier, plan.MaxModels))
		}
		if plan.MaxParallelGeneration <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has non-positive parallel generation limit: %d", tier, plan.MaxParallelGeneration))
		}
		if plan.MonthlyPrice.Amount < 0 || plan.YearlyPrice.Amount < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has a negative price", tier))
		}
	}
	return nil
}
