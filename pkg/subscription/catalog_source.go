package subscription

import (
	"context"
	"maps"
	"sync"
)

// CatalogSource defines how plans are loaded into the catalog.
type CatalogSource interface {
	Load(ctx context.Context) (map[Tier]Plan, error)
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[Tier]Plan
}

// NewInMemSource returns an in-memory CatalogSource with a copy of the given
// plans. Panics if no plans are provided so the catalog always has at least
// one valid entry.
func NewInMemSource(plans ...Plan) CatalogSource {
	if len(plans) < 1 {
		panic("subscription: at least one plan is required")
	}
	plansCopy := make(map[Tier]Plan, len(plans))
	for _, plan := range plans {
		plansCopy[plan.ID] = plan
	}
	return &inMemSource{plans: plansCopy}
}

// Load returns a copy of all plans so callers cannot mutate source state.
func (s *inMemSource) Load(ctx context.Context) (map[Tier]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.plans), nil
}

// DefaultPlans returns the built-in pricing table: four tiers with fixed
// credit, model and parallelism quotas.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:                    TierStarter,
			Name:                  "Starter",
			MonthlyPrice:          Money{Amount: 1900, Currency: "USD"},
			YearlyPrice:           Money{Amount: 17100, Currency: "USD"},
			PhotoCredits:          50,
			MaxModels:             1,
			MaxParallelGeneration: 1,
			Capabilities: Capabilities{
				PhotoQuality: GradeLow,
				Resemblance:  GradeLow,
			},
		},
		{
			ID:                    TierPro,
			Name:                  "Pro",
			MonthlyPrice:          Money{Amount: 4900, Currency: "USD"},
			YearlyPrice:           Money{Amount: 44100, Currency: "USD"},
			PhotoCredits:          1000,
			MaxModels:             3,
			MaxParallelGeneration: 4,
			Capabilities: Capabilities{
				PhotoQuality:  GradeMedium,
				Resemblance:   GradePassable,
				CustomPrompts: true,
			},
		},
		{
			ID:                    TierPremium,
			Name:                  "Premium",
			MonthlyPrice:          Money{Amount: 9900, Currency: "USD"},
			YearlyPrice:           Money{Amount: 89100, Currency: "USD"},
			PhotoCredits:          3000,
			MaxModels:             10,
			MaxParallelGeneration: 8,
			Popular:               true,
			Capabilities: Capabilities{
				PhotoQuality:  GradeHigh,
				Resemblance:   GradeHigh,
				CustomPrompts: true,
				ZoomOut:       true,
			},
		},
		{
			ID:                    TierUltra,
			Name:                  "Ultra",
			MonthlyPrice:          Money{Amount: 19900, Currency: "USD"},
			YearlyPrice:           Money{Amount: 179100, Currency: "USD"},
			PhotoCredits:          10000,
			MaxModels:             50,
			MaxParallelGeneration: 16,
			Capabilities: Capabilities{
				PhotoQuality:     GradeUltra,
				Resemblance:      GradeUltra,
				CustomPrompts:    true,
				ZoomOut:          true,
				UnlimitedStorage: true,
			},
		},
	}
}
