package subscription

// Tier identifies one of the fixed subscription levels.
type Tier string

const (
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
	TierUltra   Tier = "ultra"
)

// Tiers lists every valid tier in catalog order.
var Tiers = []Tier{TierStarter, TierPro, TierPremium, TierUltra}

// BillingCycle determines the billing period length and which price applies.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Valid reports whether the cycle is one of the supported values.
func (c BillingCycle) Valid() bool {
	return c == CycleMonthly || c == CycleYearly
}

// Status represents the current state of a user subscription.
type Status string

const (
	StatusActive     Status = "active"
	StatusCancelling Status = "cancelling" // cancellation requested, access until period end
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
)

// Grade ranks the output quality levels a plan unlocks.
type Grade string

const (
	GradeLow      Grade = "low"
	GradePassable Grade = "passable"
	GradeMedium   Grade = "medium"
	GradeHigh     Grade = "high"
	GradeUltra    Grade = "ultra"
)

// Capabilities describes what the generation pipeline allows for a plan.
type Capabilities struct {
	PhotoQuality     Grade `yaml:"photo_quality"`
	Resemblance      Grade `yaml:"resemblance"`
	CustomPrompts    bool  `yaml:"custom_prompts"`
	ZoomOut          bool  `yaml:"zoom_out"`
	UnlimitedStorage bool  `yaml:"unlimited_storage"`
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $19.00 USD is Amount: 1900, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// Limits bundles the per-plan quotas returned by the catalog.
type Limits struct {
	PhotoCredits          int
	MaxModels             int
	MaxParallelGeneration int
	Capabilities          Capabilities
}
