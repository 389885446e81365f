// Package subscription implements the subscription and credit ledger at the
// center of the product: four fixed plan tiers, one mutable record per user,
// and the business rules that gate model training and image generation.
//
// The package is organized around four collaborators:
//
//   - Catalog: immutable tier -> quota lookup, loaded once at startup from a
//     CatalogSource (in-memory defaults or a YAML file).
//   - Store: pluggable get/put persistence of one UserSubscription per user
//     (in-memory here; PostgreSQL and MongoDB backends live in pkg/pgstore
//     and pkg/mongostore).
//   - Service: every business rule, expressed as load -> validate -> compute
//     -> persist cycles serialized per user through a Locker.
//   - SessionAdapter: binds the Service to one signed-in identity and caches
//     the latest record for UI re-reads.
//
// # Concurrency
//
// All mutations for a given user are serialized through a Locker so two
// racing credit spends can never both observe the same balance. The default
// locker is an in-process keyed mutex; multi-instance deployments plug in a
// shared implementation (pkg/redislock). Different users never contend.
//
// # Payments
//
// Subscribe and ChangePlan only commit after a PaymentConfirmation is
// verified by the BillingProvider. Asynchronous captures arrive through
// HandleWebhook instead, where the provider's signature takes the place of
// the confirmation lookup.
//
// # Renewal
//
// A Renewer runs RenewDue on a cron schedule: expired periods roll forward,
// credits reset to the plan allotment, the model counter resets, and
// subscriptions flagged cancel-at-period-end become canceled.
//
// Basic usage:
//
//	catalog, err := subscription.NewCatalog(ctx, subscription.NewInMemSource(subscription.DefaultPlans()...))
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc := subscription.NewService(catalog, subscription.NewMemoryStore(), billing)
//
//	sub, err := svc.Subscribe(ctx, userID, subscription.TierPro, subscription.CycleMonthly, confirmation)
package subscription
