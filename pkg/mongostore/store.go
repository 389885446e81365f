package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

// CollectionName is the default collection holding subscription documents.
const CollectionName = "user_subscriptions"

// record is the BSON shape of a subscription document. Kept separate from
// the domain struct so storage tags never leak into the core package.
type record struct {
	UserID             string    `bson:"user_id"`
	PlanID             string    `bson:"plan_id"`
	Status             string    `bson:"status"`
	CurrentPeriodStart time.Time `bson:"current_period_start"`
	CurrentPeriodEnd   time.Time `bson:"current_period_end"`
	BillingCycle       string    `bson:"billing_cycle"`
	CancelAtPeriodEnd  bool      `bson:"cancel_at_period_end"`
	AvailableCredits   int       `bson:"available_credits"`
	ModelsCreated      int       `bson:"models_created"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func toRecord(sub *subscription.UserSubscription) record {
	return record{
		UserID:             sub.UserID,
		PlanID:             string(sub.PlanID),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		BillingCycle:       string(sub.BillingCycle),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		AvailableCredits:   sub.AvailableCredits,
		ModelsCreated:      sub.ModelsCreated,
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
}

func (r record) toDomain() *subscription.UserSubscription {
	return &subscription.UserSubscription{
		UserID:             r.UserID,
		PlanID:             subscription.Tier(r.PlanID),
		Status:             subscription.Status(r.Status),
		CurrentPeriodStart: r.CurrentPeriodStart,
		CurrentPeriodEnd:   r.CurrentPeriodEnd,
		BillingCycle:       subscription.BillingCycle(r.BillingCycle),
		CancelAtPeriodEnd:  r.CancelAtPeriodEnd,
		AvailableCredits:   r.AvailableCredits,
		ModelsCreated:      r.ModelsCreated,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// Store implements subscription.Store on MongoDB. One document per user,
// written with replace-upsert so Save never needs to know whether the
// document already exists.
type Store struct {
	coll *mongo.Collection
}

// New creates a MongoDB-backed subscription store on the default collection.
// Panics if db is nil.
func New(db *mongo.Database) *Store {
	if db == nil {
		panic("mongostore: mongo.Database is required")
	}
	return &Store{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique user index and the renewal sweep index.
// Safe to call on every startup; existing indexes are left alone.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "current_period_end", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("ensure subscription indexes: %w", err)
	}
	return nil
}

// Get retrieves the subscription for a user.
func (s *Store) Get(ctx context.Context, userID string) (*subscription.UserSubscription, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return rec.toDomain(), nil
}

// Save upserts the subscription document keyed by user ID.
func (s *Store) Save(ctx context.Context, sub *subscription.UserSubscription) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"user_id": sub.UserID},
		toRecord(sub),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// ListDue returns subscriptions whose billing period ended at or before the
// given time and that still need renewal handling.
func (s *Store) ListDue(ctx context.Context, before time.Time) ([]*subscription.UserSubscription, error) {
	filter := bson.M{
		"status": bson.M{"$in": []string{
			string(subscription.StatusActive),
			string(subscription.StatusCancelling),
		}},
		"current_period_end": bson.M{"$lte": before},
	}

	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var due []*subscription.UserSubscription
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode subscription document: %w", err)
		}
		due = append(due, rec.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription documents: %w", err)
	}
	return due, nil
}
