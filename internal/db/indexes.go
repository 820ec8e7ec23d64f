package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the services rely on. Safe to call on
// every startup; Mongo treats existing identical indexes as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// Only one active (pending/confirmed) visit request may exist per
	// (listing, student) pair. The partial unique index closes the
	// check-then-create race between concurrent clients.
	_, err := db.Collection("visits").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "student_id", Value: 1}},
		Options: options.Index().
			SetName("active_visit_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": bson.M{"$in": bson.A{"pending", "confirmed"}}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create active visit index: %w", err)
	}

	_, err = db.Collection("visits").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "landlord_id", Value: 1}}},
		{Keys: bson.D{{Key: "student_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create visit lookup indexes: %w", err)
	}

	_, err = db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"deleted": false}),
	})
	if err != nil {
		return fmt.Errorf("failed to create user email index: %w", err)
	}

	_, err = db.Collection("listings").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create listing owner index: %w", err)
	}

	// Membership queries ("my conversations") are array-contains lookups on
	// participants; the recency sort rides on updated_at.
	_, err = db.Collection("conversations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation participants index: %w", err)
	}

	_, err = db.Collection("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message ordering index: %w", err)
	}

	_, err = db.Collection("favorites").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "listing_id", Value: 1}},
		Options: options.Index().SetName("favorite_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create favorite index: %w", err)
	}

	return nil
}
