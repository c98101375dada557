package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProvider stores one document per session in the cart_sessions collection.
type MongoProvider struct {
	collection *mongo.Collection
}

func NewMongoProvider(db *mongo.Database) *MongoProvider {
	return &MongoProvider{
		collection: db.Collection("cart_sessions"),
	}
}

func (p *MongoProvider) Slot(sessionID string) CartSlot {
	return &mongoSlot{collection: p.collection, sessionID: sessionID}
}

func (p *MongoProvider) CreateIndexes(ctx context.Context, ttl time.Duration) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		},
	}

	_, err := p.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

type mongoSlot struct {
	collection *mongo.Collection
	sessionID  string
}

func (m *mongoSlot) Read(ctx context.Context) ([]domain.LineItem, error) {
	var snapshot domain.Snapshot

	err := m.collection.FindOne(ctx, bson.M{"session_id": m.sessionID}).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return snapshot.Items, nil
}

func (m *mongoSlot) Write(ctx context.Context, items []domain.LineItem) error {
	if items == nil {
		items = []domain.LineItem{}
	}
	snapshot := domain.Snapshot{
		SessionID: m.sessionID,
		Items:     items,
		UpdatedAt: time.Now(),
	}

	filter := bson.M{"session_id": m.sessionID}
	opts := options.Replace().SetUpsert(true)

	if _, err := m.collection.ReplaceOne(ctx, filter, snapshot, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}
