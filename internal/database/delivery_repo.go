package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dandantas/linkpatrol/internal/model"
)

// DeliveryRepository handles notification delivery logs
type DeliveryRepository struct {
	collection *mongo.Collection
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *MongoDB) *DeliveryRepository {
	return &DeliveryRepository{
		collection: db.GetCollection(CollectionNotificationLogs),
	}
}

// Record inserts a delivery log
func (r *DeliveryRepository) Record(ctx context.Context, log *model.DeliveryLog) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctxTimeout, log); err != nil {
		return fmt.Errorf("failed to record delivery log: %w", err)
	}

	return nil
}

// ListByCheckID retrieves the delivery logs of one run
func (r *DeliveryRepository) ListByCheckID(ctx context.Context, checkID string) ([]model.DeliveryLog, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"check_id": checkID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	logs := make([]model.DeliveryLog, 0)
	if err := cursor.All(ctxTimeout, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode delivery logs: %w", err)
	}

	return logs, nil
}
