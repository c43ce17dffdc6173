package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dandantas/linkpatrol/internal/model"
)

// ErrCheckNotFound is returned when a run record does not exist
var ErrCheckNotFound = errors.New("check not found")

// CheckRepository handles scheduled check history
type CheckRepository struct {
	collection *mongo.Collection
}

// NewCheckRepository creates a new check repository
func NewCheckRepository(db *MongoDB) *CheckRepository {
	return &CheckRepository{
		collection: db.GetCollection(CollectionScheduledChecks),
	}
}

// Append inserts a finished run record
func (r *CheckRepository) Append(ctx context.Context, record *model.ScheduledCheckRecord) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.collection.InsertOne(ctxTimeout, record); err != nil {
		return fmt.Errorf("failed to append check record: %w", err)
	}

	return nil
}

// GetByID retrieves a run record
func (r *CheckRepository) GetByID(ctx context.Context, id string) (*model.ScheduledCheckRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record model.ScheduledCheckRecord
	err := r.collection.FindOne(ctxTimeout, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCheckNotFound
		}
		return nil, fmt.Errorf("failed to get check: %w", err)
	}

	return &record, nil
}

// List retrieves run records, newest first. status may be empty.
func (r *CheckRepository) List(ctx context.Context, status string, page, limit int) ([]model.ScheduledCheckRecord, int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := r.collection.CountDocuments(ctxTimeout, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count checks: %w", err)
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetProjection(bson.M{"result.dead_links": 0})

	cursor, err := r.collection.Find(ctxTimeout, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list checks: %w", err)
	}
	defer cursor.Close(ctxTimeout)

	records := make([]model.ScheduledCheckRecord, 0)
	if err := cursor.All(ctxTimeout, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode checks: %w", err)
	}

	return records, total, nil
}
