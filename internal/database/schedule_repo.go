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

// ScheduleDocumentID is the _id of the single schedule document
const ScheduleDocumentID = "link_check"

type scheduleDocument struct {
	ID                     string `bson:"_id"`
	model.ScheduleSettings `bson:",inline"`
	UpdatedAt              time.Time `bson:"updated_at"`
}

// ScheduleRepository stores the run timestamps of the link check schedule.
// Cadence always comes from configuration; only LastRunAt and NextRunAt are read back.
type ScheduleRepository struct {
	collection *mongo.Collection
	defaults   model.ScheduleSettings
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *MongoDB, defaults model.ScheduleSettings) *ScheduleRepository {
	return &ScheduleRepository{
		collection: db.GetCollection(CollectionScheduleSettings),
		defaults:   defaults,
	}
}

// Load returns the configured cadence merged with the stored run timestamps
func (r *ScheduleRepository) Load(ctx context.Context) (model.ScheduleSettings, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	settings := r.defaults
	settings.LastRunAt = nil
	settings.NextRunAt = nil

	var doc scheduleDocument
	err := r.collection.FindOne(ctxTimeout, bson.M{"_id": ScheduleDocumentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return settings, nil
		}
		return model.ScheduleSettings{}, fmt.Errorf("failed to load schedule settings: %w", err)
	}

	settings.LastRunAt = doc.LastRunAt
	settings.NextRunAt = doc.NextRunAt
	return settings, nil
}

// Save stores a full snapshot of settings
func (r *ScheduleRepository) Save(ctx context.Context, settings model.ScheduleSettings) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := scheduleDocument{
		ID:               ScheduleDocumentID,
		ScheduleSettings: settings,
		UpdatedAt:        time.Now().UTC(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctxTimeout, bson.M{"_id": ScheduleDocumentID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save schedule settings: %w", err)
	}

	return nil
}
