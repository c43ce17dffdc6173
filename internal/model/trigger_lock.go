package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerLock is the advisory lock that serializes overlapping scheduler invocations
type TriggerLock struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	LockedBy  string             `json:"locked_by" bson:"locked_by"`   // invocation identifier
	LockedAt  time.Time          `json:"locked_at" bson:"locked_at"`   // Lock acquisition timestamp
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"` // Lock expiration (TTL)
}
