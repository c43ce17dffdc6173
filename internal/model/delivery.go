package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery final statuses
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// DeliveryAttempt represents a single transport attempt
type DeliveryAttempt struct {
	AttemptNumber int       `json:"attempt_number" bson:"attempt_number"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
	StatusCode    int       `json:"status_code,omitempty" bson:"status_code,omitempty"`
	ResponseBody  string    `json:"response_body,omitempty" bson:"response_body,omitempty"`
	Error         string    `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms" bson:"duration_ms"`
}

// DeliveryLog records how a notification went out through one channel
type DeliveryLog struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CheckID     string             `json:"check_id" bson:"check_id"`
	Channel     string             `json:"channel" bson:"channel"`
	Target      string             `json:"target" bson:"target"`
	DeadLinks   int                `json:"dead_links" bson:"dead_links"`
	Attempts    []DeliveryAttempt  `json:"attempts" bson:"attempts"`
	FinalStatus string             `json:"final_status" bson:"final_status"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
