package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dandantas/linkpatrol/internal/model"
)

// ErrLockHeld is returned when another invocation holds the lock
var ErrLockHeld = errors.New("lock is held by another invocation")

// LockRepository handles the advisory lock that serializes scheduler invocations
type LockRepository struct {
	collection *mongo.Collection
}

// NewLockRepository creates a new lock repository
func NewLockRepository(db *MongoDB) *LockRepository {
	return &LockRepository{
		collection: db.GetCollection(CollectionTriggerLocks),
	}
}

// AcquireLock attempts to acquire the named lock for owner.
// Returns true if the lock was acquired, false if another owner holds an unexpired lock.
// Uses FindOneAndUpdate with upsert for atomic acquisition; the unique index on name
// turns a concurrent upsert into a duplicate key error, which means "not acquired".
func (r *LockRepository) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	// Either no lock exists for this name, or the existing lock has expired
	filter := bson.M{
		"name": name,
		"$or": []bson.M{
			{"expires_at": bson.M{"$lt": now}},
			{"expires_at": bson.M{"$exists": false}},
		},
	}

	update := bson.M{
		"$set": bson.M{
			"name":       name,
			"locked_by":  owner,
			"locked_at":  now,
			"expires_at": expiresAt,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result model.TriggerLock
	err := r.collection.FindOneAndUpdate(ctxTimeout, filter, update, opts).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if result.LockedBy != owner {
		return false, nil
	}

	slog.Debug("Acquired lock",
		"lock", name,
		"owner", owner,
		"expires_at", expiresAt,
	)

	return true, nil
}

// ReleaseLock releases the named lock, but only if owner holds it
func (r *LockRepository) ReleaseLock(ctx context.Context, name, owner string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctxTimeout, bson.M{
		"name":      name,
		"locked_by": owner,
	})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	if result.DeletedCount > 0 {
		slog.Debug("Released lock", "lock", name, "owner", owner)
	}

	return nil
}

// WithLock runs fn while holding the named lock. It returns ErrLockHeld without
// calling fn when another owner holds the lock.
func (r *LockRepository) WithLock(ctx context.Context, name, owner string, ttl time.Duration, fn func(context.Context) error) error {
	acquired, err := r.AcquireLock(ctx, name, owner, ttl)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}

	defer func() {
		// release even when the caller's context is already cancelled
		if err := r.ReleaseLock(context.WithoutCancel(ctx), name, owner); err != nil {
			slog.Error("Failed to release lock", "lock", name, "owner", owner, "error", err)
		}
	}()

	return fn(ctx)
}
