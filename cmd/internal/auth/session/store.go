package session

import (
	"context"
	"time"
)

// Store persists renewal records. Every method that changes status must be a
// conditional update on status = active so that concurrent callers serialize
// in the database.
type Store interface {
	// Insert stores a new active record.
	Insert(ctx context.Context, rec Record) error

	// GetByHash loads a record by secret hash. Returns ErrNotFound.
	GetByHash(ctx context.Context, secretHash string) (Record, error)

	// GetByID loads a record by ID. Returns ErrNotFound.
	GetByID(ctx context.Context, id string) (Record, error)

	// Rotate retires oldID with ReasonRotation and inserts next in one
	// transaction. Returns ErrNotActive if oldID was no longer active.
	Rotate(ctx context.Context, now time.Time, oldID string, next Record) error

	// Transition moves an active record to status with reason. It reports
	// false when the record exists but is no longer active, and ErrNotFound
	// when it does not exist.
	Transition(ctx context.Context, now time.Time, id string, status Status, reason Reason) (bool, error)

	// RevokeAll revokes every active record of identityID and returns the count.
	RevokeAll(ctx context.Context, now time.Time, identityID string, reason Reason) (int64, error)

	// ListByIdentity returns all records of identityID, newest first.
	ListByIdentity(ctx context.Context, identityID string) ([]Record, error)

	// Sweep deletes records that expired before cutoff and returns the count.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}
