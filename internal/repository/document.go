package repository

import (
	"context"
	"time"

	"digilocker/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row
	// (may include values set by the database).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByOwner returns all documents owned by ownerID, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// SetShared updates the shared flag. The update only applies when the
	// row's updated_at still equals prevUpdatedAt; otherwise
	// ErrUpdateConflict is returned. On success the new updated_at is
	// returned.
	SetShared(ctx context.Context, id string, shared bool, prevUpdatedAt time.Time) (time.Time, error)

	// SetVerified updates the verified flag with the same compare-and-swap
	// contract as SetShared.
	SetVerified(ctx context.Context, id string, verified bool, prevUpdatedAt time.Time) (time.Time, error)

	// Delete removes a document by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
