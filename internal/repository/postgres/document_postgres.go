package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"digilocker/internal/model"
	"digilocker/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, name, storage_path, size, content_type, shared, verified, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Name,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.Shared,
		&d.Verified,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_id, name, storage_path, size, content_type, shared, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.Name,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.Shared,
		doc.Verified,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// ListByOwner returns every document owned by ownerID, newest first. Ties on
// created_at are broken by id so the ordering is stable.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetShared flips the shared flag with a compare-and-swap on updated_at.
func (r *DocumentPostgres) SetShared(ctx context.Context, id string, shared bool, prevUpdatedAt time.Time) (time.Time, error) {
	const q = `
		UPDATE documents
		SET shared = $2, updated_at = now()
		WHERE id = $1 AND updated_at = $3
		RETURNING updated_at
	`
	return r.casUpdate(ctx, q, id, shared, prevUpdatedAt)
}

// SetVerified flips the verified flag with a compare-and-swap on updated_at.
func (r *DocumentPostgres) SetVerified(ctx context.Context, id string, verified bool, prevUpdatedAt time.Time) (time.Time, error) {
	const q = `
		UPDATE documents
		SET verified = $2, updated_at = now()
		WHERE id = $1 AND updated_at = $3
		RETURNING updated_at
	`
	return r.casUpdate(ctx, q, id, verified, prevUpdatedAt)
}

func (r *DocumentPostgres) casUpdate(ctx context.Context, q, id string, value bool, prevUpdatedAt time.Time) (time.Time, error) {
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, q, id, value, prevUpdatedAt).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, repository.ErrUpdateConflict
	}
	if err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

// Delete removes a document by ID. It does not return an error if the row
// does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
