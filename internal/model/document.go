package model

import "time"

// Document represents a stored file in the vault.
// This is a pure domain model with no database-specific dependencies or tags.
// URL and PreviewURL carry freshly presigned links and are never persisted;
// they are re-resolved on every fetch because the object store issues
// short-lived signed URLs.
type Document struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Shared      bool      `json:"shared"`
	Verified    bool      `json:"verified"`
	URL         string    `json:"url,omitempty"`
	PreviewURL  string    `json:"preview_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ShareLink is the sharing descriptor returned by the vault. It is generated
// fresh on every share call and is not persisted.
type ShareLink struct {
	DocumentID string `json:"document_id"`
	URL        string `json:"url"`
	QRCodeURL  string `json:"qr_code_url"`
}

// VaultStats summarizes the current vault contents for the dashboard.
type VaultStats struct {
	TotalDocuments int   `json:"total_documents"`
	TotalBytes     int64 `json:"total_bytes"`
	SharedCount    int   `json:"shared_count"`
	VerifiedCount  int   `json:"verified_count"`
}
