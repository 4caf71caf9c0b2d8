// Package vault implements the document store core: a per-identity store that
// keeps an in-memory mirror of the identity's documents and mutates the
// remote boundaries (object storage, metadata repository) and the mirror
// together. The mirror is the source of truth for rendering; it is replaced
// wholesale on Refresh and updated incrementally on a mutator's own success,
// never merged with concurrent remote changes.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"digilocker/internal/config"
	"digilocker/internal/model"
	"digilocker/internal/repository"
	"digilocker/internal/storage"
)

// MaxUploadSize is the largest accepted document, pre-network validated.
const MaxUploadSize = 10 << 20 // 10 MiB

// PreviewPlaceholder is the preview URL for non-image documents.
const PreviewPlaceholder = "/assets/document-placeholder.svg"

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("document not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrFileTooLarge    = errors.New("file exceeds the 10 MiB limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// allowedContentTypes are the media types the vault accepts for upload:
// PDF, JPEG, PNG, DOC and DOCX.
var allowedContentTypes = map[string]struct{}{
	"application/pdf":    {},
	"image/jpeg":         {},
	"image/png":          {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Store is a document store bound to one authenticated identity. All
// operations are scoped to that identity. The mirror is guarded by mu;
// boundary calls happen outside the lock so a slow network call never blocks
// readers of the current snapshot.
type Store struct {
	ownerID string
	store   storage.Storage
	repo    repository.DocumentRepository
	notify  Notifier
	share   config.ShareConfig
	log     *zap.Logger

	mu      sync.Mutex
	docs    []model.Document
	loading bool
}

// NewStore constructs a store for the given identity. The identity must be
// authenticated; anonymous callers are rejected before a store exists.
func NewStore(ownerID string, st storage.Storage, repo repository.DocumentRepository, notify Notifier, share config.ShareConfig, log *zap.Logger) *Store {
	return &Store{
		ownerID: ownerID,
		store:   st,
		repo:    repo,
		notify:  notify,
		share:   share,
		log:     log,
		docs:    []model.Document{},
	}
}

// OwnerID returns the identity this store is bound to.
func (s *Store) OwnerID() string { return s.ownerID }

// Documents returns a snapshot of the mirror, newest first.
func (s *Store) Documents() []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Loading reports whether a Refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Stats summarizes the mirror for the dashboard.
func (s *Store) Stats() model.VaultStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := model.VaultStats{TotalDocuments: len(s.docs)}
	for _, d := range s.docs {
		st.TotalBytes += d.Size
		if d.Shared {
			st.SharedCount++
		}
		if d.Verified {
			st.VerifiedCount++
		}
	}
	return st
}

// Refresh fetches the identity's documents newest-first, resolves a fresh
// signed URL (and preview URL) per document, and atomically replaces the
// mirror. On failure the mirror is left untouched.
func (s *Store) Refresh(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	docs, err := s.repo.ListByOwner(ctx, s.ownerID)
	if err != nil {
		s.notify.Error("could not load documents")
		return fmt.Errorf("list documents: %w", err)
	}

	for i := range docs {
		if err := s.resolveURLs(ctx, &docs[i]); err != nil {
			s.notify.Error("could not load documents")
			return fmt.Errorf("resolve url for %s: %w", docs[i].ID, err)
		}
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return nil
}

// Upload validates the file locally, persists bytes and metadata, and on
// success prepends the new document to the mirror. Validation failures never
// reach a boundary; a failure at either boundary leaves the mirror unchanged.
func (s *Store) Upload(ctx context.Context, r io.Reader, name, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if size > MaxUploadSize {
		s.notify.Error("file exceeds the 10 MiB limit")
		return nil, ErrFileTooLarge
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		s.notify.Error("unsupported file type")
		return nil, ErrUnsupportedType
	}

	// Collision-free per-identity key, keeping the original extension.
	ext := filepath.Ext(name)
	key := filepath.ToSlash(filepath.Join(s.ownerID, uuid.NewString()+ext))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": name},
	})
	if err != nil {
		s.notify.Error("upload failed")
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          uuid.NewString(),
		OwnerID:     s.ownerID,
		Name:        name,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: contentType,
		Shared:      false,
		Verified:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Roll back the stored object so no orphan is left behind.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.notify.Error("upload failed")
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		s.notify.Error("upload failed")
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if err := s.resolveURLs(ctx, stored); err != nil {
		// The document exists; a presign failure only loses the preview.
		s.log.Warn("presign after upload failed", zap.String("document_id", stored.ID), zap.Error(err))
	}

	s.mu.Lock()
	s.docs = append([]model.Document{*stored}, s.docs...)
	s.mu.Unlock()

	s.notify.Success("document uploaded")
	return stored, nil
}

// Delete removes a document's bytes and metadata, then prunes the mirror.
// An id absent from the backend is treated as already deleted: the mirror is
// pruned if needed and no error is returned.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.prune(id)
			return nil
		}
		s.notify.Error("could not delete document")
		return fmt.Errorf("find document: %w", err)
	}
	if doc.OwnerID != s.ownerID {
		// Never touch another identity's documents.
		return ErrNotFound
	}

	// Storage delete is idempotent: a missing object counts as removed.
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		s.notify.Error("could not delete document")
		return fmt.Errorf("delete storage: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.notify.Error("could not delete document")
		return fmt.Errorf("delete metadata: %w", err)
	}

	s.prune(id)
	s.notify.Success("document deleted")
	return nil
}

// Share marks the document shared and returns a sharing descriptor: a deep
// link carrying the document id and a QR image URL encoding that link. The
// descriptor is built fresh on every call and never persisted. Share is
// idempotent: sharing an already-shared document only rebuilds the descriptor.
func (s *Store) Share(ctx context.Context, id string) (*model.ShareLink, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	doc, err := s.lookup(ctx, id)
	if err != nil {
		s.notify.Error("could not share document")
		return nil, err
	}

	if !doc.Shared {
		updatedAt, err := s.repo.SetShared(ctx, id, true, doc.UpdatedAt)
		if err != nil {
			s.notify.Error("could not share document")
			return nil, fmt.Errorf("set shared: %w", err)
		}
		s.apply(id, func(d *model.Document) {
			d.Shared = true
			d.UpdatedAt = updatedAt
		})
	}

	link := s.deepLink(id)
	s.notify.Success("share link created")
	return &model.ShareLink{
		DocumentID: id,
		URL:        link,
		QRCodeURL:  s.qrURL(link),
	}, nil
}

// ToggleVerify flips the document's verification badge remotely and in the
// mirror, and reports the new state. The notification distinguishes the two
// directions.
func (s *Store) ToggleVerify(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrIDRequired
	}

	doc, err := s.lookup(ctx, id)
	if err != nil {
		s.notify.Error("could not update verification")
		return false, err
	}

	next := !doc.Verified
	updatedAt, err := s.repo.SetVerified(ctx, id, next, doc.UpdatedAt)
	if err != nil {
		s.notify.Error("could not update verification")
		return false, fmt.Errorf("set verified: %w", err)
	}

	s.apply(id, func(d *model.Document) {
		d.Verified = next
		d.UpdatedAt = updatedAt
	})

	if next {
		s.notify.Success("document verified")
	} else {
		s.notify.Info("document verification removed")
	}
	return next, nil
}

// Open streams a document's content, for direct downloads.
func (s *Store) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	doc, err := s.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage object: %w", err)
	}
	return rc, doc, nil
}

// lookup prefers the mirror and falls back to the repository, enforcing
// ownership either way.
func (s *Store) lookup(ctx context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			d := s.docs[i]
			s.mu.Unlock()
			return &d, nil
		}
	}
	s.mu.Unlock()

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	if doc.OwnerID != s.ownerID {
		return nil, ErrNotFound
	}
	return doc, nil
}

// resolveURLs presigns the document's access URL and, for images, its preview.
func (s *Store) resolveURLs(ctx context.Context, d *model.Document) error {
	u, err := s.store.PresignGet(ctx, d.StoragePath, s.share.PresignExpiry)
	if err != nil {
		return err
	}
	d.URL = u
	if strings.HasPrefix(d.ContentType, "image/") {
		d.PreviewURL = u
	} else {
		d.PreviewURL = PreviewPlaceholder
	}
	return nil
}

func (s *Store) deepLink(id string) string {
	return strings.TrimRight(s.share.PublicBaseURL, "/") + "/d/" + id
}

func (s *Store) qrURL(link string) string {
	return s.share.QREndpoint + "?size=200x200&data=" + url.QueryEscape(link)
}

// apply mutates the mirror entry with the given id, if present.
func (s *Store) apply(id string, fn func(*model.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			fn(&s.docs[i])
			return
		}
	}
}

// prune drops the mirror entry with the given id, if present.
func (s *Store) prune(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return
		}
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
