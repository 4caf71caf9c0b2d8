package vault

import (
	"sync"

	"go.uber.org/zap"

	"digilocker/internal/config"
	"digilocker/internal/repository"
	"digilocker/internal/storage"
)

// Manager hands out one Store per authenticated identity and tears it down
// when the identity signs out. Store lifecycle therefore tracks the session
// lifecycle: created on first use after sign-in, dropped on sign-out, so a
// returning identity always starts from a fresh fetch.
type Manager struct {
	store  storage.Storage
	repo   repository.DocumentRepository
	notify Notifier
	share  config.ShareConfig
	log    *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(st storage.Storage, repo repository.DocumentRepository, notify Notifier, share config.ShareConfig, log *zap.Logger) *Manager {
	return &Manager{
		store:  st,
		repo:   repo,
		notify: notify,
		share:  share,
		log:    log,
		stores: make(map[string]*Store),
	}
}

// Store returns the identity's store, creating it on first use.
func (m *Manager) Store(ownerID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[ownerID]; ok {
		return s
	}
	s := NewStore(ownerID, m.store, m.repo, m.notify, m.share, m.log)
	m.stores[ownerID] = s
	return s
}

// Drop discards the identity's store and its mirror. Called on logout.
func (m *Manager) Drop(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, ownerID)
}
