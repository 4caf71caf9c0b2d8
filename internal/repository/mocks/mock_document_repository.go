package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"digilocker/internal/model"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if f, ok := args.Get(0).(func(context.Context, *model.Document) *model.Document); ok {
		return f(ctx, doc), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) SetShared(ctx context.Context, id string, shared bool, prevUpdatedAt time.Time) (time.Time, error) {
	args := m.Called(ctx, id, shared, prevUpdatedAt)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockDocumentRepository) SetVerified(ctx context.Context, id string, verified bool, prevUpdatedAt time.Time) (time.Time, error) {
	args := m.Called(ctx, id, verified, prevUpdatedAt)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
