package handlers_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/ssnlakshya/mela/internal/models"
)

// --- Mocks ---

// MockStallService
type MockStallService struct {
	mock.Mock
}

func (m *MockStallService) Reconcile(ctx context.Context, ownerEmail string, payload models.StallPayload) (*models.Stall, string, error) {
	args := m.Called(ctx, ownerEmail, payload)
	var stall *models.Stall
	if args.Get(0) != nil {
		stall = args.Get(0).(*models.Stall)
	}
	return stall, args.String(1), args.Error(2)
}

func (m *MockStallService) FetchActive(ctx context.Context, ownerEmail string) (*models.Stall, error) {
	args := m.Called(ctx, ownerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stall), args.Error(1)
}

func (m *MockStallService) DeleteAll(ctx context.Context, ownerEmail string) (int64, error) {
	args := m.Called(ctx, ownerEmail)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStallService) ListByCategory(ctx context.Context, category string) ([]models.PublicStall, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PublicStall), args.Error(1)
}

func (m *MockStallService) GetBySlug(ctx context.Context, slug string) (*models.Stall, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stall), args.Error(1)
}

// MockMediaStorage
type MockMediaStorage struct {
	mock.Mock
}

func (m *MockMediaStorage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockMediaStorage) Fetch(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), int64(args.Int(2)), args.Error(3)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), int64(args.Int(2)), args.Error(3)
}
