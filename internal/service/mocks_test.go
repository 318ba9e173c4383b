package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of repository.Store that runs fn against its repositories.
type MockStore struct {
	mock.Mock
	repos repository.Repositories
}

func (m *MockStore) Repositories() repository.Repositories {
	return m.repos
}

func (m *MockStore) WithinTransaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	args := m.Called(ctx)
	if err := fn(m.repos); err != nil {
		return err
	}
	return args.Error(0)
}

// MockProductRepository is a mock implementation of repository.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Insert(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	if args.Error(0) == nil {
		product.InitMeta()
	}
	return args.Error(0)
}

func (m *MockProductRepository) FindLive(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) ListLive(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Product), args.Error(1)
}

func (m *MockProductRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields repository.Fields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) ExistsLive(ctx context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, field, value, excludeID)
	return args.Bool(0), args.Error(1)
}

// MockVariantRepository is a mock implementation of repository.VariantRepository
type MockVariantRepository struct {
	mock.Mock
}

func (m *MockVariantRepository) Insert(ctx context.Context, variant *model.Variant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockVariantRepository) FindLive(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Variant), args.Error(1)
}

func (m *MockVariantRepository) ListLive(ctx context.Context, query repository.Query) ([]*model.Variant, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Variant), args.Error(1)
}

func (m *MockVariantRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields repository.Fields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockVariantRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVariantRepository) SoftDeleteByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVariantRepository) ExistsLive(ctx context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, field, value, excludeID)
	return args.Bool(0), args.Error(1)
}

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Insert(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) ListPending(ctx context.Context, limit int) ([]*model.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *MockEventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockPublisher is a mock implementation of service.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newMockStore() (*MockStore, *MockProductRepository, *MockVariantRepository, *MockEventRepository) {
	products := new(MockProductRepository)
	variants := new(MockVariantRepository)
	events := new(MockEventRepository)
	store := &MockStore{repos: repository.Repositories{Products: products, Variants: variants, Events: events}}
	return store, products, variants, events
}
