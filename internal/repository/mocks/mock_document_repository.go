package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) doc(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return m.doc(m.Called(ctx, doc))
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return m.doc(m.Called(ctx, id))
}

func (m *MockDocumentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
