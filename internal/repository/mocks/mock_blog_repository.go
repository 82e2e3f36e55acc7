package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

var (
	_ repository.PostRepository    = (*MockPostRepository)(nil)
	_ repository.CommentRepository = (*MockCommentRepository)(nil)
	_ repository.TagRepository     = (*MockTagRepository)(nil)
	_ repository.StatsRepository   = (*MockStatsRepository)(nil)
)

type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) post(args mock.Arguments) (*model.Post, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostRepository) Create(ctx context.Context, p *model.Post) (*model.Post, error) {
	return m.post(m.Called(ctx, p))
}

func (m *MockPostRepository) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	return m.post(m.Called(ctx, id))
}

func (m *MockPostRepository) List(ctx context.Context, f repository.PostFilter) ([]model.Post, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, p *model.Post) (*model.Post, error) {
	return m.post(m.Called(ctx, p))
}

func (m *MockPostRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostRepository) IncrementViews(ctx context.Context, id int64) (*model.Post, error) {
	return m.post(m.Called(ctx, id))
}

func (m *MockPostRepository) AttachTag(ctx context.Context, postID, tagID int64) error {
	return m.Called(ctx, postID, tagID).Error(0)
}

func (m *MockPostRepository) TagsFor(ctx context.Context, postID int64) ([]model.Tag, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) Create(ctx context.Context, name string) (*model.Tag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockTagRepository) FindByID(ctx context.Context, id int64) (*model.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockTagRepository) List(ctx context.Context) ([]model.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) Overview(ctx context.Context) (*model.BlogStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlogStats), args.Error(1)
}
