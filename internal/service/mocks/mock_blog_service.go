package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"apicourse/internal/model"
	"apicourse/internal/service"
)

var _ service.BlogService = (*MockBlogService)(nil)

type MockBlogService struct {
	mock.Mock
}

func (m *MockBlogService) CreatePost(ctx context.Context, authorID int64, in model.PostInput) (*model.Post, error) {
	args := m.Called(ctx, authorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockBlogService) ListPosts(ctx context.Context, skip, limit int, publishedOnly bool) ([]model.Post, error) {
	args := m.Called(ctx, skip, limit, publishedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockBlogService) ViewPost(ctx context.Context, id int64) (*model.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockBlogService) UpdatePost(ctx context.Context, id int64, in model.PostPatch) (*model.Post, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockBlogService) DeletePost(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBlogService) PostsByUser(ctx context.Context, userID int64) ([]model.Post, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockBlogService) UserWithPosts(ctx context.Context, userID int64) (*model.UserWithPosts, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserWithPosts), args.Error(1)
}

func (m *MockBlogService) PostWithComments(ctx context.Context, postID int64) (*model.PostWithComments, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PostWithComments), args.Error(1)
}

func (m *MockBlogService) SearchPosts(ctx context.Context, q string, publishedOnly bool, limit int) ([]model.Post, error) {
	args := m.Called(ctx, q, publishedOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockBlogService) AddComment(ctx context.Context, postID, authorID int64, in model.CommentInput) (*model.Comment, error) {
	args := m.Called(ctx, postID, authorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockBlogService) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockBlogService) ListTags(ctx context.Context) ([]model.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockBlogService) TagPost(ctx context.Context, postID, tagID int64) error {
	args := m.Called(ctx, postID, tagID)
	return args.Error(0)
}

func (m *MockBlogService) Stats(ctx context.Context) (*model.BlogStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlogStats), args.Error(1)
}
