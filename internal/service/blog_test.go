package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"apicourse/internal/model"
	"apicourse/internal/repository"
	repoMocks "apicourse/internal/repository/mocks"
)

type blogMocks struct {
	users    *repoMocks.MockUserRepository
	posts    *repoMocks.MockPostRepository
	comments *repoMocks.MockCommentRepository
	tags     *repoMocks.MockTagRepository
	stats    *repoMocks.MockStatsRepository
}

func newBlog() (BlogService, *blogMocks) {
	m := &blogMocks{
		users:    new(repoMocks.MockUserRepository),
		posts:    new(repoMocks.MockPostRepository),
		comments: new(repoMocks.MockCommentRepository),
		tags:     new(repoMocks.MockTagRepository),
		stats:    new(repoMocks.MockStatsRepository),
	}
	return NewBlogService(m.users, m.posts, m.comments, m.tags, m.stats), m
}

func TestBlogService_CreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown author", func(t *testing.T) {
		svc, m := newBlog()
		m.users.On("FindByID", ctx, int64(9)).Return(nil, repository.ErrNotFound)

		_, err := svc.CreatePost(ctx, 9, model.PostInput{Title: "t", Content: "c"})
		assert.ErrorIs(t, err, ErrUserNotFound)
		m.posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("creates with trimmed title", func(t *testing.T) {
		svc, m := newBlog()
		m.users.On("FindByID", ctx, int64(1)).Return(&model.User{ID: 1}, nil)
		m.posts.On("Create", ctx, mock.MatchedBy(func(p *model.Post) bool {
			return p.Title == "Hello" && p.AuthorID == 1 && p.Published
		})).Return(&model.Post{ID: 5, Title: "Hello"}, nil)

		p, err := svc.CreatePost(ctx, 1, model.PostInput{Title: "  Hello ", Content: "body", Published: true})
		require.NoError(t, err)
		assert.Equal(t, int64(5), p.ID)
		m.posts.AssertExpectations(t)
	})
}

func TestBlogService_ListPosts_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	svc, m := newBlog()
	m.posts.On("List", ctx, repository.PostFilter{
		Page:          repository.PageQuery{Limit: 100, Offset: 0},
		PublishedOnly: true,
	}).Return([]model.Post{{ID: 1}}, nil)

	posts, err := svc.ListPosts(ctx, -1, 5000, true)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestBlogService_ViewPost(t *testing.T) {
	ctx := context.Background()

	svc, m := newBlog()
	m.posts.On("IncrementViews", ctx, int64(3)).Return(&model.Post{ID: 3, Views: 4}, nil)
	m.posts.On("TagsFor", ctx, int64(3)).Return([]model.Tag{{ID: 1, Name: "go"}}, nil)

	p, err := svc.ViewPost(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Views)
	assert.Equal(t, "go", p.Tags[0].Name)

	m.posts.On("IncrementViews", ctx, int64(99)).Return(nil, repository.ErrNotFound)
	_, err = svc.ViewPost(ctx, 99)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestBlogService_UpdatePost(t *testing.T) {
	ctx := context.Background()
	svc, m := newBlog()
	m.posts.On("FindByID", ctx, int64(3)).Return(&model.Post{ID: 3, Title: "Old", Content: "keep"}, nil)
	m.posts.On("Update", ctx, mock.MatchedBy(func(p *model.Post) bool {
		return p.Title == "New" && p.Content == "keep" && p.Published
	})).Return(&model.Post{ID: 3, Title: "New"}, nil)

	title, pub := "New", true
	p, err := svc.UpdatePost(ctx, 3, model.PostPatch{Title: &title, Published: &pub})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Title)

	m.posts.On("Delete", ctx, int64(4)).Return(repository.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePost(ctx, 4), ErrPostNotFound)
}

func TestBlogService_UserWithPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		svc, m := newBlog()
		m.users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Email: "a@example.com"}, nil)
		m.posts.On("List", mock.Anything, mock.MatchedBy(func(f repository.PostFilter) bool {
			return f.AuthorID == 1
		})).Return([]model.Post{{ID: 1}, {ID: 2}}, nil)

		out, err := svc.UserWithPosts(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", out.Email)
		assert.Len(t, out.Posts, 2)
	})

	t.Run("missing user", func(t *testing.T) {
		svc, m := newBlog()
		m.users.On("FindByID", mock.Anything, int64(1)).Return(nil, repository.ErrNotFound)
		m.posts.On("List", mock.Anything, mock.Anything).Return([]model.Post{}, nil).Maybe()

		_, err := svc.UserWithPosts(ctx, 1)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestBlogService_PostWithComments(t *testing.T) {
	ctx := context.Background()
	svc, m := newBlog()
	m.posts.On("FindByID", ctx, int64(2)).Return(&model.Post{ID: 2}, nil)
	m.comments.On("ListByPost", mock.Anything, int64(2)).Return([]model.Comment{{ID: 1}, {ID: 2}, {ID: 3}}, nil)
	m.posts.On("TagsFor", mock.Anything, int64(2)).Return([]model.Tag{{ID: 9}}, nil)

	out, err := svc.PostWithComments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, out.Comments, 3)
	assert.Len(t, out.Tags, 1)

	boom := errors.New("boom")
	svc, m = newBlog()
	m.posts.On("FindByID", ctx, int64(2)).Return(&model.Post{ID: 2}, nil)
	m.comments.On("ListByPost", mock.Anything, int64(2)).Return(nil, boom)
	m.posts.On("TagsFor", mock.Anything, int64(2)).Return([]model.Tag{}, nil).Maybe()
	_, err = svc.PostWithComments(ctx, 2)
	assert.ErrorIs(t, err, boom)
}

func TestBlogService_AddComment(t *testing.T) {
	ctx := context.Background()
	svc, m := newBlog()
	m.posts.On("FindByID", ctx, int64(99)).Return(nil, repository.ErrNotFound)
	_, err := svc.AddComment(ctx, 99, 1, model.CommentInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrPostNotFound)

	m.posts.On("FindByID", ctx, int64(2)).Return(&model.Post{ID: 2}, nil)
	m.users.On("FindByID", ctx, int64(1)).Return(&model.User{ID: 1}, nil)
	m.comments.On("Create", ctx, &model.Comment{Content: "hi", PostID: 2, AuthorID: 1}).
		Return(&model.Comment{ID: 10, Content: "hi"}, nil)

	c, err := svc.AddComment(ctx, 2, 1, model.CommentInput{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.ID)
}

func TestBlogService_Tags(t *testing.T) {
	ctx := context.Background()
	svc, m := newBlog()

	m.tags.On("Create", ctx, "golang").Return(nil, repository.ErrDuplicate)
	_, err := svc.CreateTag(ctx, "  GoLang ")
	assert.ErrorIs(t, err, ErrTagExists)

	tests := []struct {
		name    string
		setup   func(m *blogMocks)
		wantErr error
	}{
		{
			name: "missing post",
			setup: func(m *blogMocks) {
				m.posts.On("FindByID", ctx, int64(1)).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrPostNotFound,
		},
		{
			name: "missing tag",
			setup: func(m *blogMocks) {
				m.posts.On("FindByID", ctx, int64(1)).Return(&model.Post{ID: 1}, nil)
				m.tags.On("FindByID", ctx, int64(2)).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrTagNotFound,
		},
		{
			name: "already tagged",
			setup: func(m *blogMocks) {
				m.posts.On("FindByID", ctx, int64(1)).Return(&model.Post{ID: 1}, nil)
				m.tags.On("FindByID", ctx, int64(2)).Return(&model.Tag{ID: 2}, nil)
				m.posts.On("AttachTag", ctx, int64(1), int64(2)).Return(repository.ErrDuplicate)
			},
			wantErr: ErrAlreadyTagged,
		},
		{
			name: "ok",
			setup: func(m *blogMocks) {
				m.posts.On("FindByID", ctx, int64(1)).Return(&model.Post{ID: 1}, nil)
				m.tags.On("FindByID", ctx, int64(2)).Return(&model.Tag{ID: 2}, nil)
				m.posts.On("AttachTag", ctx, int64(1), int64(2)).Return(nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newBlog()
			tt.setup(m)
			err := svc.TagPost(ctx, 1, 2)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
