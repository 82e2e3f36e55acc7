package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// BlogService manages posts, comments and tags written by stored users.
type BlogService interface {
	CreatePost(ctx context.Context, authorID int64, in model.PostInput) (*model.Post, error)
	ListPosts(ctx context.Context, skip, limit int, publishedOnly bool) ([]model.Post, error)
	// ViewPost returns a post with its tags and counts the view.
	ViewPost(ctx context.Context, id int64) (*model.Post, error)
	UpdatePost(ctx context.Context, id int64, in model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id int64) error
	PostsByUser(ctx context.Context, userID int64) ([]model.Post, error)
	UserWithPosts(ctx context.Context, userID int64) (*model.UserWithPosts, error)
	PostWithComments(ctx context.Context, postID int64) (*model.PostWithComments, error)
	SearchPosts(ctx context.Context, q string, publishedOnly bool, limit int) ([]model.Post, error)

	AddComment(ctx context.Context, postID, authorID int64, in model.CommentInput) (*model.Comment, error)

	CreateTag(ctx context.Context, name string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	TagPost(ctx context.Context, postID, tagID int64) error

	Stats(ctx context.Context) (*model.BlogStats, error)
}

type blogService struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	tags     repository.TagRepository
	stats    repository.StatsRepository
}

func NewBlogService(
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	tags repository.TagRepository,
	stats repository.StatsRepository,
) BlogService {
	return &blogService{users: users, posts: posts, comments: comments, tags: tags, stats: stats}
}

// maxListing caps every unbounded post query.
const maxListing = 1000

func (s *blogService) requireUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func postErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}

func (s *blogService) CreatePost(ctx context.Context, authorID int64, in model.PostInput) (*model.Post, error) {
	if _, err := s.requireUser(ctx, authorID); err != nil {
		return nil, err
	}
	p, err := s.posts.Create(ctx, &model.Post{
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Published: in.Published,
		AuthorID:  authorID,
	})
	if errors.Is(err, repository.ErrNotFound) {
		// the author vanished between the check and the insert
		return nil, ErrUserNotFound
	}
	return p, err
}

func (s *blogService) ListPosts(ctx context.Context, skip, limit int, publishedOnly bool) ([]model.Post, error) {
	if limit <= 0 || limit > maxListing {
		limit = 100
	}
	return s.posts.List(ctx, repository.PostFilter{
		Page:          repository.PageQuery{Limit: limit, Offset: max(skip, 0)},
		PublishedOnly: publishedOnly,
	})
}

func (s *blogService) ViewPost(ctx context.Context, id int64) (*model.Post, error) {
	p, err := s.posts.IncrementViews(ctx, id)
	if err != nil {
		return nil, postErr(err)
	}
	tags, err := s.posts.TagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Tags = tags
	return p, nil
}

func (s *blogService) UpdatePost(ctx context.Context, id int64, in model.PostPatch) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, postErr(err)
	}
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Published != nil {
		p.Published = *in.Published
	}
	out, err := s.posts.Update(ctx, p)
	return out, postErr(err)
}

func (s *blogService) DeletePost(ctx context.Context, id int64) error {
	return postErr(s.posts.Delete(ctx, id))
}

func (s *blogService) PostsByUser(ctx context.Context, userID int64) ([]model.Post, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.posts.List(ctx, repository.PostFilter{
		Page:     repository.PageQuery{Limit: maxListing},
		AuthorID: userID,
	})
}

func (s *blogService) UserWithPosts(ctx context.Context, userID int64) (*model.UserWithPosts, error) {
	var (
		u     *model.User
		posts []model.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.requireUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.posts.List(gctx, repository.PostFilter{
			Page:     repository.PageQuery{Limit: maxListing},
			AuthorID: userID,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &model.UserWithPosts{User: *u, Posts: posts}, nil
}

func (s *blogService) PostWithComments(ctx context.Context, postID int64) (*model.PostWithComments, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, postErr(err)
	}
	var (
		comments []model.Comment
		tags     []model.Tag
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comments, err = s.comments.ListByPost(gctx, postID)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.posts.TagsFor(gctx, postID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.Tags = tags
	return &model.PostWithComments{Post: *p, Comments: comments}, nil
}

func (s *blogService) SearchPosts(ctx context.Context, q string, publishedOnly bool, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > maxListing {
		limit = 20
	}
	return s.posts.List(ctx, repository.PostFilter{
		Page:          repository.PageQuery{Limit: limit},
		PublishedOnly: publishedOnly,
		Query:         strings.TrimSpace(q),
	})
}

func (s *blogService) AddComment(ctx context.Context, postID, authorID int64, in model.CommentInput) (*model.Comment, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, postErr(err)
	}
	if _, err := s.requireUser(ctx, authorID); err != nil {
		return nil, err
	}
	return s.comments.Create(ctx, &model.Comment{Content: in.Content, PostID: postID, AuthorID: authorID})
}

func (s *blogService) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	t, err := s.tags.Create(ctx, strings.ToLower(strings.TrimSpace(name)))
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrTagExists
	}
	return t, err
}

func (s *blogService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.tags.List(ctx)
}

func (s *blogService) TagPost(ctx context.Context, postID, tagID int64) error {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return postErr(err)
	}
	if _, err := s.tags.FindByID(ctx, tagID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTagNotFound
		}
		return err
	}
	err := s.posts.AttachTag(ctx, postID, tagID)
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrAlreadyTagged
	}
	return err
}

func (s *blogService) Stats(ctx context.Context) (*model.BlogStats, error) {
	return s.stats.Overview(ctx)
}
