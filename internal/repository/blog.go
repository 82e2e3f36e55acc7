package repository

import (
	"context"

	"apicourse/internal/model"
)

// PostFilter narrows a post listing. Zero values disable a filter.
type PostFilter struct {
	Page          PageQuery
	AuthorID      int64
	PublishedOnly bool
	Query         string
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) (*model.Post, error)
	FindByID(ctx context.Context, id int64) (*model.Post, error)
	List(ctx context.Context, f PostFilter) ([]model.Post, error)
	Update(ctx context.Context, p *model.Post) (*model.Post, error)
	Delete(ctx context.Context, id int64) error
	// IncrementViews bumps the view counter and returns the updated post.
	IncrementViews(ctx context.Context, id int64) (*model.Post, error)
	// AttachTag links a tag to a post; ErrDuplicate if already linked.
	AttachTag(ctx context.Context, postID, tagID int64) error
	TagsFor(ctx context.Context, postID int64) ([]model.Tag, error)
}

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) (*model.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}

type TagRepository interface {
	Create(ctx context.Context, name string) (*model.Tag, error)
	FindByID(ctx context.Context, id int64) (*model.Tag, error)
	List(ctx context.Context) ([]model.Tag, error)
}

type StatsRepository interface {
	Overview(ctx context.Context) (*model.BlogStats, error)
}
