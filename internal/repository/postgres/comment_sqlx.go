package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

type commentRow struct {
	ID        int64     `db:"id"`
	Content   string    `db:"content"`
	PostID    int64     `db:"post_id"`
	AuthorID  int64     `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r commentRow) toModel() model.Comment {
	return model.Comment{ID: r.ID, Content: r.Content, PostID: r.PostID, AuthorID: r.AuthorID, CreatedAt: r.CreatedAt}
}

// CommentSQLX implements repository.CommentRepository.
type CommentSQLX struct {
	db *sqlx.DB
}

func NewCommentSQLX(db *sqlx.DB) *CommentSQLX {
	return &CommentSQLX{db: db}
}

var _ repository.CommentRepository = (*CommentSQLX)(nil)

func (r *CommentSQLX) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	const q = `
		INSERT INTO comments (content, post_id, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, content, post_id, author_id, created_at`
	var row commentRow
	if err := r.db.GetContext(ctx, &row, q, c.Content, c.PostID, c.AuthorID); err != nil {
		return nil, translate(err)
	}
	out := row.toModel()
	return &out, nil
}

func (r *CommentSQLX) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	const q = `
		SELECT id, content, post_id, author_id, created_at
		FROM comments WHERE post_id = $1
		ORDER BY created_at, id`
	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, q, postID); err != nil {
		return nil, err
	}
	out := make([]model.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
