package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// postRow mirrors the posts table for sqlx scanning.
type postRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Published bool      `db:"published"`
	Views     int       `db:"views"`
	AuthorID  int64     `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r postRow) toModel() model.Post {
	return model.Post{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Published: r.Published,
		Views:     r.Views,
		AuthorID:  r.AuthorID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type tagRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r tagRow) toModel() model.Tag {
	return model.Tag{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

// PostSQLX implements repository.PostRepository with sqlx struct scanning.
type PostSQLX struct {
	db *sqlx.DB
}

func NewPostSQLX(db *sqlx.DB) *PostSQLX {
	return &PostSQLX{db: db}
}

var _ repository.PostRepository = (*PostSQLX)(nil)

const postColumns = `id, title, content, published, views, author_id, created_at, updated_at`

func (r *PostSQLX) get(ctx context.Context, q string, args ...any) (*model.Post, error) {
	var row postRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, translate(err)
	}
	p := row.toModel()
	return &p, nil
}

func (r *PostSQLX) Create(ctx context.Context, p *model.Post) (*model.Post, error) {
	const q = `
		INSERT INTO posts (title, content, published, author_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + postColumns
	return r.get(ctx, q, p.Title, p.Content, p.Published, p.AuthorID)
}

func (r *PostSQLX) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	return r.get(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
}

// List builds the WHERE clause from the non-zero filter fields.
func (r *PostSQLX) List(ctx context.Context, f repository.PostFilter) ([]model.Post, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.AuthorID > 0 {
		where = append(where, "author_id = "+arg(f.AuthorID))
	}
	if f.PublishedOnly {
		where = append(where, "published = TRUE")
	}
	if f.Query != "" {
		p := arg(f.Query)
		where = append(where, "(title ILIKE '%' || "+p+" || '%' OR content ILIKE '%' || "+p+" || '%')")
	}

	q := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ` + arg(f.Page.Limit) + ` OFFSET ` + arg(f.Page.Offset)

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *PostSQLX) Update(ctx context.Context, p *model.Post) (*model.Post, error) {
	const q = `
		UPDATE posts SET title = $2, content = $3, published = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + postColumns
	return r.get(ctx, q, p.ID, p.Title, p.Content, p.Published)
}

func (r *PostSQLX) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *PostSQLX) IncrementViews(ctx context.Context, id int64) (*model.Post, error) {
	const q = `UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING ` + postColumns
	return r.get(ctx, q, id)
}

func (r *PostSQLX) AttachTag(ctx context.Context, postID, tagID int64) error {
	const q = `INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, q, postID, tagID)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *PostSQLX) TagsFor(ctx context.Context, postID int64) ([]model.Tag, error) {
	const q = `
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = $1
		ORDER BY t.name`
	var rows []tagRow
	if err := r.db.SelectContext(ctx, &rows, q, postID); err != nil {
		return nil, err
	}
	out := make([]model.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
