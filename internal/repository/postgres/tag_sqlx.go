package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// TagSQLX implements repository.TagRepository.
type TagSQLX struct {
	db *sqlx.DB
}

func NewTagSQLX(db *sqlx.DB) *TagSQLX {
	return &TagSQLX{db: db}
}

var _ repository.TagRepository = (*TagSQLX)(nil)

func (r *TagSQLX) Create(ctx context.Context, name string) (*model.Tag, error) {
	var row tagRow
	const q = `INSERT INTO tags (name) VALUES ($1) RETURNING id, name, created_at`
	if err := r.db.GetContext(ctx, &row, q, name); err != nil {
		return nil, translate(err)
	}
	t := row.toModel()
	return &t, nil
}

func (r *TagSQLX) FindByID(ctx context.Context, id int64) (*model.Tag, error) {
	var row tagRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name, created_at FROM tags WHERE id = $1`, id); err != nil {
		return nil, translate(err)
	}
	t := row.toModel()
	return &t, nil
}

func (r *TagSQLX) List(ctx context.Context) ([]model.Tag, error) {
	var rows []tagRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, created_at FROM tags ORDER BY name`); err != nil {
		return nil, err
	}
	out := make([]model.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
