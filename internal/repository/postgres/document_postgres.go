package postgres

import (
	"context"
	"database/sql"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// DocumentPostgres keeps uploaded file metadata in the files table.
type DocumentPostgres struct {
	db *sql.DB
}

func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const fileColumns = `id, filename, original, storage_path, size, content_type, created_at`

func fileFields(d *model.Document) []any {
	return []any{&d.ID, &d.Filename, &d.OriginalName, &d.StoragePath, &d.Size, &d.ContentType, &d.CreatedAt}
}

func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + fileColumns
	var out model.Document
	err := r.db.QueryRowContext(ctx, q,
		doc.ID, doc.Filename, doc.OriginalName, doc.StoragePath, doc.Size, doc.ContentType, doc.CreatedAt,
	).Scan(fileFields(&out)...)
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	var out model.Document
	if err := r.db.QueryRowContext(ctx, q, id).Scan(fileFields(&out)...); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// List reads the page and the table size in one query. A page past the end
// carries no window count, so the total is then counted separately.
func (r *DocumentPostgres) List(ctx context.Context, page repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const q = `
		SELECT ` + fileColumns + `, COUNT(*) OVER () AS total
		FROM files
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, page.Limit, page.Offset)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	res := &repository.PageResult[model.Document]{Items: []model.Document{}}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(append(fileFields(&d), &res.Total)...); err != nil {
			return nil, translate(err)
		}
		res.Items = append(res.Items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}

	if len(res.Items) == 0 && page.Offset > 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&res.Total); err != nil {
			return nil, translate(err)
		}
	}
	return res, nil
}

// Delete is idempotent: removing a missing row is not an error.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	return translate(err)
}
