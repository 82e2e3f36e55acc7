package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// StatsSQLX implements repository.StatsRepository with one aggregate query.
type StatsSQLX struct {
	db *sqlx.DB
}

func NewStatsSQLX(db *sqlx.DB) *StatsSQLX {
	return &StatsSQLX{db: db}
}

var _ repository.StatsRepository = (*StatsSQLX)(nil)

type statsRow struct {
	Users          int `db:"users"`
	ActiveUsers    int `db:"active_users"`
	Posts          int `db:"posts"`
	PublishedPosts int `db:"published_posts"`
	Comments       int `db:"comments"`
	TotalViews     int `db:"total_views"`
}

func (r *StatsSQLX) Overview(ctx context.Context) (*model.BlogStats, error) {
	const q = `
		SELECT
		  (SELECT COUNT(*) FROM users)                           AS users,
		  (SELECT COUNT(*) FROM users WHERE is_active)           AS active_users,
		  (SELECT COUNT(*) FROM posts)                           AS posts,
		  (SELECT COUNT(*) FROM posts WHERE published)           AS published_posts,
		  (SELECT COUNT(*) FROM comments)                        AS comments,
		  (SELECT COALESCE(SUM(views), 0) FROM posts)            AS total_views`
	var row statsRow
	if err := r.db.GetContext(ctx, &row, q); err != nil {
		return nil, err
	}

	var s model.BlogStats
	s.Users.Total = row.Users
	s.Users.Active = row.ActiveUsers
	s.Users.Inactive = row.Users - row.ActiveUsers
	s.Posts.Total = row.Posts
	s.Posts.Published = row.PublishedPosts
	s.Posts.Drafts = row.Posts - row.PublishedPosts
	s.Comments.Total = row.Comments
	s.Engagement.TotalViews = row.TotalViews
	if row.Posts > 0 {
		s.Engagement.AvgViewsPerPost = round2(float64(row.TotalViews) / float64(row.Posts))
		s.Engagement.AvgCommentsPerPost = round2(float64(row.Comments) / float64(row.Posts))
	}
	return &s, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
