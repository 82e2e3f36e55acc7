package model

import "time"

// Post is a blog article written by a user.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	Views     int       `json:"views"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []Tag     `json:"tags,omitempty"`
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag labels posts.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserWithPosts is a user together with everything they wrote.
type UserWithPosts struct {
	User
	Posts []Post `json:"posts"`
}

// PostWithComments is a post together with its comments.
type PostWithComments struct {
	Post
	Comments []Comment `json:"comments"`
}

// BlogStats summarises the blog tables.
type BlogStats struct {
	Users struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Inactive int `json:"inactive"`
	} `json:"users"`
	Posts struct {
		Total     int `json:"total"`
		Published int `json:"published"`
		Drafts    int `json:"drafts"`
	} `json:"posts"`
	Comments struct {
		Total int `json:"total"`
	} `json:"comments"`
	Engagement struct {
		TotalViews         int     `json:"total_views"`
		AvgViewsPerPost    float64 `json:"avg_views_per_post"`
		AvgCommentsPerPost float64 `json:"avg_comments_per_post"`
	} `json:"engagement"`
}

// PostInput is the payload for creating a post.
type PostInput struct {
	Title     string `json:"title" validate:"required,min=1,max=200"`
	Content   string `json:"content" validate:"required,min=1"`
	Published bool   `json:"published"`
}

// PostPatch carries the post fields a client wants to change.
type PostPatch struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content   *string `json:"content" validate:"omitempty,min=1"`
	Published *bool   `json:"published"`
}

type CommentInput struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

type TagInput struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}
