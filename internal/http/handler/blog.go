package handler

import (
	"github.com/gofiber/fiber/v2"

	"apicourse/internal/model"
	"apicourse/internal/service"
)

type listQuery struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=1,lte=1000"`
}

type postListQuery struct {
	Skip          int  `query:"skip" validate:"gte=0"`
	Limit         int  `query:"limit" validate:"gte=1,lte=1000"`
	PublishedOnly bool `query:"published_only"`
}

type authorQuery struct {
	AuthorID int64 `query:"author_id" validate:"required,gt=0"`
}

type searchQuery struct {
	Q             string `query:"q" validate:"required,min=1"`
	PublishedOnly bool   `query:"published_only"`
	Limit         int    `query:"limit" validate:"gte=1,lte=100"`
}

// BlogRoutes is the database backed CRUD surface.
type BlogRoutes struct {
	users service.UserService
	blog  service.BlogService
}

func NewBlogRoutes(users service.UserService, blog service.BlogService) *BlogRoutes {
	return &BlogRoutes{users: users, blog: blog}
}

func registerDB(r fiber.Router, d *Deps) error {
	if d.Users == nil {
		return missing("user service")
	}
	if d.Blog == nil {
		return missing("blog service")
	}
	h := NewBlogRoutes(d.Users, d.Blog)

	r.Post("/users", h.CreateUser)
	r.Get("/users", h.ListUsers)
	r.Get("/users/:user_id", h.GetUser)
	r.Put("/users/:user_id", h.UpdateUser)
	r.Delete("/users/:user_id", h.DeleteUser)
	r.Get("/users/:user_id/posts", h.UserPosts)
	r.Get("/users/:user_id/with-posts", h.UserWithPosts)

	r.Post("/posts", h.CreatePost)
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/:post_id", h.GetPost)
	r.Put("/posts/:post_id", h.UpdatePost)
	r.Delete("/posts/:post_id", h.DeletePost)
	r.Get("/posts/:post_id/with-comments", h.PostWithComments)
	r.Post("/posts/:post_id/comments", h.AddComment)
	r.Post("/posts/:post_id/tags/:tag_id", h.TagPost)

	r.Post("/tags", h.CreateTag)
	r.Get("/tags", h.ListTags)

	r.Get("/stats/overview", h.Stats)
	r.Get("/search/users", h.SearchUsers)
	r.Get("/search/posts", h.SearchPosts)
	return nil
}

func (h *BlogRoutes) CreateUser(c *fiber.Ctx) error {
	var in model.UserCreate
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	u, err := h.users.Register(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *BlogRoutes) ListUsers(c *fiber.Ctx) error {
	q := listQuery{Limit: 100}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	page, err := h.users.List(c.UserContext(), q.Skip, q.Limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page.Items)
}

func (h *BlogRoutes) GetUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	u, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

func (h *BlogRoutes) UpdateUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	var in model.UserUpdate
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	u, err := h.users.Update(c.UserContext(), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// DeleteUser removes the user; posts and comments go with it.
func (h *BlogRoutes) DeleteUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

func (h *BlogRoutes) UserPosts(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	posts, err := h.blog.PostsByUser(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(posts)
}

func (h *BlogRoutes) UserWithPosts(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	u, err := h.blog.UserWithPosts(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

func (h *BlogRoutes) CreatePost(c *fiber.Ctx) error {
	var q authorQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	var in model.PostInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	p, err := h.blog.CreatePost(c.UserContext(), q.AuthorID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *BlogRoutes) ListPosts(c *fiber.Ctx) error {
	q := postListQuery{Limit: 100}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	posts, err := h.blog.ListPosts(c.UserContext(), q.Skip, q.Limit, q.PublishedOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(posts)
}

// GetPost counts a view on every read.
func (h *BlogRoutes) GetPost(c *fiber.Ctx) error {
	id, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.blog.ViewPost(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

func (h *BlogRoutes) UpdatePost(c *fiber.Ctx) error {
	id, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	var in model.PostPatch
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	p, err := h.blog.UpdatePost(c.UserContext(), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

func (h *BlogRoutes) DeletePost(c *fiber.Ctx) error {
	id, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.blog.DeletePost(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

func (h *BlogRoutes) PostWithComments(c *fiber.Ctx) error {
	id, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.blog.PostWithComments(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

func (h *BlogRoutes) AddComment(c *fiber.Ctx) error {
	id, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	var q authorQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	var in model.CommentInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	cm, err := h.blog.AddComment(c.UserContext(), id, q.AuthorID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}

func (h *BlogRoutes) TagPost(c *fiber.Ctx) error {
	postID, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	tagID, err := paramInt(c, "tag_id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.blog.TagPost(c.UserContext(), postID, tagID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tag added to post successfully"})
}

func (h *BlogRoutes) CreateTag(c *fiber.Ctx) error {
	var in model.TagInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	t, err := h.blog.CreateTag(c.UserContext(), in.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *BlogRoutes) ListTags(c *fiber.Ctx) error {
	tags, err := h.blog.ListTags(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tags)
}

func (h *BlogRoutes) Stats(c *fiber.Ctx) error {
	s, err := h.blog.Stats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(s)
}

func (h *BlogRoutes) SearchUsers(c *fiber.Ctx) error {
	q := searchQuery{Limit: 20}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	users, err := h.users.Search(c.UserContext(), q.Q, q.Limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

func (h *BlogRoutes) SearchPosts(c *fiber.Ctx) error {
	q := searchQuery{Limit: 20}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	posts, err := h.blog.SearchPosts(c.UserContext(), q.Q, q.PublishedOnly, q.Limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(posts)
}
