package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/auth"
	"apicourse/internal/model"
	"apicourse/internal/service"
	"apicourse/internal/validate"
)

const maxProfilePicture = 2 << 20

var profilePictureTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/gif": true}

type personInput struct {
	Name     string           `json:"name" validate:"required,max=100"`
	Email    string           `json:"email" validate:"required,email"`
	Age      *int             `json:"age" validate:"required,gte=0,lte=150"`
	IsActive *bool            `json:"is_active"`
	Role     model.PersonRole `json:"role" validate:"omitempty,oneof=admin user guest"`
	Bio      *string          `json:"bio" validate:"omitempty,max=500"`
	Password string           `json:"password" validate:"required,min=8,max=50"`
}

type personAddressInput struct {
	Name              string        `json:"name" validate:"required,max=100"`
	Email             string        `json:"email" validate:"required,email"`
	Age               *int          `json:"age" validate:"required,gte=0,lte=150"`
	Address           model.Address `json:"address" validate:"required"`
	EmergencyContacts []string      `json:"emergency_contacts"`
}

type articleInput struct {
	Title       string               `json:"title" validate:"required,min=1,max=200"`
	Content     model.ArticleContent `json:"content" validate:"required"`
	AuthorID    int64                `json:"author_id" validate:"required"`
	Tags        []string             `json:"tags"`
	Priority    model.Priority       `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	IsPublished bool                 `json:"is_published"`
	ScheduledAt *time.Time           `json:"scheduled_at" validate:"omitempty,future"`
}

type articleMetadataInput struct {
	Post            articleInput   `json:"post" validate:"required"`
	Metadata        map[string]any `json:"metadata"`
	NotifyFollowers *bool          `json:"notify_followers"`
}

type articleUpdateQuery struct {
	Notify bool   `query:"notify"`
	Reason string `query:"reason"`
}

type profileForm struct {
	Name  string `json:"name" form:"name" validate:"required"`
	Email string `json:"email" form:"email" validate:"required,email"`
	Age   int    `json:"age" form:"age" validate:"gte=0,lte=150"`
	Bio   string `json:"bio" form:"bio"`
}

// BodyRoutes demonstrates request body binding over an in-memory ProfileBook.
type BodyRoutes struct {
	book   *service.ProfileBook
	hasher *auth.Hasher
}

func NewBodyRoutes(book *service.ProfileBook, hasher *auth.Hasher) *BodyRoutes {
	return &BodyRoutes{book: book, hasher: hasher}
}

func registerBodies(r fiber.Router, d *Deps) error {
	h := NewBodyRoutes(service.NewProfileBook(), auth.NewHasher(d.Config.Auth.BcryptCost))
	r.Get("/users", h.ListPeople)
	r.Post("/users", h.CreatePerson)
	r.Post("/users-with-address", h.CreatePersonWithAddress)
	r.Put("/users/:user_id", h.ReplacePerson)
	r.Patch("/users/:user_id", h.PatchPerson)
	r.Get("/posts", h.ListArticles)
	r.Post("/posts", h.CreateArticle)
	r.Post("/posts-with-metadata", h.CreateArticleWithMetadata)
	r.Put("/users/:user_id/posts/:post_id", h.UpdateArticle)
	r.Post("/upload-profile", UploadProfile)
	return nil
}

// person validates in and turns it into a Person with a hashed password.
// The name is trimmed and title-cased.
func (h *BodyRoutes) person(in personInput) (model.Person, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Person{}, apperr.Validation(apperr.Detail{
			Field: "name", Message: "name cannot be empty", Code: "required",
		})
	}
	hash, err := h.hasher.Hash(in.Password)
	if err != nil {
		return model.Person{}, err
	}
	p := model.Person{
		Name:         titleCase(name),
		Email:        in.Email,
		Age:          *in.Age,
		IsActive:     true,
		Role:         in.Role,
		Bio:          in.Bio,
		PasswordHash: hash,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if p.Role == "" {
		p.Role = model.RoleUser
	}
	return p, nil
}

func (h *BodyRoutes) ListPeople(c *fiber.Ctx) error {
	return c.JSON(h.book.People())
}

func (h *BodyRoutes) CreatePerson(c *fiber.Ctx) error {
	var in personInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	p, err := h.person(in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.book.AddPerson(p))
}

func (h *BodyRoutes) CreatePersonWithAddress(c *fiber.Ctx) error {
	var in personAddressInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	if in.Address.Country == "" {
		in.Address.Country = "USA"
	}
	p := h.book.AddPerson(model.Person{
		Name:              titleCase(strings.TrimSpace(in.Name)),
		Email:             in.Email,
		Age:               *in.Age,
		IsActive:          true,
		Role:              model.RoleUser,
		Address:           &in.Address,
		EmergencyContacts: in.EmergencyContacts,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User with address created successfully",
		"user":    p,
	})
}

func (h *BodyRoutes) ReplacePerson(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	var in personInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	if _, err := h.book.Person(id); err != nil {
		return fail(c, err)
	}
	p, err := h.person(in)
	if err != nil {
		return fail(c, err)
	}
	p, err = h.book.ReplacePerson(id, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User updated successfully", "user": p})
}

func (h *BodyRoutes) PatchPerson(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	var patch model.PersonPatch
	if err := bindBody(c, &patch); err != nil {
		return fail(c, err)
	}
	if patch.Name != nil {
		name := titleCase(strings.TrimSpace(*patch.Name))
		patch.Name = &name
	}
	p, err := h.book.PatchPerson(id, patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User updated successfully", "user": p})
}

// checkContent enforces the shape rules that depend on the content type.
func checkContent(content model.ArticleContent) error {
	switch content.ContentType {
	case "text":
		if _, ok := content.Data.(string); !ok {
			return apperr.Validation(apperr.Detail{
				Field: "content.data", Message: "text content must be a string", Code: "type",
			})
		}
	case "link":
		if m, ok := content.Data.(map[string]any); ok {
			_, hasURL := m["url"]
			_, hasTitle := m["title"]
			if !hasURL || !hasTitle {
				return apperr.Validation(apperr.Detail{
					Field: "content.data", Message: "link content must have url and title", Code: "required",
				})
			}
		}
	}
	return nil
}

func (in articleInput) article() (model.Article, error) {
	if err := checkContent(in.Content); err != nil {
		return model.Article{}, err
	}
	a := model.Article{
		Title:       in.Title,
		Content:     in.Content,
		AuthorID:    in.AuthorID,
		Tags:        in.Tags,
		Priority:    in.Priority,
		IsPublished: in.IsPublished,
		ScheduledAt: in.ScheduledAt,
	}
	if a.Priority == "" {
		a.Priority = model.PriorityMedium
	}
	return a, nil
}

func (h *BodyRoutes) ListArticles(c *fiber.Ctx) error {
	return c.JSON(h.book.Articles())
}

func (h *BodyRoutes) CreateArticle(c *fiber.Ctx) error {
	var in articleInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	a, err := in.article()
	if err != nil {
		return fail(c, err)
	}
	a, err = h.book.AddArticle(a)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post created successfully", "post": a})
}

// CreateArticleWithMetadata takes the post nested next to extra top-level body fields.
func (h *BodyRoutes) CreateArticleWithMetadata(c *fiber.Ctx) error {
	var in articleMetadataInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	a, err := in.Post.article()
	if err != nil {
		return fail(c, err)
	}
	a.Metadata = in.Metadata
	a, err = h.book.AddArticle(a)
	if err != nil {
		return fail(c, err)
	}
	notify := in.NotifyFollowers == nil || *in.NotifyFollowers
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":           "Post created with metadata",
		"post":              a,
		"notification_sent": notify && a.IsPublished,
	})
}

// UpdateArticle mixes path parameters, query parameters and a body.
func (h *BodyRoutes) UpdateArticle(c *fiber.Ctx) error {
	userID, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	postID, err := paramInt(c, "post_id")
	if err != nil {
		return fail(c, err)
	}
	var q articleUpdateQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	var in articleInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	a, err := in.article()
	if err != nil {
		return fail(c, err)
	}
	a.AuthorID = userID
	a.UpdateReason = q.Reason
	a, err = h.book.UpdateArticle(userID, postID, a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":           "Post updated successfully",
		"post":              a,
		"notification_sent": q.Notify,
	})
}

// UploadProfile accepts multipart form fields alongside an image file.
func UploadProfile(c *fiber.Ctx) error {
	var f profileForm
	if err := c.BodyParser(&f); err != nil {
		return fail(c, apperr.BadRequest("INVALID_FORM", "form data is not valid"))
	}
	if err := validate.Struct(f); err != nil {
		return fail(c, err)
	}
	fh, err := c.FormFile("profile_picture")
	if err != nil {
		return fail(c, apperr.BadRequest("FILE_REQUIRED", "profile_picture is required"))
	}
	ct := fh.Header.Get(fiber.HeaderContentType)
	if !profilePictureTypes[ct] {
		return fail(c, apperr.BadRequest("INVALID_FILE_TYPE", "only JPEG, PNG and GIF are allowed"))
	}
	if fh.Size > maxProfilePicture {
		return fail(c, apperr.BadRequest("FILE_TOO_LARGE", "maximum size is 2MB"))
	}
	return c.JSON(fiber.Map{
		"message":   "Profile uploaded successfully",
		"user_data": f,
		"file_info": fiber.Map{
			"filename":     fh.Filename,
			"content_type": ct,
			"size":         fh.Size,
		},
	})
}
