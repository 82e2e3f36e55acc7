package handler

import (
	"bufio"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/model"
	"apicourse/internal/service"
)

// UserResponse is the public shape of a person.
type UserResponse struct {
	ID        int64              `json:"id" xml:"id"`
	Name      string             `json:"name" xml:"name"`
	Email     string             `json:"email" xml:"email"`
	Status    model.PersonStatus `json:"status" xml:"status"`
	CreatedAt time.Time          `json:"created_at" xml:"created_at"`
	LastLogin *time.Time         `json:"last_login" xml:"last_login,omitempty"`
}

type userCreateRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone"`
}

// UserCreateResponse is returned on creation. It never carries the password.
type UserCreateResponse struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Status    model.PersonStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	Message   string             `json:"message"`
}

// UserDetailResponse adds the nested address and preferences.
type UserDetailResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Status      model.PersonStatus `json:"status"`
	Address     *model.Address     `json:"address"`
	Preferences map[string]any     `json:"preferences"`
	Tags        []string           `json:"tags"`
}

// PaginationInfo describes one page of users.
type PaginationInfo struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type PaginatedUsersResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination PaginationInfo `json:"pagination"`
}

// APIResponse is the generic success/failure wrapper.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type userPageQuery struct {
	Page     int `query:"page" validate:"gte=1"`
	PageSize int `query:"page_size" validate:"gte=1,lte=100"`
}

type exportQuery struct {
	Format string `query:"format" validate:"oneof=json csv xml text"`
}

func toUserResponse(p model.Person) UserResponse {
	return UserResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		LastLogin: p.LastLogin,
	}
}

// ResponseRoutes shapes the same people into different response models.
type ResponseRoutes struct {
	book *service.ProfileBook
}

func NewResponseRoutes(book *service.ProfileBook) *ResponseRoutes {
	return &ResponseRoutes{book: book}
}

func registerResponses(r fiber.Router, _ *Deps) error {
	h := NewResponseRoutes(service.NewSeededProfileBook())
	r.Get("/users", h.List)
	r.Post("/users", h.Create)
	r.Get("/users/export/csv", h.ExportCSV)
	r.Get("/users/:user_id", h.Get)
	r.Get("/users/:user_id/details", h.Details)
	r.Get("/users/:user_id/status", h.Status)
	r.Get("/users/:user_id/public", h.Public)
	r.Get("/users/:user_id/summary", h.Summary)
	r.Get("/users/:user_id/export", h.Export)
	r.Get("/users/:user_id/profile", h.Profile)
	r.Get("/users/:user_id/data", h.Data)
	return nil
}

func (h *ResponseRoutes) person(c *fiber.Ctx) (model.Person, error) {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return model.Person{}, err
	}
	return h.book.Person(id)
}

func (h *ResponseRoutes) Get(c *fiber.Ctx) error {
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(toUserResponse(p))
}

func (h *ResponseRoutes) Create(c *fiber.Ctx) error {
	var in userCreateRequest
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	p := h.book.AddPerson(model.Person{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		IsActive: true,
		Role:     model.RoleUser,
	})
	return c.Status(fiber.StatusCreated).JSON(UserCreateResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		Message:   "User created successfully",
	})
}

func (h *ResponseRoutes) Details(c *fiber.Ctx) error {
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	res := UserDetailResponse{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Status:      p.Status,
		Address:     p.Address,
		Preferences: p.Preferences,
		Tags:        p.Tags,
	}
	if res.Preferences == nil {
		res.Preferences = map[string]any{}
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}
	return c.JSON(res)
}

func (h *ResponseRoutes) List(c *fiber.Ctx) error {
	q := userPageQuery{Page: 1, PageSize: 10}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	people, info := service.Paginate(h.book.People(), q.Page, q.PageSize)
	users := make([]UserResponse, 0, len(people))
	for _, p := range people {
		users = append(users, toUserResponse(p))
	}
	return c.JSON(PaginatedUsersResponse{
		Users: users,
		Pagination: PaginationInfo{
			Page:        info.Page,
			PageSize:    info.Size,
			TotalItems:  info.TotalItems,
			TotalPages:  info.TotalPages,
			HasNext:     info.HasNext,
			HasPrevious: info.HasPrevious,
		},
	})
}

// Status answers with an APIResponse body for the 404 and 403 cases.
func (h *ResponseRoutes) Status(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.book.Person(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(APIResponse{
			Message:   "User not found",
			Errors:    []string{"User with specified ID does not exist"},
			Timestamp: time.Now().UTC(),
		})
	}
	if p.Status == model.StatusSuspended && !c.QueryBool("admin_access") {
		return c.Status(fiber.StatusForbidden).JSON(APIResponse{
			Message:   "Access denied",
			Errors:    []string{"User account is suspended"},
			Timestamp: time.Now().UTC(),
		})
	}
	return c.JSON(toUserResponse(p))
}

func (h *ResponseRoutes) Public(c *fiber.Ctx) error {
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"id":         p.ID,
		"name":       p.Name,
		"email":      p.Email,
		"status":     p.Status,
		"created_at": p.CreatedAt,
	})
}

func (h *ResponseRoutes) Summary(c *fiber.Ctx) error {
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": p.ID, "name": p.Name, "email": p.Email, "status": p.Status})
}

type xmlUser struct {
	XMLName xml.Name `xml:"user"`
	UserResponse
}

// Export renders one user as json, csv, xml or plain text.
func (h *ResponseRoutes) Export(c *fiber.Ctx) error {
	q := exportQuery{Format: "json"}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	u := toUserResponse(p)
	switch q.Format {
	case "xml":
		out, err := xml.MarshalIndent(xmlUser{UserResponse: u}, "", "    ")
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
		return c.Send(append([]byte(xml.Header), out...))
	case "csv":
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Attachment(fmt.Sprintf("user_%d.csv", u.ID))
		return writeUsersCSV(c, []model.Person{p})
	case "text":
		return c.SendString(fmt.Sprintf("User Information\nID: %d\nName: %s\nEmail: %s\nStatus: %s\nCreated: %s",
			u.ID, u.Name, u.Email, u.Status, u.CreatedAt.Format(time.RFC3339)))
	}
	return c.JSON(u)
}

// Profile adds custom headers and a cookie to the response.
func (h *ResponseRoutes) Profile(c *fiber.Ctx) error {
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	c.Set("X-User-ID", strconv.FormatInt(p.ID, 10))
	c.Set("X-Request-Time", time.Now().UTC().Format(time.RFC3339))
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	c.Cookie(&fiber.Cookie{
		Name:     "last_viewed_user",
		Value:    strconv.FormatInt(p.ID, 10),
		MaxAge:   3600,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(toUserResponse(p))
}

// ExportCSV streams every user as a CSV attachment.
func (h *ResponseRoutes) ExportCSV(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment("users.csv")
	people := h.book.People()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = csvRows(w, people)
	})
	return nil
}

func writeUsersCSV(c *fiber.Ctx, people []model.Person) error {
	w := bufio.NewWriter(c.Response().BodyWriter())
	if err := csvRows(w, people); err != nil {
		return fail(c, err)
	}
	return nil
}

func csvRows(w *bufio.Writer, people []model.Person) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "email", "status", "created_at"}); err != nil {
		return err
	}
	for _, p := range people {
		row := []string{strconv.FormatInt(p.ID, 10), p.Name, p.Email, string(p.Status), p.CreatedAt.Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return w.Flush()
}

// Data wraps the user in an APIResponse. Sensitive fields are only included on request.
func (h *ResponseRoutes) Data(c *fiber.Ctx) error {
	p, err := h.person(c)
	if err != nil {
		return fail(c, err)
	}
	if c.QueryBool("include_sensitive") {
		c.Set("X-Response-Type", "detailed")
		return c.JSON(APIResponse{
			Success:   true,
			Message:   "detailed user data",
			Data:      p,
			Timestamp: time.Now().UTC(),
		})
	}
	c.Set("X-Response-Type", "basic")
	return c.JSON(APIResponse{
		Success:   true,
		Message:   "basic user data",
		Data:      toUserResponse(p),
		Timestamp: time.Now().UTC(),
	})
}
