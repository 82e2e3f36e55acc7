package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
	"apicourse/internal/service"
)

type itemSearchQuery struct {
	Name     string   `query:"name"`
	MinPrice *float64 `query:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *float64 `query:"max_price" validate:"omitempty,gte=0"`
	Tags     string   `query:"tags"`
}

var statusMessages = map[int]string{
	200: "OK - Request successful",
	201: "Created - Resource created successfully",
	204: "No Content - Request successful, no response body",
	400: "Bad Request - Invalid request syntax",
	401: "Unauthorized - Authentication required",
	403: "Forbidden - Access denied",
	404: "Not Found - Resource not found",
	500: "Internal Server Error - Server error",
}

// ItemRoutes exposes an ItemStore over the standard HTTP verbs.
type ItemRoutes struct {
	store *service.ItemStore
}

func NewItemRoutes(store *service.ItemStore) *ItemRoutes {
	return &ItemRoutes{store: store}
}

func registerMethods(r fiber.Router, _ *Deps) error {
	h := NewItemRoutes(service.NewItemStore())
	r.Get("/", h.Root)
	r.Get("/items", h.List)
	// Registered before /items/:item_id so "search" is not read as an id.
	r.Get("/items/search", h.Search)
	r.Get("/items/:item_id", h.Get)
	r.Post("/items", h.Create)
	r.Put("/items/:item_id", h.Replace)
	r.Patch("/items/:item_id", h.Patch)
	r.Delete("/items/:item_id", h.Delete)
	r.Get("/status-demo/:code", StatusDemo)
	return nil
}

func (h *ItemRoutes) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome to the HTTP methods demo",
		"available_endpoints": fiber.Map{
			"GET /items":             "Get all items",
			"GET /items/:item_id":    "Get specific item",
			"POST /items":            "Create new item",
			"PUT /items/:item_id":    "Update entire item",
			"PATCH /items/:item_id":  "Partially update item",
			"DELETE /items/:item_id": "Delete item",
		},
	})
}

func (h *ItemRoutes) List(c *fiber.Ctx) error {
	return c.JSON(h.store.List())
}

func (h *ItemRoutes) Get(c *fiber.Ctx) error {
	id, err := paramInt(c, "item_id")
	if err != nil {
		return fail(c, err)
	}
	it, err := h.store.Get(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(it)
}

func (h *ItemRoutes) Create(c *fiber.Ctx) error {
	var in model.ItemInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.store.Create(in))
}

func (h *ItemRoutes) Replace(c *fiber.Ctx) error {
	id, err := paramInt(c, "item_id")
	if err != nil {
		return fail(c, err)
	}
	var in model.ItemInput
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	it, err := h.store.Replace(id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(it)
}

func (h *ItemRoutes) Patch(c *fiber.Ctx) error {
	id, err := paramInt(c, "item_id")
	if err != nil {
		return fail(c, err)
	}
	var p model.ItemPatch
	if err := bindBody(c, &p); err != nil {
		return fail(c, err)
	}
	it, err := h.store.Patch(id, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(it)
}

func (h *ItemRoutes) Delete(c *fiber.Ctx) error {
	id, err := paramInt(c, "item_id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.store.Delete(id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ItemRoutes) Search(c *fiber.Ctx) error {
	var q itemSearchQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	items := h.store.Search(service.ItemSearch{
		Name:     q.Name,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Tags:     queryList(c, "tags"),
	})
	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
		"filters_applied": fiber.Map{
			"name":      nilIfEmpty(q.Name),
			"min_price": q.MinPrice,
			"max_price": q.MaxPrice,
			"tags":      nilIfEmpty(q.Tags),
		},
	})
}

// StatusDemo answers with the requested status: a JSON body for successes, an error otherwise.
func StatusDemo(c *fiber.Ctx) error {
	code, err := paramInt(c, "code")
	if err != nil {
		return fail(c, err)
	}
	msg, ok := statusMessages[int(code)]
	if !ok {
		return fail(c, apperr.BadRequest("UNSUPPORTED_STATUS", fmt.Sprintf("status code %d not supported in this demo", code)))
	}
	if code >= 400 {
		return fail(c, apperr.New(int(code), statusCode(int(code)), msg))
	}
	return c.JSON(fiber.Map{
		"status_code": code,
		"message":     msg,
		"timestamp":   time.Now().UTC(),
	})
}

// statusCode turns a status into an error code, e.g. 404 into NOT_FOUND.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
