package handler

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/validate"
)

// bindBody decodes the request body into v and validates it.
// Malformed payloads are 400; well-formed payloads with wrong types or values are 422.
func bindBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperr.Validation(apperr.Detail{
				Field:   typeErr.Field,
				Message: "must be of type " + typeErr.Type.String(),
				Code:    "type",
				Value:   typeErr.Value,
			})
		}
		if errors.Is(err, fiber.ErrUnprocessableEntity) {
			return apperr.BadRequest("UNSUPPORTED_CONTENT_TYPE", "unsupported content type")
		}
		return apperr.BadRequest("INVALID_BODY", "request body is not valid")
	}
	return validate.Struct(v)
}

// bindQuery decodes query parameters into v (query struct tags) and validates it.
func bindQuery(c *fiber.Ctx, v any) error {
	if err := c.QueryParser(v); err != nil {
		return apperr.Validation(apperr.Detail{Message: err.Error(), Code: "type"})
	}
	return validate.Struct(v)
}

// bindParams decodes route parameters into v (params struct tags) and validates it.
func bindParams(c *fiber.Ctx, v any) error {
	if err := c.ParamsParser(v); err != nil {
		return apperr.Validation(apperr.Detail{Message: err.Error(), Code: "type"})
	}
	return validate.Struct(v)
}

// paramInt reads an integer route parameter.
func paramInt(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation(apperr.Detail{
			Field: name, Message: "must be a valid integer", Code: "int", Value: raw,
		})
	}
	return n, nil
}

// queryList reads a comma separated query value, dropping blanks.
func queryList(c *fiber.Ctx, name string) []string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// queryMulti reads every value of a repeated query parameter.
func queryMulti(c *fiber.Ctx, name string) []string {
	vals := c.Context().QueryArgs().PeekMulti(name)
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := strings.TrimSpace(string(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
