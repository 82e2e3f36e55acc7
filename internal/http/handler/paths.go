package handler

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
)

var pathUsers = map[int64]fiber.Map{
	1: {"name": "Alice", "email": "alice@example.com", "age": 30},
	2: {"name": "Bob", "email": "bob@example.com", "age": 25},
	3: {"name": "Charlie", "email": "charlie@example.com", "age": 35},
}

var modelInfo = map[string]fiber.Map{
	"alexnet": {"description": "AlexNet CNN model", "params": "60M"},
	"resnet":  {"description": "ResNet deep residual model", "params": "25M"},
	"lenet":   {"description": "LeNet classic CNN", "params": "60K"},
}

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type userPostParams struct {
	UserID int64 `params:"user_id" validate:"gt=0"`
	PostID int64 `params:"post_id" validate:"gt=0,lte=1000"`
}

type modelParams struct {
	Name string `params:"model_name" validate:"oneof=alexnet resnet lenet"`
}

type profileParams struct {
	UserID int64 `params:"user_id" validate:"gt=0"`
}

type profileQuery struct {
	IncludePosts    bool `query:"include_posts"`
	IncludeComments bool `query:"include_comments"`
}

type orderItemParams struct {
	OrderID string `params:"order_id" validate:"min=8,max=12,orderid"`
	ItemID  int64  `params:"item_id" validate:"gte=1,lte=100"`
}

type versionedPostParams struct {
	Version  string `params:"version" validate:"oneof=v1 v2 v3"`
	Username string `params:"username" validate:"min=3,max=20"`
	Slug     string `params:"slug" validate:"slug"`
}

func registerPaths(r fiber.Router, _ *Deps) error {
	r.Get("/", pathsIndex)
	r.Get("/users/:user_id", pathUser)
	r.Get("/users/:user_id/posts/:post_id", pathUserPost)
	r.Get("/users/:user_id/profile", pathUserProfile)
	r.Get("/files/*", pathFile)
	r.Get("/models/:model_name", pathModel)
	r.Get("/orders/:order_id/items/:item_id", pathOrderItem)
	r.Get("/dates/:date", pathDate)
	r.Get("/api/:version/users/:username/posts/:slug", pathVersionedPost)
	return nil
}

func pathsIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Path parameters",
		"examples": fiber.Map{
			"basic":      "/users/1",
			"validation": "/users/1/posts/5",
			"file_path":  "/files/docs/readme.txt",
			"enum":       "/models/alexnet",
			"mixed":      "/users/1/profile?include_posts=true",
			"advanced":   "/orders/ORD12345/items/5",
			"date":       "/dates/2023-12-25",
			"complex":    "/api/v2/users/alice/posts/my-first-post",
		},
	})
}

func pathUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	u, ok := pathUsers[id]
	if !ok {
		return fail(c, apperr.NotFound("user", id))
	}
	return c.JSON(fiber.Map{"user_id": id, "user": u, "type_info": "user_id is of type int64"})
}

func pathUserPost(c *fiber.Ctx) error {
	var p userPostParams
	if err := bindParams(c, &p); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":           p.UserID,
		"post_id":           p.PostID,
		"post":              fmt.Sprintf("Post %d by user %d", p.PostID, p.UserID),
		"validation_passed": true,
	})
}

func pathUserProfile(c *fiber.Ctx) error {
	var p profileParams
	if err := bindParams(c, &p); err != nil {
		return fail(c, err)
	}
	var q profileQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	u, ok := pathUsers[p.UserID]
	if !ok {
		return fail(c, apperr.NotFound("user", p.UserID))
	}
	res := fiber.Map{"user_id": p.UserID, "profile": u}
	if q.IncludePosts {
		posts := make([]string, 0, 3)
		for i := 1; i <= 3; i++ {
			posts = append(posts, fmt.Sprintf("Post %d by user %d", i, p.UserID))
		}
		res["posts"] = posts
	}
	if q.IncludeComments {
		comments := make([]string, 0, 5)
		for i := 1; i <= 5; i++ {
			comments = append(comments, fmt.Sprintf("Comment %d by user %d", i, p.UserID))
		}
		res["comments"] = comments
	}
	return c.JSON(res)
}

func pathFile(c *fiber.Ctx) error {
	fp := c.Params("*")
	var ext any
	if e := path.Ext(fp); e != "" {
		ext = strings.TrimPrefix(e, ".")
	}
	return c.JSON(fiber.Map{
		"file_path": fp,
		"segments":  strings.Split(fp, "/"),
		"filename":  path.Base(fp),
		"extension": ext,
	})
}

func pathModel(c *fiber.Ctx) error {
	var p modelParams
	if err := bindParams(c, &p); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"model_name":       p.Name,
		"model_info":       modelInfo[p.Name],
		"available_models": []string{"alexnet", "resnet", "lenet"},
	})
}

func pathOrderItem(c *fiber.Ctx) error {
	var p orderItemParams
	if err := bindParams(c, &p); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"order_id": p.OrderID,
		"item_id":  p.ItemID,
		"item":     fmt.Sprintf("Item %d from order %s", p.ItemID, p.OrderID),
		"validation_info": fiber.Map{
			"order_id_format": "ORD + numbers",
			"item_id_range":   "1-100",
		},
	})
}

// pathDate rejects malformed input with 422 and well-formed but impossible dates with 400.
func pathDate(c *fiber.Ctx) error {
	raw := c.Params("date")
	if !dateShape.MatchString(raw) {
		return fail(c, apperr.Validation(apperr.Detail{
			Field: "date", Message: "must match YYYY-MM-DD", Code: "pattern", Value: raw,
		}))
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fail(c, apperr.BadRequest("INVALID_DATE", "invalid date: "+raw))
	}
	wd := d.Weekday()
	return c.JSON(fiber.Map{
		"input_date":  raw,
		"parsed_date": d.Format("2006-01-02T15:04:05"),
		"day_of_week": wd.String(),
		"day_of_year": d.YearDay(),
		"is_weekend":  wd == time.Saturday || wd == time.Sunday,
		"month_name":  d.Month().String(),
	})
}

func pathVersionedPost(c *fiber.Ctx) error {
	var p versionedPostParams
	if err := bindParams(c, &p); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"api_version": p.Version,
		"username":    p.Username,
		"post_slug":   p.Slug,
		"post_title":  titleCase(strings.ReplaceAll(p.Slug, "-", " ")),
		"full_path":   fmt.Sprintf("/api/%s/users/%s/posts/%s", p.Version, p.Username, p.Slug),
	})
}

// titleCase upper-cases the first letter of every space separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
