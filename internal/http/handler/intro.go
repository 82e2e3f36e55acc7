package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type helloQuery struct {
	Name string `query:"name"`
	Age  *int   `query:"age" validate:"omitempty,gte=0"`
}

func registerIntro(r fiber.Router, d *Deps) error {
	r.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"Hello": "World"})
	})

	r.Get("/items/:item_id", func(c *fiber.Ctx) error {
		id, err := paramInt(c, "item_id")
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"item_id": id, "message": fmt.Sprintf("This is item number %d", id)})
	})

	r.Get("/hello", func(c *fiber.Ctx) error {
		var q helloQuery
		if err := bindQuery(c, &q); err != nil {
			return fail(c, err)
		}
		if q.Name == "" {
			q.Name = "World"
		}
		res := fiber.Map{"greeting": "Hello, " + q.Name + "!"}
		if q.Age != nil {
			res["age"] = *q.Age
			res["message"] = fmt.Sprintf("%s is %d years old", q.Name, *q.Age)
		}
		return c.JSON(res)
	})

	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": d.Config.AppName,
			"version": d.Config.Version,
		})
	})
	return nil
}
