package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ProcessTimeHeader carries the handler latency in seconds.
const ProcessTimeHeader = "X-Process-Time"

func Timing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		settle(c, c.Next())
		c.Set(ProcessTimeHeader, strconv.FormatFloat(time.Since(start).Seconds(), 'f', 6, 64))
		return nil
	}
}
