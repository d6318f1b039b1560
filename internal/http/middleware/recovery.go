package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Recovery turns a panic in a later handler into a 500 {"error": message}.
func Recovery(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			message := fmt.Sprint(r)
			logger.Error("panic recovered", append(requestFields(c),
				zap.String("panic", message),
				zap.ByteString("stack", debug.Stack()),
			)...)

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
		}()

		return c.Next()
	}
}
