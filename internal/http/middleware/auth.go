package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	httpUtil "github.com/sifan077/FlexQR/internal/http/util"
)

// OwnerIDLocal is the fiber local holding the authenticated owner id.
const OwnerIDLocal = "owner_id"

// RequireBearer rejects requests without a valid bearer token and stores the
// token subject under OwnerIDLocal.
func RequireBearer(tokens *httpUtil.TokenSigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		owner, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		c.Locals(OwnerIDLocal, owner)
		return c.Next()
	}
}

// OwnerID returns the owner set by RequireBearer, or "".
func OwnerID(c *fiber.Ctx) string {
	owner, _ := c.Locals(OwnerIDLocal).(string)
	return owner
}
