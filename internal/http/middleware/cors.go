package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig lists the values sent in the Access-Control-* headers.
type CORSConfig struct {
	AllowOrigin   string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAgeSeconds int
}

// DefaultCORSConfig allows any origin and the headers browser clients of the
// dashboard send (authorization, x-client-info, apikey, content-type).
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:   "*",
		AllowMethods:  []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPatch, fiber.MethodOptions},
		AllowHeaders:  []string{"authorization", "x-client-info", "apikey", "content-type"},
		ExposeHeaders: []string{fiber.HeaderContentLength, fiber.HeaderContentType, fiber.HeaderLocation},
		MaxAgeSeconds: 86400,
	}
}

// CORS sets the headers on every response, errors included, and answers
// preflight requests with an empty 200.
func CORS(cfg ...CORSConfig) fiber.Handler {
	conf := DefaultCORSConfig()
	if len(cfg) > 0 {
		conf = cfg[0]
	}

	headers := [][2]string{
		{fiber.HeaderAccessControlAllowOrigin, conf.AllowOrigin},
		{fiber.HeaderAccessControlAllowMethods, strings.Join(conf.AllowMethods, ", ")},
		{fiber.HeaderAccessControlAllowHeaders, strings.Join(conf.AllowHeaders, ", ")},
		{fiber.HeaderAccessControlExposeHeaders, strings.Join(conf.ExposeHeaders, ", ")},
	}
	if conf.MaxAgeSeconds > 0 {
		headers = append(headers, [2]string{fiber.HeaderAccessControlMaxAge, strconv.Itoa(conf.MaxAgeSeconds)})
	}

	return func(c *fiber.Ctx) error {
		for _, h := range headers {
			if h[1] != "" {
				c.Set(h[0], h[1])
			}
		}

		if c.Method() == fiber.MethodOptions {
			return c.Status(fiber.StatusOK).Send(nil)
		}
		return c.Next()
	}
}
