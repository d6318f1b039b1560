package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/FlexQR/internal/app/service"
	"github.com/sifan077/FlexQR/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Plain-text bodies of the redirect endpoint.
const (
	msgInvalidCode  = "Invalid QR code"
	msgNotFound     = "QR code not found"
	msgLimitReached = "Scan limit reached"
)

// scanPrefix is the bare form of the /r/<...>/<code> scan URLs.
const scanPrefix = "/r"

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Redirects service.RedirectService
	Metrics   *prometheus.Metrics
}

// RedirectHandler turns scans of a short URL into redirects.
type RedirectHandler struct {
	logger    *zap.Logger
	redirects service.RedirectService
	metrics   *prometheus.Metrics
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		redirects: deps.Redirects,
		metrics:   deps.Metrics,
	}
}

// Register wires redirect routes onto the provided router. Extra handlers
// (rate limiting) run in front of the scan route only. The scan route is a
// catch-all and must be registered after every other GET route.
func (h *RedirectHandler) Register(router fiber.Router, scanMiddleware ...fiber.Handler) {
	router.Get("/health", h.Health)

	scanHandlers := make([]fiber.Handler, 0, len(scanMiddleware)+1)
	scanHandlers = append(scanHandlers, scanMiddleware...)
	scanHandlers = append(scanHandlers, h.Resolve)
	router.Get("/*", scanHandlers...)
}

// Health reports liveness.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "FlexQR",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles every other GET: the short code is the last segment of
// the raw request path, so "/", "/r/" and "/abc123/" carry no code.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	path := c.Path()
	code := service.ShortCodeFromPath(path)
	if path == scanPrefix {
		code = ""
	}

	out, err := h.redirects.Resolve(requestContext(c), service.ScanRequest{
		ShortCode:    code,
		ForwardedFor: c.Get(fiber.HeaderXForwardedFor),
		RealIP:       c.Get("X-Real-IP"),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
		Referer:      c.Get(fiber.HeaderReferer),
	})
	if err != nil {
		return h.writeError(c, path, err)
	}

	h.metrics.ObserveRedirect(prometheus.OutcomeRedirected)
	if out.ScanLogged {
		h.metrics.ObserveScanEvent("logged")
	} else {
		h.metrics.ObserveScanEvent("dropped")
	}

	h.logger.Debug("redirecting qr scan",
		zap.String("short_code", out.QrCode.ShortCode),
		zap.String("target", out.Location))
	return c.Redirect(out.Location, fiber.StatusFound)
}

func (h *RedirectHandler) writeError(c *fiber.Ctx, path string, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingShortCode):
		h.metrics.ObserveRedirect(prometheus.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).SendString(msgInvalidCode)
	case errors.Is(err, service.ErrQrCodeNotFound):
		h.metrics.ObserveRedirect(prometheus.OutcomeNotFound)
		return c.Status(fiber.StatusNotFound).SendString(msgNotFound)
	case errors.Is(err, service.ErrScanLimitReached):
		h.metrics.ObserveRedirect(prometheus.OutcomeLimitReached)
		return c.Status(fiber.StatusForbidden).SendString(msgLimitReached)
	default:
		h.metrics.ObserveRedirect(prometheus.OutcomeError)
		h.logger.Error("failed to resolve qr scan", zap.String("path", path), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
