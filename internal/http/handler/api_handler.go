package handler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/service"
	"github.com/sifan077/FlexQR/internal/http/middleware"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var validate = validator.New()

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	QrCodes   service.QrCodeService
	Analytics service.AnalyticsService
	// BaseURL prefixes short codes in responses.
	BaseURL string
	// Auth guards every /api route.
	Auth fiber.Handler
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger    *zap.Logger
	qrCodes   service.QrCodeService
	analytics service.AnalyticsService
	baseURL   string
	auth      fiber.Handler
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		qrCodes:   deps.QrCodes,
		analytics: deps.Analytics,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		auth:      deps.Auth,
	}
}

// Register wires API routes onto the provided router. Auth runs per route;
// a middleware on the "/api" prefix would also catch scans of codes like "apiary".
func (h *APIHandler) Register(router fiber.Router) {
	guard := func(handler fiber.Handler) []fiber.Handler {
		if h.auth == nil {
			return []fiber.Handler{handler}
		}
		return []fiber.Handler{h.auth, handler}
	}

	codes := router.Group("/api/qr-codes")
	{
		codes.Post("/", guard(h.CreateQrCode)...)
		codes.Get("/", guard(h.ListQrCodes)...)
		codes.Get("/:id", guard(h.GetQrCode)...)
		codes.Patch("/:id", guard(h.UpdateQrCode)...)
		codes.Get("/:id/scans", guard(h.ListScans)...)
		codes.Get("/:id/analytics", guard(h.GetAnalytics)...)
	}
}

// CampaignPayload is the UTM attribution tuple of a QR code.
type CampaignPayload struct {
	Source  string `json:"source" validate:"max=255"`
	Medium  string `json:"medium" validate:"max=255"`
	Name    string `json:"name" validate:"max=255"`
	Term    string `json:"term" validate:"max=255"`
	Content string `json:"content" validate:"max=255"`
}

// StylePayload carries the opaque rendering tokens of a QR code.
type StylePayload struct {
	CustomPattern string `json:"custom_pattern" validate:"omitempty,hexcolor"`
	ShapeStyle    string `json:"shape_style" validate:"max=64"`
	BorderStyle   string `json:"border_style" validate:"max=64"`
	CenterStyle   string `json:"center_style" validate:"max=64"`
}

// CreateQrCodeRequest represents the request body for creating a QR code.
type CreateQrCodeRequest struct {
	Name           string          `json:"name,omitempty" validate:"max=255"`
	ShortCode      string          `json:"short_code,omitempty" validate:"omitempty,min=3,max=32"`
	DestinationURL string          `json:"destination_url" validate:"required,url"`
	ScanLimit      *int            `json:"scan_limit,omitempty" validate:"omitempty,min=1"`
	Campaign       CampaignPayload `json:"campaign"`
	Style          StylePayload    `json:"style"`
}

// UpdateQrCodeRequest represents the request body for updating a QR code.
// The short code cannot be changed.
type UpdateQrCodeRequest struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	DestinationURL *string          `json:"destination_url,omitempty" validate:"omitempty,url"`
	ScanLimit      *int             `json:"scan_limit,omitempty" validate:"omitempty,min=1"`
	ClearScanLimit bool             `json:"clear_scan_limit,omitempty"`
	Campaign       *CampaignPayload `json:"campaign,omitempty"`
	Style          *StylePayload    `json:"style,omitempty"`
}

// QrCodeResponse represents a QR code in API responses.
type QrCodeResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ShortCode      string          `json:"short_code"`
	ShortURL       string          `json:"short_url"`
	DestinationURL string          `json:"destination_url"`
	ScanLimit      *int            `json:"scan_limit"`
	Campaign       CampaignPayload `json:"campaign"`
	Style          StylePayload    `json:"style"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateQrCode handles POST /api/qr-codes
func (h *APIHandler) CreateQrCode(c *fiber.Ctx) error {
	var req CreateQrCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := validateRequest(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	qr, err := h.qrCodes.CreateQrCode(requestContext(c), service.CreateQrCodeInput{
		OwnerID:        middleware.OwnerID(c),
		Name:           req.Name,
		ShortCode:      req.ShortCode,
		DestinationURL: req.DestinationURL,
		ScanLimit:      req.ScanLimit,
		Campaign:       req.Campaign.toModel(),
		Style:          req.Style.toModel(),
	})
	if err != nil {
		return h.writeServiceError(c, "create qr code", err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.toResponse(qr))
}

// ListQrCodes handles GET /api/qr-codes
func (h *APIHandler) ListQrCodes(c *fiber.Ctx) error {
	limit, offset := pagination(c)

	codes, err := h.qrCodes.ListQrCodes(requestContext(c), middleware.OwnerID(c), limit, offset)
	if err != nil {
		return h.writeServiceError(c, "list qr codes", err)
	}

	response := make([]QrCodeResponse, len(codes))
	for i := range codes {
		response[i] = h.toResponse(&codes[i])
	}

	return c.JSON(fiber.Map{
		"qr_codes": response,
		"limit":    limit,
		"offset":   offset,
		"count":    len(response),
	})
}

// GetQrCode handles GET /api/qr-codes/:id
func (h *APIHandler) GetQrCode(c *fiber.Ctx) error {
	qr, err := h.qrCodes.GetQrCode(requestContext(c), middleware.OwnerID(c), c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, "get qr code", err)
	}
	return c.JSON(h.toResponse(qr))
}

// UpdateQrCode handles PATCH /api/qr-codes/:id
func (h *APIHandler) UpdateQrCode(c *fiber.Ctx) error {
	var req UpdateQrCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := validateRequest(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	input := service.UpdateQrCodeInput{
		Name:           req.Name,
		DestinationURL: req.DestinationURL,
		ScanLimit:      req.ScanLimit,
		ClearScanLimit: req.ClearScanLimit,
	}
	if req.Campaign != nil {
		campaign := req.Campaign.toModel()
		input.Campaign = &campaign
	}
	if req.Style != nil {
		style := req.Style.toModel()
		input.Style = &style
	}

	qr, err := h.qrCodes.UpdateQrCode(requestContext(c), middleware.OwnerID(c), c.Params("id"), input)
	if err != nil {
		return h.writeServiceError(c, "update qr code", err)
	}
	return c.JSON(h.toResponse(qr))
}

// ListScans handles GET /api/qr-codes/:id/scans
func (h *APIHandler) ListScans(c *fiber.Ctx) error {
	ctx := requestContext(c)
	qr, err := h.qrCodes.GetQrCode(ctx, middleware.OwnerID(c), c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, "get qr code", err)
	}

	limit, offset := pagination(c)
	scans, err := h.analytics.Scans(ctx, qr.ID, limit, offset)
	if err != nil {
		return h.writeServiceError(c, "list scans", err)
	}

	return c.JSON(fiber.Map{
		"scans":  scans,
		"limit":  limit,
		"offset": offset,
		"count":  len(scans),
	})
}

// GetAnalytics handles GET /api/qr-codes/:id/analytics
func (h *APIHandler) GetAnalytics(c *fiber.Ctx) error {
	ctx := requestContext(c)
	qr, err := h.qrCodes.GetQrCode(ctx, middleware.OwnerID(c), c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, "get qr code", err)
	}

	summary, err := h.analytics.Summary(ctx, qr)
	if err != nil {
		return h.writeServiceError(c, "scan summary", err)
	}
	return c.JSON(summary)
}

func (h *APIHandler) writeServiceError(c *fiber.Ctx, op string, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"
	switch {
	case errors.Is(err, service.ErrQrCodeNotFound):
		status, message = fiber.StatusNotFound, "qr code not found"
	case errors.Is(err, service.ErrShortCodeTaken):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidShortCode), errors.Is(err, service.ErrInvalidDestination):
		status, message = fiber.StatusBadRequest, err.Error()
	default:
		h.logger.Error("api request failed", zap.String("op", op), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (h *APIHandler) toResponse(qr *model.QrCode) QrCodeResponse {
	return QrCodeResponse{
		ID:             qr.ID,
		Name:           qr.Name,
		ShortCode:      qr.ShortCode,
		ShortURL:       h.baseURL + "/" + qr.ShortCode,
		DestinationURL: qr.DestinationURL,
		ScanLimit:      qr.ScanLimit,
		Campaign: CampaignPayload{
			Source:  qr.Campaign.Source,
			Medium:  qr.Campaign.Medium,
			Name:    qr.Campaign.Name,
			Term:    qr.Campaign.Term,
			Content: qr.Campaign.Content,
		},
		Style: StylePayload{
			CustomPattern: qr.Style.CustomPattern,
			ShapeStyle:    qr.Style.ShapeStyle,
			BorderStyle:   qr.Style.BorderStyle,
			CenterStyle:   qr.Style.CenterStyle,
		},
		CreatedAt: qr.CreatedAt,
		UpdatedAt: qr.UpdatedAt,
	}
}

func (p CampaignPayload) toModel() model.Campaign {
	return model.Campaign{
		Source:  p.Source,
		Medium:  p.Medium,
		Name:    p.Name,
		Term:    p.Term,
		Content: p.Content,
	}
}

func (p StylePayload) toModel() model.Style {
	return model.Style{
		CustomPattern: p.CustomPattern,
		ShapeStyle:    p.ShapeStyle,
		BorderStyle:   p.BorderStyle,
		CenterStyle:   p.CenterStyle,
	}
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = defaultPageSize
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= maxPageSize {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}
	return limit, offset
}

// validateRequest runs struct validation and flattens the failures into one error.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, fmt.Sprintf("%s: %s", fieldError.Namespace(), fieldError.Tag()))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(messages, ", "))
	}
	return err
}
