package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/FlexQR/config"
	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
	"github.com/sifan077/FlexQR/internal/app/service"
	inthttp "github.com/sifan077/FlexQR/internal/http/handler"
	"github.com/sifan077/FlexQR/internal/http/middleware"
	httpUtil "github.com/sifan077/FlexQR/internal/http/util"
	"github.com/sifan077/FlexQR/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger  *zap.Logger
	Config  *config.Config
	Backend *Backend
	// Redis enables rate limiting on the scan routes when set.
	Redis *redis.Client
	// JetStream receives scan events when the scan sink is "stream".
	JetStream  nats.JetStreamContext
	Metrics    *prometheus.Metrics
	ShortCodes *service.ShortCodeGenerator
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ShortCodes == nil {
		deps.ShortCodes = service.NewShortCodeGenerator(deps.Config.Redirect.CodeLength, 0)
	}

	app := fiber.New(fiber.Config{
		AppName:      "FlexQR",
		ErrorHandler: errorHandler,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	cfg := s.deps.Config
	log := s.deps.Logger

	s.app.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(),
	)

	tokens := httpUtil.NewTokenSigner([]byte(cfg.Server.TokenSecret), cfg.Server.TokenTTLDuration())
	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:    log,
		QrCodes:   service.NewQrCodeService(s.deps.Backend.QrCodes, s.deps.ShortCodes),
		Analytics: service.NewAnalyticsService(s.deps.Backend.Scans, s.deps.Backend.Stats),
		BaseURL:   cfg.Server.BaseURL,
		Auth:      middleware.RequireBearer(tokens),
	})
	apiHandler.Register(s.app)

	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger: log,
		Redirects: service.NewRedirectService(s.redirectStore(), service.RedirectOptions{
			Logger:        log,
			InsertTimeout: cfg.Redirect.InsertTimeoutDuration(),
		}),
		Metrics: s.deps.Metrics,
	})
	redirectHandler.Register(s.app, s.scanMiddleware()...)
}

func (s *Server) redirectStore() repository.RedirectStore {
	store := repository.NewRedirectStore(s.deps.Backend.QrCodes, s.deps.Backend.Scans)
	if s.deps.Config.Redirect.ScanSink == config.ScanSinkStream && s.deps.JetStream != nil {
		return service.NewStreamingRedirectStore(store, service.NewScanPublisher(s.deps.JetStream))
	}
	return store
}

func (s *Server) scanMiddleware() []fiber.Handler {
	if s.deps.Redis == nil {
		return nil
	}

	rl := s.deps.Config.RateLimit
	limitCfg := middleware.DefaultRateLimitConfig()
	if rl.MaxRequests > 0 {
		limitCfg.MaxRequests = rl.MaxRequests
	}
	if window := rl.WindowDuration(); window > 0 {
		limitCfg.Window = window
	}
	limitCfg.KeyFunc = clientKey

	return []fiber.Handler{middleware.RateLimit(s.deps.Redis, limitCfg, s.deps.Logger)}
}

func clientKey(c *fiber.Ctx) string {
	ip := service.ClientIP(c.Get(fiber.HeaderXForwardedFor), c.Get("X-Real-IP"))
	if ip == model.Unknown {
		return c.IP()
	}
	return ip
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second
