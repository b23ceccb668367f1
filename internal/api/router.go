package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/facecheck-dev/facecheck/internal/api/docs"
	"github.com/facecheck-dev/facecheck/internal/api/handler"
	"github.com/facecheck-dev/facecheck/internal/api/middleware"
)

type Dependencies struct {
	FaceService  handler.FaceService
	MaxImageSize int64
	RateLimit    middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "FaceCheck API",
		BodyLimit:    int(deps.MaxImageSize) + 1024*1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
	r.app.Use(r.rateLimiter.Handler())

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	healthHandler := handler.NewHealthHandler()
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Gallery and recognition routes
	faceHandler := handler.NewFaceHandler(r.deps.FaceService, r.logger, r.deps.MaxImageSize)

	r.app.Get("/images", faceHandler.List)
	r.app.Get("/images/:filename", faceHandler.Serve)
	r.app.Delete("/images/:filename", faceHandler.Delete)
	r.app.Post("/upload", faceHandler.Upload)
	r.app.Post("/recognize", faceHandler.Recognize)
	r.app.Post("/compare", faceHandler.Compare)
	r.app.Post("/reload", faceHandler.Reload)
	r.app.Get("/registry", faceHandler.Registry)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	return r.app.Shutdown()
}
