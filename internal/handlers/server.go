package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Deps wires the services the HTTP layer calls into.
type Deps struct {
	Orders       *services.OrderService
	Coupons      *services.CouponService
	Products     *services.ProductService
	Fulfillment  *services.FulfillmentService
	Verifier     *services.PaymentVerifier
	Sessions     middleware.SessionVerifier
	CarrierToken string
	// Health reports dependency status; nil means always healthy.
	Health func() error
	Logger *zap.Logger
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// NewApp builds the Fiber application with every route registered.
func NewApp(deps Deps) *fiber.App {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: fiberErrorHandler(log),
	})
	app.Use(recover.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	NewWebhookHandler(deps.Verifier, deps.Orders, deps.CarrierToken, log).RegisterRoutes(app)

	orderHandler := NewOrderHandler(deps.Orders, deps.Fulfillment, log)
	shippingHandler := NewShippingHandler(deps.Fulfillment, log)
	productHandler := NewProductHandler(deps.Products, log)

	apiV1 := app.Group("/api/v1", middleware.AuthRequired(deps.Sessions, log))
	admin := apiV1.Group("/admin", middleware.AdminOnly())
	orderHandler.RegisterAdminRoutes(admin)
	shippingHandler.RegisterAdminRoutes(admin)
	productHandler.RegisterAdminRoutes(admin)

	orderHandler.RegisterRoutes(apiV1)
	shippingHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1)
	NewCouponHandler(deps.Coupons, log).RegisterRoutes(apiV1)

	return app
}

func fiberErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
