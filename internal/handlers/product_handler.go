package handlers

import (
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler serves the catalog snapshot used for pricing.
type ProductHandler struct {
	service *services.ProductService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products/:id", h.HandleGetProduct)
}

// RegisterAdminRoutes registers the catalog sync route.
func (h *ProductHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Put("/products/:id", h.HandleSyncProduct)
}

// HandleGetProduct returns the current price and stock of a product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleSyncProduct stores a catalog snapshot pushed by the catalog owner.
func (h *ProductHandler) HandleSyncProduct(c *fiber.Ctx) error {
	var product models.Product
	if ok, err := bindJSON(c, &product); !ok {
		return err
	}
	product.ID = c.Params("id")

	if err := h.service.SyncProduct(c.UserContext(), &product); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}
