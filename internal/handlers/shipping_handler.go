package handlers

import (
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ShippingHandler exposes carrier lookups.
type ShippingHandler struct {
	fulfillment *services.FulfillmentService
	logger      *zap.Logger
}

func NewShippingHandler(fulfillment *services.FulfillmentService, logger *zap.Logger) *ShippingHandler {
	return &ShippingHandler{fulfillment: fulfillment, logger: logger}
}

// RegisterRoutes registers the customer-facing shipping routes.
func (h *ShippingHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/shipping/serviceability", h.HandleServiceability)
}

// RegisterAdminRoutes registers the carrier account routes for operators.
func (h *ShippingHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/carrier/couriers", h.HandleCouriers)
	router.Get("/carrier/pickup-locations", h.HandlePickupLocations)
}

type serviceabilityQuery struct {
	Pincode  string  `query:"pincode" validate:"required,numeric,len=6"`
	WeightKg float64 `query:"weight" validate:"omitempty,gt=0,lte=100"`
	COD      bool    `query:"cod"`
}

// HandleServiceability lists couriers that deliver to a pincode.
func (h *ShippingHandler) HandleServiceability(c *fiber.Ctx) error {
	var q serviceabilityQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid query parameters",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(q); err != nil {
		return validationFailed(c, err)
	}
	if q.WeightKg == 0 {
		q.WeightKg = 0.5
	}

	result, err := h.fulfillment.Serviceability(c.UserContext(), q.Pincode, q.WeightKg, q.COD)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"serviceable":         len(result.Data.AvailableCourierCompanies) > 0,
		"recommended_courier": result.Data.RecommendedCourierCompanyID,
		"available_couriers":  result.Data.AvailableCourierCompanies,
	})
}

// HandleCouriers lists the couriers enabled on the carrier account.
func (h *ShippingHandler) HandleCouriers(c *fiber.Ctx) error {
	list, err := h.fulfillment.Couriers(c.UserContext(), c.Query("type", "active"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(list)
}

// HandlePickupLocations lists the warehouses configured with the carrier.
func (h *ShippingHandler) HandlePickupLocations(c *fiber.Ctx) error {
	locations, err := h.fulfillment.PickupLocations(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(locations.Data.ShippingAddress)
}
