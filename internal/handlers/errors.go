package handlers

import (
	"errors"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{services.ErrCouponRejected, fiber.StatusUnprocessableEntity, "Coupon cannot be applied"},
	{services.ErrCouponNotFound, fiber.StatusNotFound, "Coupon not found"},
	{services.ErrSignatureMismatch, fiber.StatusUnauthorized, "Payment signature mismatch"},
	{services.ErrUnknownOrder, fiber.StatusNotFound, "Order not found"},
	{services.ErrOrderNotFound, fiber.StatusNotFound, "Order not found"},
	{services.ErrProductNotFound, fiber.StatusNotFound, "Product not found"},
	{services.ErrInvalidTransition, fiber.StatusConflict, "Order cannot move to the requested status"},
	{services.ErrPaymentConflict, fiber.StatusConflict, "Payment already applied to another order"},
	{services.ErrInsufficientStock, fiber.StatusUnprocessableEntity, "Insufficient stock"},
	{services.ErrEmptyCart, fiber.StatusBadRequest, "Cart is empty"},
	{services.ErrInvalidProduct, fiber.StatusBadRequest, "Invalid product"},
	{services.ErrNotShipped, fiber.StatusConflict, "Order has not been shipped yet"},
	{services.ErrPaymentUnavailable, fiber.StatusServiceUnavailable, "Payment gateway unavailable, please retry"},
	{services.ErrProvisioningFailed, fiber.StatusBadGateway, "Shipment provisioning failed"},
	{services.ErrCarrier, fiber.StatusBadGateway, "Carrier request failed"},
}

// respondError maps a service error to its HTTP status and writes the JSON body.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := fiber.Map{"message": m.message, "error": err.Error()}
		if reason, ok := services.RejectionReasonOf(err); ok {
			body["reason"] = reason
		}
		return c.Status(m.status).JSON(body)
	}

	logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"error":   err.Error(),
	})
}
