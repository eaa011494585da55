package handlers

import (
	"crypto/subtle"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const carrierTokenHeader = "X-Carrier-Token"

// WebhookHandler receives callbacks from the payment gateway and the carrier.
type WebhookHandler struct {
	verifier     *services.PaymentVerifier
	orders       *services.OrderService
	carrierToken string
	logger       *zap.Logger
}

func NewWebhookHandler(verifier *services.PaymentVerifier, orders *services.OrderService, carrierToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, orders: orders, carrierToken: carrierToken, logger: logger}
}

// RegisterRoutes registers the public webhook routes.
func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	hooks := router.Group("/webhooks")
	hooks.Post("/payment", h.HandlePayment)
	hooks.Post("/carrier", h.HandleCarrier)
}

type paymentCallback struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required,max=64"`
	PaymentID      string `json:"payment_id" validate:"required,max=64"`
	Signature      string `json:"signature" validate:"required,hexadecimal"`
	Event          string `json:"event" validate:"omitempty,oneof=payment.captured payment.authorized payment.failed"`
}

// HandlePayment verifies a gateway callback and applies it to the order. Provisioning is
// queued, so the response returns as soon as the order row is updated.
func (h *WebhookHandler) HandlePayment(c *fiber.Ctx) error {
	var cb paymentCallback
	if ok, err := bindJSON(c, &cb); !ok {
		return err
	}

	verify := h.verifier.Verify
	if cb.Event == "payment.failed" {
		verify = h.verifier.VerifyFailure
	}
	order, err := verify(c.UserContext(), cb.GatewayOrderID, cb.PaymentID, cb.Signature)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"status":         "ok",
		"order_number":   order.OrderNumber,
		"order_status":   order.Status,
		"payment_status": order.PaymentStatus,
	})
}

type carrierEvent struct {
	OrderID       string `json:"order_id" validate:"required,max=64"`
	AWB           string `json:"awb"`
	CurrentStatus string `json:"current_status" validate:"required,max=64"`
}

// HandleCarrier applies a carrier tracking push to the order it names.
func (h *WebhookHandler) HandleCarrier(c *fiber.Ctx) error {
	token := c.Get(carrierTokenHeader)
	if h.carrierToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.carrierToken)) != 1 {
		h.logger.Warn("carrier webhook rejected", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid carrier token",
		})
	}

	var ev carrierEvent
	if ok, err := bindJSON(c, &ev); !ok {
		return err
	}

	order, err := h.orders.FindByOrderNumber(c.UserContext(), ev.OrderID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if ev.AWB != "" && order.Shipment.AWBCode != "" && ev.AWB != order.Shipment.AWBCode {
		h.logger.Warn("carrier webhook awb does not match order",
			zap.String("order_number", order.OrderNumber), zap.String("awb", ev.AWB))
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "AWB does not belong to this order",
		})
	}

	updated, err := h.orders.OnShipmentEvent(c.UserContext(), order.ID, ev.CurrentStatus)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"status":       "ok",
		"order_status": updated.Status,
	})
}
