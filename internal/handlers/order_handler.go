package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orders      *services.OrderService
	fulfillment *services.FulfillmentService
	logger      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders *services.OrderService, fulfillment *services.FulfillmentService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Get("/:id/tracking", h.HandleTrackOrder)
}

// RegisterAdminRoutes registers operator-only order routes.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Post("/orders/:id/provision", h.HandleProvisionOrder)
}

// HandleGetOrders lists the caller's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListOrders(c.UserContext(), middleware.SessionFrom(c).UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order owned by the caller.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.ownedOrder(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(order)
}

// HandleCreateOrder checks out the caller's cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	req.UserID = middleware.SessionFrom(c).UserID

	order, err := h.orders.CreateOrder(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleCancelOrder cancels an order that has not shipped.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.ownedOrder(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	cancelled, err := h.orders.Cancel(c.UserContext(), order.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(cancelled)
}

// HandleTrackOrder returns the carrier's tracking for an order.
func (h *OrderHandler) HandleTrackOrder(c *fiber.Ctx) error {
	order, err := h.ownedOrder(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tracking, err := h.fulfillment.Track(c.UserContext(), order)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"order_number":   order.OrderNumber,
		"awb_code":       order.Shipment.AWBCode,
		"courier_name":   order.Shipment.CourierName,
		"current_status": tracking.CurrentStatus(),
		"tracking":       tracking.TrackingData,
	})
}

// HandleProvisionOrder re-runs carrier booking for an order on operator request.
func (h *OrderHandler) HandleProvisionOrder(c *fiber.Ctx) error {
	order, err := h.fulfillment.Provision(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(order)
}

// ownedOrder loads the :id order and hides other users' orders behind a 404. Admins can
// read any order.
func (h *OrderHandler) ownedOrder(c *fiber.Ctx) (*models.Order, error) {
	order, err := h.orders.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	session := middleware.SessionFrom(c)
	if order.UserID != session.UserID && !session.IsAdmin() {
		return nil, services.ErrOrderNotFound
	}
	return order, nil
}
