package handlers

import (
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CouponHandler lets shoppers check a coupon before checkout.
type CouponHandler struct {
	coupons *services.CouponService
	logger  *zap.Logger
}

func NewCouponHandler(coupons *services.CouponService, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

// RegisterRoutes registers the coupon routes with the Fiber app.
func (h *CouponHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/coupons/validate", h.HandleValidate)
}

type validateCouponRequest struct {
	Code        string          `json:"code" validate:"required,max=64"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

// HandleValidate previews the discount a coupon gives without redeeming it.
func (h *CouponHandler) HandleValidate(c *fiber.Ctx) error {
	var req validateCouponRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if req.OrderAmount.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "order_amount must not be negative",
		})
	}

	preview, err := h.coupons.Preview(c.UserContext(), req.Code, req.OrderAmount)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"valid":    true,
		"code":     preview.Code,
		"discount": preview.Discount,
	})
}
