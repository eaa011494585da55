package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/gateway"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentConflict    = errors.New("payment already applied to another order")
)

// cancelAttempts bounds how often Cancel retries when the status moves under it.
const cancelAttempts = 3

// PaymentGateway opens gateway-side orders for online checkout.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (gateway.Order, error)
}

// CartLine is one requested product and quantity.
type CartLine struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=1000"`
}

// CheckoutRequest is everything needed to place an order.
type CheckoutRequest struct {
	UserID          string               `json:"-"`
	Items           []CartLine           `json:"items" validate:"required,min=1,dive"`
	ShippingAddress models.Address       `json:"shipping_address"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" validate:"required,oneof=online cod"`
	CouponCode      string               `json:"coupon_code" validate:"omitempty,max=64"`
}

// OrderServiceDeps are the collaborators of OrderService.
type OrderServiceDeps struct {
	Store     repositories.Store
	Gateway   PaymentGateway
	Scheduler FulfillmentScheduler
	Pricing   config.PricingConfig
	Clock     func() time.Time
	Logger    *zap.Logger
}

// OrderService drives the order lifecycle from checkout to delivery.
type OrderService struct {
	store     repositories.Store
	gateway   PaymentGateway
	scheduler FulfillmentScheduler
	pricing   config.PricingConfig
	clock     func() time.Time
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(deps OrderServiceDeps) *OrderService {
	if deps.Clock == nil {
		deps.Clock = utcNow
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &OrderService{
		store:     deps.Store,
		gateway:   deps.Gateway,
		scheduler: deps.Scheduler,
		pricing:   deps.Pricing,
		clock:     deps.Clock,
		logger:    deps.Logger.Named("orders"),
	}
}

// GetOrder retrieves a single order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	return order, notFoundAs(err, ErrOrderNotFound)
}

// FindByOrderNumber retrieves an order by its public number.
func (s *OrderService) FindByOrderNumber(ctx context.Context, number string) (*models.Order, error) {
	order, err := s.store.Orders().GetByOrderNumber(ctx, number)
	return order, notFoundAs(err, ErrOrderNotFound)
}

// ListOrders returns a user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.Orders().ListByUser(ctx, userID)
}

// CreateOrder prices the cart, applies the coupon and persists the order. The order row,
// its items and the coupon redemption are written in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	now := s.clock()

	lines, err := s.resolveCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	subtotal := ComputeTotals(lines, nil, s.pricing, false).Subtotal

	var coupon *models.Coupon
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, err = s.store.Coupons().GetByCode(ctx, code)
		if err != nil {
			return nil, notFoundAs(err, ErrCouponNotFound)
		}
		if err := ValidateCoupon(*coupon, subtotal, now); err != nil {
			return nil, err
		}
	}

	cod := req.PaymentMethod == models.PaymentCOD
	totals := ComputeTotals(lines, coupon, s.pricing, cod)

	order := models.NewOrder(req.UserID, req.PaymentMethod, req.ShippingAddress, now)
	order.Subtotal = totals.Subtotal
	order.DiscountAmount = totals.Discount
	order.Shipping = totals.Shipping
	order.Tax = totals.Tax
	order.CODFee = totals.CODFee
	order.Total = totals.Total
	if coupon != nil {
		order.CouponCode = &coupon.Code
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal(),
			WeightKg:  line.WeightKg,
		})
	}

	next := models.StatusAwaitingPayment
	if cod {
		next = models.StatusConfirmed
	}
	if !models.CanTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}
	order.Status = next

	if !cod {
		gwOrder, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
			Amount:   order.Total.Shift(2).Round(0).IntPart(),
			Currency: s.pricing.Currency,
			Receipt:  order.OrderNumber,
			Notes:    map[string]string{"order_id": order.ID},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
		order.PaymentOrderID = gwOrder.ID
	}

	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if coupon != nil {
			return redeemCoupon(ctx, tx.Coupons(), *coupon, s.logger)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)),
		zap.String("total", order.Total.StringFixed(2)))

	if cod {
		s.schedule(ctx, ActionProvision, order.ID)
	}
	return order, nil
}

func (s *OrderService) resolveCart(ctx context.Context, items []CartLine) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
		product, err := s.store.Products().GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, notFoundAs(err, ErrProductNotFound)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("%w for product %s (requested: %d, available: %d)",
				ErrInsufficientStock, product.Name, item.Quantity, product.Stock)
		}
		lines = append(lines, LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			WeightKg:  product.WeightKg,
		})
	}
	return lines, nil
}

// OnPaymentVerified confirms an order after a verified payment. A payment id that has
// already been applied to this order is a no-op success; one applied to a different
// order is ErrPaymentConflict.
func (s *OrderService) OnPaymentVerified(ctx context.Context, orderID, paymentID string) (*models.Order, error) {
	var (
		order   *models.Order
		applied bool
	)
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		var err error
		order, err = tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return notFoundAs(err, ErrOrderNotFound)
		}

		_, fresh, err := tx.Payments().Consume(ctx, paymentID, order.ID)
		if errors.Is(err, repositories.ErrConflict) {
			return fmt.Errorf("%w: %v", ErrPaymentConflict, err)
		}
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		if order.Status != models.StatusAwaitingPayment || !models.CanTransition(order.Status, models.StatusConfirmed) {
			return fmt.Errorf("%w: payment %s for order in status %s", ErrInvalidTransition, paymentID, order.Status)
		}
		ok, err := tx.Orders().CompareAndUpdate(ctx, order.ID, models.StatusAwaitingPayment, map[string]any{
			"status":         models.StatusConfirmed,
			"payment_status": models.PaymentPaid,
			"payment_id":     paymentID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, order.ID)
		}
		order.Status = models.StatusConfirmed
		order.PaymentStatus = models.PaymentPaid
		order.PaymentID = paymentID
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		s.logger.Info("duplicate payment ignored", zap.String("order_id", orderID), zap.String("payment_id", paymentID))
		return order, nil
	}
	s.logger.Info("order paid", zap.String("order_id", order.ID), zap.String("payment_id", paymentID))
	s.schedule(ctx, ActionProvision, order.ID)
	return order, nil
}

// OnPaymentFailed records a failed payment attempt. The order stays awaiting payment so
// the customer can retry; it is never cancelled here.
func (s *OrderService) OnPaymentFailed(ctx context.Context, orderID string) (*models.Order, error) {
	ok, err := s.store.Orders().CompareAndUpdate(ctx, orderID, models.StatusAwaitingPayment, map[string]any{
		"payment_status": models.PaymentFailed,
	})
	if err != nil {
		return nil, err
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("payment failure ignored for order not awaiting payment",
			zap.String("order_id", orderID), zap.String("status", string(order.Status)))
	}
	return order, nil
}

// Cancel moves an order to Cancelled and, if the carrier already holds a shipment,
// schedules its cancellation. Coupon uses are not given back.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (*models.Order, error) {
	var order *models.Order
	for attempt := 0; ; attempt++ {
		var err error
		order, err = s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(order.Status, models.StatusCancelled) {
			return nil, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, order.Status)
		}
		ok, err := s.store.Orders().CompareAndUpdate(ctx, order.ID, order.Status, map[string]any{
			"status": models.StatusCancelled,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if attempt == cancelAttempts-1 {
			return nil, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, order.ID)
		}
	}
	s.logger.Info("order cancelled", zap.String("order_id", order.ID))

	// Provisioning may have booked a shipment after the read above.
	order, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if order.Shipment.Booked() {
		s.schedule(ctx, ActionCancelShipment, order.ID)
	}
	return order, nil
}

var carrierStatusMap = map[string]models.OrderStatus{
	"AWB ASSIGNED":               models.StatusProcessing,
	"PICKUP QUEUED":              models.StatusProcessing,
	"PICKUP SCHEDULED":           models.StatusProcessing,
	"PICKUP GENERATED":           models.StatusProcessing,
	"OUT FOR PICKUP":             models.StatusProcessing,
	"PICKED UP":                  models.StatusShipped,
	"SHIPPED":                    models.StatusShipped,
	"IN TRANSIT":                 models.StatusShipped,
	"REACHED AT DESTINATION HUB": models.StatusShipped,
	"OUT FOR DELIVERY":           models.StatusShipped,
	"DELIVERED":                  models.StatusDelivered,
}

// MapCarrierStatus translates a carrier status label to the order status it implies.
func MapCarrierStatus(carrierStatus string) (models.OrderStatus, bool) {
	key := strings.ToUpper(strings.TrimSpace(carrierStatus))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	status, ok := carrierStatusMap[key]
	return status, ok
}

// OnShipmentEvent advances an order along the fulfillment path in response to a carrier
// status update. Unknown statuses and backward moves are ignored.
func (s *OrderService) OnShipmentEvent(ctx context.Context, orderID, carrierStatus string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		s.logger.Debug("carrier event for closed order", zap.String("order_id", orderID), zap.String("status", string(order.Status)))
		return order, nil
	}
	target, ok := MapCarrierStatus(carrierStatus)
	if !ok {
		s.logger.Debug("unmapped carrier status", zap.String("order_id", orderID), zap.String("carrier_status", carrierStatus))
		return order, nil
	}
	if !order.Status.CanAdvanceTo(target) {
		return order, nil
	}

	updated, err := s.store.Orders().CompareAndUpdate(ctx, order.ID, order.Status, map[string]any{"status": target})
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.GetOrder(ctx, orderID)
	}
	s.logger.Info("order advanced by carrier event",
		zap.String("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)))
	order.Status = target
	return order, nil
}

func (s *OrderService) schedule(ctx context.Context, action TaskAction, orderID string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Schedule(ctx, FulfillmentTask{Action: action, OrderID: orderID}); err != nil {
		s.logger.Warn("failed to schedule fulfillment task, reconciliation will retry",
			zap.String("action", string(action)), zap.String("order_id", orderID), zap.Error(err))
	}
}

func notFoundAs(err, target error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", target, err)
	}
	return err
}
