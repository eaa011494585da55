package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/carrier"

	"go.uber.org/zap"
)

var (
	// ErrProvisioningFailed wraps a carrier failure that was recorded on the order for a
	// later retry.
	ErrProvisioningFailed = errors.New("shipment provisioning failed")
	ErrNotShipped         = errors.New("order has no airway bill yet")
	ErrCarrier            = errors.New("carrier request failed")

	// errBookingWithdrawn stops provisioning of an order that was cancelled while a
	// carrier step was in flight.
	errBookingWithdrawn = errors.New("order cancelled during provisioning")
)

const defaultBookingLease = 5 * time.Minute

// ShipmentCarrier is the subset of the carrier client fulfillment uses.
type ShipmentCarrier interface {
	CreateShipment(ctx context.Context, req carrier.ShipmentRequest) carrier.Result[carrier.ShipmentCreated]
	GenerateAWB(ctx context.Context, shipmentID int64, courierID int) carrier.Result[carrier.AWBAssignment]
	SchedulePickup(ctx context.Context, shipmentID int64) carrier.Result[carrier.PickupScheduled]
	Cancel(ctx context.Context, ids []int64) carrier.Result[carrier.CancelResult]
	Track(ctx context.Context, awb string) carrier.Result[carrier.Tracking]
	CheckServiceability(ctx context.Context, pickupPin, deliveryPin string, weightKg float64, cod bool) carrier.Result[carrier.Serviceability]
	ListCouriers(ctx context.Context, courierType string) carrier.Result[carrier.CourierList]
	ListPickupLocations(ctx context.Context) carrier.Result[carrier.PickupLocations]
}

// FulfillmentConfig holds the warehouse the carrier collects from.
type FulfillmentConfig struct {
	PickupLocation string
	PickupPincode  string
	// BookingLease is how long a booking claim blocks other workers. Zero means five minutes.
	BookingLease time.Duration
}

// FulfillmentService books, tracks and cancels carrier shipments for confirmed orders.
// It never changes an order's payment status.
type FulfillmentService struct {
	store   repositories.Store
	carrier ShipmentCarrier
	cfg     FulfillmentConfig
	clock   func() time.Time
	logger  *zap.Logger
}

// NewFulfillmentService creates a new FulfillmentService.
func NewFulfillmentService(store repositories.Store, c ShipmentCarrier, cfg FulfillmentConfig, clock func() time.Time, logger *zap.Logger) *FulfillmentService {
	if clock == nil {
		clock = utcNow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BookingLease <= 0 {
		cfg.BookingLease = defaultBookingLease
	}
	return &FulfillmentService{store: store, carrier: c, cfg: cfg, clock: clock, logger: logger.Named("fulfillment")}
}

// HandleTask implements TaskHandler. Carrier failures are recorded on the order and
// left to reconciliation, so they are not reported as task errors.
func (s *FulfillmentService) HandleTask(ctx context.Context, task FulfillmentTask) error {
	var err error
	switch task.Action {
	case ActionProvision:
		_, err = s.Provision(ctx, task.OrderID)
	case ActionCancelShipment:
		err = s.CancelShipment(ctx, task.OrderID)
	default:
		return fmt.Errorf("unknown fulfillment action %q", task.Action)
	}
	if errors.Is(err, ErrProvisioningFailed) || errors.Is(err, ErrCarrier) {
		return nil
	}
	return err
}

// Provision walks an order through carrier booking: create shipment, assign an AWB,
// schedule pickup. Each step is persisted as it completes so a retry resumes where the
// last attempt stopped. Only one caller books a given order at a time, and an order
// cancelled mid-way has its booking withdrawn at the carrier.
func (s *FulfillmentService) Provision(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.provision(ctx, orderID)
	if errors.Is(err, errBookingWithdrawn) {
		return order, nil
	}
	return order, err
}

func (s *FulfillmentService) provision(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundAs(err, ErrOrderNotFound)
	}
	if !order.Status.IsFulfillable() {
		s.logger.Debug("skipping provisioning", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
		return order, nil
	}
	ship := order.Shipment

	if ship.ShipmentID == "" {
		claimed, err := s.store.Orders().ClaimBooking(ctx, order.ID, s.cfg.BookingLease)
		if err != nil {
			return order, err
		}
		if !claimed {
			s.logger.Debug("booking already claimed", zap.String("order_id", order.ID))
			return order, nil
		}
		ship.Status = models.ShipmentBooking
		order.Shipment = ship

		res := s.carrier.CreateShipment(ctx, s.shipmentRequest(order))
		if !res.OK {
			return order, s.recordFailure(ctx, order, "create shipment", res.Kind, res.Message)
		}
		ship.ShipmentID = strconv.FormatInt(res.Data.ShipmentID, 10)
		ship.CarrierOrderID = strconv.FormatInt(res.Data.OrderID, 10)
		ship.Status = models.ShipmentBooked
		if res.Data.AWBCode != "" {
			ship.AWBCode = res.Data.AWBCode
			ship.CourierName = res.Data.CourierName
			ship.Status = models.ShipmentAWBAssigned
		}
		if err := s.saveShipment(ctx, order, ship); err != nil {
			return order, err
		}
	}

	shipmentID, err := strconv.ParseInt(ship.ShipmentID, 10, 64)
	if err != nil {
		return order, fmt.Errorf("order %s has malformed shipment id %q: %w", order.ID, ship.ShipmentID, err)
	}

	if ship.AWBCode == "" {
		res := s.carrier.GenerateAWB(ctx, shipmentID, 0)
		if !res.OK {
			return order, s.recordFailure(ctx, order, "assign awb", res.Kind, res.Message)
		}
		if !res.Data.Assigned() {
			return order, s.recordFailure(ctx, order, "assign awb", carrier.KindPermanent, res.Data.Response.Data.AssignError)
		}
		ship.AWBCode = res.Data.Response.Data.AWBCode
		ship.CourierName = res.Data.Response.Data.CourierName
		ship.Status = models.ShipmentAWBAssigned
		if err := s.saveShipment(ctx, order, ship); err != nil {
			return order, err
		}
	}

	if order.Status == models.StatusConfirmed {
		ok, err := s.store.Orders().CompareAndUpdate(ctx, order.ID, models.StatusConfirmed, map[string]any{
			"status": models.StatusProcessing,
		})
		if err != nil {
			return order, err
		}
		if ok {
			order.Status = models.StatusProcessing
		} else if err := s.refreshStatus(ctx, order); err != nil {
			return order, err
		}
		if order.Status == models.StatusCancelled {
			return order, s.withdrawBooking(ctx, order, ship)
		}
	}

	if ship.Status != models.ShipmentPickupScheduled {
		res := s.carrier.SchedulePickup(ctx, shipmentID)
		if !res.OK {
			return order, s.recordFailure(ctx, order, "schedule pickup", res.Kind, res.Message)
		}
		ship.Status = models.ShipmentPickupScheduled
		ship.LastError = ""
		if err := s.saveShipment(ctx, order, ship); err != nil {
			return order, err
		}
	}

	s.logger.Info("shipment provisioned",
		zap.String("order_id", order.ID),
		zap.String("shipment_id", ship.ShipmentID),
		zap.String("awb", ship.AWBCode))
	return order, nil
}

// saveShipment writes ship while the order is still fulfillable. When the order was
// cancelled concurrently the booking is withdrawn and errBookingWithdrawn returned.
func (s *FulfillmentService) saveShipment(ctx context.Context, order *models.Order, ship models.ShipmentRef) error {
	ok, err := s.store.Orders().UpdateShipment(ctx, order.ID, ship, models.FulfillableStatuses...)
	if err != nil {
		return err
	}
	if ok {
		order.Shipment = ship
		return nil
	}

	if err := s.refreshStatus(ctx, order); err != nil {
		return err
	}
	if order.Status == models.StatusCancelled {
		return s.withdrawBooking(ctx, order, ship)
	}
	// Carrier events already moved the order past processing; keep the booking.
	return s.forceSaveShipment(ctx, order, ship)
}

func (s *FulfillmentService) forceSaveShipment(ctx context.Context, order *models.Order, ship models.ShipmentRef) error {
	ok, err := s.store.Orders().UpdateShipment(ctx, order.ID, ship)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, order.ID)
	}
	order.Shipment = ship
	return nil
}

func (s *FulfillmentService) refreshStatus(ctx context.Context, order *models.Order) error {
	current, err := s.store.Orders().GetByID(ctx, order.ID)
	if err != nil {
		return notFoundAs(err, ErrOrderNotFound)
	}
	order.Status = current.Status
	return nil
}

// withdrawBooking cancels the carrier side of an order that was cancelled while it was
// being provisioned. No further carrier steps run for it.
func (s *FulfillmentService) withdrawBooking(ctx context.Context, order *models.Order, ship models.ShipmentRef) error {
	s.logger.Warn("order cancelled during provisioning",
		zap.String("order_id", order.ID), zap.String("shipment_id", ship.ShipmentID))
	if ship.ShipmentID == "" {
		ship.Status = models.ShipmentUnprovisioned
		if err := s.forceSaveShipment(ctx, order, ship); err != nil {
			return err
		}
		return errBookingWithdrawn
	}
	if err := s.cancelAtCarrier(ctx, order, ship); err != nil {
		return err
	}
	return errBookingWithdrawn
}

func (s *FulfillmentService) recordFailure(ctx context.Context, order *models.Order, step string, kind carrier.FailureKind, message string) error {
	ship := order.Shipment
	ship.Attempts++
	ship.LastError = fmt.Sprintf("%s: %s: %s", step, kind, message)
	if ship.ShipmentID == "" {
		ship.Status = models.ShipmentUnprovisioned
	}
	s.logger.Warn("shipment provisioning failed",
		zap.String("order_id", order.ID),
		zap.String("step", step),
		zap.String("kind", string(kind)),
		zap.String("message", message),
		zap.Int("attempts", ship.Attempts))
	if err := s.saveShipment(ctx, order, ship); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrProvisioningFailed, ship.LastError)
}

func (s *FulfillmentService) shipmentRequest(order *models.Order) carrier.ShipmentRequest {
	addr := order.ShippingAddress
	first, last := splitName(addr.Name)

	lines := make([]LineItem, 0, len(order.Items))
	items := make([]carrier.ShipmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, LineItem{Quantity: item.Quantity, WeightKg: item.WeightKg})
		items = append(items, carrier.ShipmentItem{
			Name:         item.Name,
			SKU:          item.SKU,
			Units:        item.Quantity,
			SellingPrice: item.UnitPrice.InexactFloat64(),
		})
	}

	method := "Prepaid"
	if order.PaymentMethod == models.PaymentCOD {
		method = "COD"
	}
	country := addr.Country
	if country == "" {
		country = "India"
	}

	return carrier.ShipmentRequest{
		OrderID:             order.OrderNumber,
		OrderDate:           order.CreatedAt.Format("2006-01-02 15:04"),
		PickupLocation:      s.cfg.PickupLocation,
		BillingCustomerName: first,
		BillingLastName:     last,
		BillingAddress:      addr.Line1,
		BillingAddress2:     addr.Line2,
		BillingCity:         addr.City,
		BillingPincode:      addr.Pincode,
		BillingState:        addr.State,
		BillingCountry:      country,
		BillingEmail:        addr.Email,
		BillingPhone:        addr.Phone,
		ShippingIsBilling:   true,
		OrderItems:          items,
		PaymentMethod:       method,
		SubTotal:            order.Total.InexactFloat64(),
		Length:              10,
		Breadth:             10,
		Height:              10,
		Weight:              TotalWeight(lines).InexactFloat64(),
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// CancelShipment asks the carrier to cancel the booking of an order. It is best effort:
// failures are logged, counted on the shipment and returned but never touch the order's
// own status.
func (s *FulfillmentService) CancelShipment(ctx context.Context, orderID string) error {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return notFoundAs(err, ErrOrderNotFound)
	}
	if !order.Shipment.Booked() {
		return nil
	}
	return s.cancelAtCarrier(ctx, order, order.Shipment)
}

func (s *FulfillmentService) cancelAtCarrier(ctx context.Context, order *models.Order, ship models.ShipmentRef) error {
	id, err := strconv.ParseInt(ship.CarrierOrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("order %s has malformed carrier order id %q: %w", order.ID, ship.CarrierOrderID, err)
	}

	res := s.carrier.Cancel(ctx, []int64{id})
	if !res.OK {
		s.logger.Warn("carrier cancellation failed",
			zap.String("order_id", order.ID), zap.String("kind", string(res.Kind)), zap.String("message", res.Message))
		ship.Attempts++
		ship.LastError = fmt.Sprintf("cancel shipment: %s: %s", res.Kind, res.Message)
		if err := s.forceSaveShipment(ctx, order, ship); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrCarrier, res.Message)
	}

	ship.Status = models.ShipmentCancelled
	ship.LastError = ""
	s.logger.Info("shipment cancelled", zap.String("order_id", order.ID), zap.String("shipment_id", ship.ShipmentID))
	return s.forceSaveShipment(ctx, order, ship)
}

// Track returns the carrier's tracking document for an order.
func (s *FulfillmentService) Track(ctx context.Context, order *models.Order) (*carrier.Tracking, error) {
	if order.Shipment.AWBCode == "" {
		return nil, ErrNotShipped
	}
	res := s.carrier.Track(ctx, order.Shipment.AWBCode)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	return &res.Data, nil
}

// Serviceability lists couriers that can deliver from the warehouse to deliveryPin.
func (s *FulfillmentService) Serviceability(ctx context.Context, deliveryPin string, weightKg float64, cod bool) (*carrier.Serviceability, error) {
	res := s.carrier.CheckServiceability(ctx, s.cfg.PickupPincode, deliveryPin, weightKg, cod)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	return &res.Data, nil
}

// Couriers lists the couriers enabled on the carrier account.
func (s *FulfillmentService) Couriers(ctx context.Context, courierType string) (*carrier.CourierList, error) {
	res := s.carrier.ListCouriers(ctx, courierType)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	return &res.Data, nil
}

// PickupLocations lists the warehouses configured on the carrier account.
func (s *FulfillmentService) PickupLocations(ctx context.Context) (*carrier.PickupLocations, error) {
	res := s.carrier.ListPickupLocations(ctx)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	return &res.Data, nil
}

// Reconcile re-drives carrier work for orders whose shipment has been stuck since before
// staleAfter ago: provisioning for active orders and cancellation for cancelled ones. It
// returns how many orders it attempted.
func (s *FulfillmentService) Reconcile(ctx context.Context, staleAfter time.Duration, maxAttempts, limit int) (int, error) {
	orders, err := s.store.Orders().ListPendingShipments(ctx, s.clock().Add(-staleAfter), maxAttempts, limit)
	if err != nil {
		return 0, err
	}
	for _, order := range orders {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		var err error
		if order.Status == models.StatusCancelled {
			err = s.CancelShipment(ctx, order.ID)
		} else {
			_, err = s.Provision(ctx, order.ID)
		}
		if err != nil && !errors.Is(err, ErrProvisioningFailed) && !errors.Is(err, ErrCarrier) {
			s.logger.Error("reconciliation failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return len(orders), nil
}
