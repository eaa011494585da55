package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/carrier"
	"storefront/pkg/gateway"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var testPricing = config.PricingConfig{
	ShippingFlatFee: decimal.NewFromInt(50),
	TaxRate:         decimal.RequireFromString("0.18"),
	CODFee:          decimal.NewFromInt(30),
	Currency:        "INR",
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T) *repositories.GORMStore {
	return repositories.NewGORMStore(newTestDB(t))
}

func seedProduct(t *testing.T, store repositories.Store, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Ceramic Mug",
		SKU:      "MUG-" + uuid.NewString()[:8],
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		WeightKg: decimal.RequireFromString("0.4"),
	}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

// setShipment writes a shipment reference directly, bypassing the fulfillment flow.
func setShipment(t *testing.T, store repositories.Store, orderID string, ship models.ShipmentRef) {
	t.Helper()
	ok, err := store.Orders().UpdateShipment(context.Background(), orderID, ship)
	require.NoError(t, err)
	require.True(t, ok)
}

func seedCoupon(t *testing.T, store repositories.Store, c models.Coupon) *models.Coupon {
	t.Helper()
	require.NoError(t, store.Coupons().Create(context.Background(), &c))
	return &c
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func testAddress() models.Address {
	return models.Address{
		Name:    "Asha Verma",
		Phone:   "9876543210",
		Email:   "asha@example.com",
		Line1:   "12 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
		Country: "India",
	}
}

// recordingScheduler collects scheduled tasks instead of running them.
type recordingScheduler struct {
	mu    sync.Mutex
	tasks []services.FulfillmentTask
}

func (s *recordingScheduler) Schedule(_ context.Context, task services.FulfillmentTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *recordingScheduler) Tasks() []services.FulfillmentTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.FulfillmentTask(nil), s.tasks...)
}

// MockGateway is a mock implementation of services.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (gateway.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Order), args.Error(1)
}

// MockCarrier is a mock implementation of services.ShipmentCarrier
type MockCarrier struct {
	mock.Mock
}

func (m *MockCarrier) CreateShipment(ctx context.Context, req carrier.ShipmentRequest) carrier.Result[carrier.ShipmentCreated] {
	return m.Called(ctx, req).Get(0).(carrier.Result[carrier.ShipmentCreated])
}

func (m *MockCarrier) GenerateAWB(ctx context.Context, shipmentID int64, courierID int) carrier.Result[carrier.AWBAssignment] {
	return m.Called(ctx, shipmentID, courierID).Get(0).(carrier.Result[carrier.AWBAssignment])
}

func (m *MockCarrier) SchedulePickup(ctx context.Context, shipmentID int64) carrier.Result[carrier.PickupScheduled] {
	return m.Called(ctx, shipmentID).Get(0).(carrier.Result[carrier.PickupScheduled])
}

func (m *MockCarrier) Cancel(ctx context.Context, ids []int64) carrier.Result[carrier.CancelResult] {
	return m.Called(ctx, ids).Get(0).(carrier.Result[carrier.CancelResult])
}

func (m *MockCarrier) Track(ctx context.Context, awb string) carrier.Result[carrier.Tracking] {
	return m.Called(ctx, awb).Get(0).(carrier.Result[carrier.Tracking])
}

func (m *MockCarrier) CheckServiceability(ctx context.Context, pickupPin, deliveryPin string, weightKg float64, cod bool) carrier.Result[carrier.Serviceability] {
	return m.Called(ctx, pickupPin, deliveryPin, weightKg, cod).Get(0).(carrier.Result[carrier.Serviceability])
}

func (m *MockCarrier) ListCouriers(ctx context.Context, courierType string) carrier.Result[carrier.CourierList] {
	return m.Called(ctx, courierType).Get(0).(carrier.Result[carrier.CourierList])
}

func (m *MockCarrier) ListPickupLocations(ctx context.Context) carrier.Result[carrier.PickupLocations] {
	return m.Called(ctx).Get(0).(carrier.Result[carrier.PickupLocations])
}

func awbAssigned(code, courier string) carrier.AWBAssignment {
	var a carrier.AWBAssignment
	a.AWBAssignStatus = 1
	a.Response.Data.AWBCode = code
	a.Response.Data.CourierName = courier
	return a
}
