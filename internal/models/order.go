package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer settles the order.
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCOD    PaymentMethod = "cod"
)

// PaymentStatus tracks the money side of an order independently of its lifecycle.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// ShipmentStatus tracks carrier booking progress for an order.
type ShipmentStatus string

const (
	ShipmentUnprovisioned   ShipmentStatus = "unprovisioned"
	ShipmentBooking         ShipmentStatus = "booking" // a worker holds the booking claim
	ShipmentBooked          ShipmentStatus = "booked"
	ShipmentAWBAssigned     ShipmentStatus = "awb_assigned"
	ShipmentPickupScheduled ShipmentStatus = "pickup_scheduled"
	ShipmentCancelled       ShipmentStatus = "cancelled"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36);not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36);not null"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"` // price at the time of order
	LineTotal decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
	WeightKg  decimal.Decimal `json:"weight_kg" gorm:"type:decimal(8,3)"`
}

// Address is the delivery destination captured at checkout.
type Address struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Phone   string `json:"phone" validate:"required,numeric,min=8,max=15"`
	Email   string `json:"email" validate:"omitempty,email"`
	Line1   string `json:"line1" validate:"required,max=200"`
	Line2   string `json:"line2" validate:"omitempty,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required,numeric,len=6"`
	Country string `json:"country" validate:"omitempty,max=100"`
}

// ShipmentRef is the carrier booking owned by exactly one order.
type ShipmentRef struct {
	ShipmentID     string         `json:"shipment_id,omitempty" gorm:"column:shipment_id;type:varchar(64)"`
	CarrierOrderID string         `json:"carrier_order_id,omitempty" gorm:"column:carrier_order_id;type:varchar(64)"`
	AWBCode        string         `json:"awb_code,omitempty" gorm:"column:awb_code;type:varchar(64)"`
	CourierName    string         `json:"courier_name,omitempty" gorm:"column:courier_name;type:varchar(128)"`
	Status         ShipmentStatus `json:"status" gorm:"column:shipment_status;type:varchar(32);index"`
	LastError      string         `json:"last_error,omitempty" gorm:"column:shipment_last_error"`
	Attempts       int            `json:"attempts" gorm:"column:shipment_attempts"`
}

// Booked reports whether the carrier holds a shipment for this order.
func (s ShipmentRef) Booked() bool {
	return s.ShipmentID != "" && s.Status != ShipmentCancelled
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string          `json:"order_number" gorm:"uniqueIndex;type:varchar(40);not null"`
	UserID          string          `json:"user_id" gorm:"index;type:varchar(64)"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(32);index;not null"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null"`
	Shipping        decimal.Decimal `json:"shipping" gorm:"type:decimal(12,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:decimal(12,2);not null"`
	CODFee          decimal.Decimal `json:"cod_fee" gorm:"column:cod_fee;type:decimal(12,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:varchar(16);not null"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(16);not null"`
	CouponCode      *string         `json:"coupon_code,omitempty" gorm:"type:varchar(64)"`
	PaymentOrderID  string          `json:"payment_order_id,omitempty" gorm:"index;type:varchar(64)"`
	PaymentID       string          `json:"payment_id,omitempty" gorm:"type:varchar(64)"`
	ShippingAddress Address         `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	Shipment        ShipmentRef     `json:"shipment" gorm:"embedded"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewOrderNumber returns a fresh opaque, lexically sortable order number.
func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

// NewOrder builds an order in the Created state with fresh identifiers.
func NewOrder(userID string, method PaymentMethod, address Address, now time.Time) *Order {
	return &Order{
		ID:              uuid.New().String(),
		OrderNumber:     NewOrderNumber(),
		UserID:          userID,
		Status:          StatusCreated,
		PaymentMethod:   method,
		PaymentStatus:   PaymentPending,
		ShippingAddress: address,
		Shipment:        ShipmentRef{Status: ShipmentUnprovisioned},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ConsumedPayment records a gateway payment id that has already been applied to an order.
type ConsumedPayment struct {
	PaymentID  string    `json:"payment_id" gorm:"primaryKey;type:varchar(64)"`
	OrderID    string    `json:"order_id" gorm:"index;type:varchar(36);not null"`
	ConsumedAt time.Time `json:"consumed_at"`
}
