package models

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	StatusCreated         OrderStatus = "created"
	StatusAwaitingPayment OrderStatus = "awaiting_payment"
	StatusConfirmed       OrderStatus = "confirmed"
	StatusProcessing      OrderStatus = "processing"
	StatusShipped         OrderStatus = "shipped"
	StatusDelivered       OrderStatus = "delivered"
	StatusCancelled       OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusCreated:         {StatusAwaitingPayment, StatusConfirmed, StatusCancelled},
	StatusAwaitingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusDelivered},
}

// FulfillableStatuses are the statuses in which carrier work may be written to an order.
var FulfillableStatuses = []OrderStatus{StatusConfirmed, StatusProcessing}

// fulfillmentPath is the forward order carrier events move an order along.
var fulfillmentPath = []OrderStatus{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusAwaitingPayment, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsFulfillable reports whether carrier booking may still progress in s.
func (s OrderStatus) IsFulfillable() bool {
	return s == StatusConfirmed || s == StatusProcessing
}

// FulfillmentStage returns the position of s on the fulfillment path, or -1.
func (s OrderStatus) FulfillmentStage() int {
	for i, st := range fulfillmentPath {
		if st == s {
			return i
		}
	}
	return -1
}

// CanAdvanceTo reports whether target lies ahead of s on the fulfillment path and every
// intermediate step is an allowed transition.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) bool {
	from, to := s.FulfillmentStage(), target.FulfillmentStage()
	if from < 0 || to <= from {
		return false
	}
	for i := from; i < to; i++ {
		if !CanTransition(fulfillmentPath[i], fulfillmentPath[i+1]) {
			return false
		}
	}
	return true
}
