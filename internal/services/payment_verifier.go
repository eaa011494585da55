package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/gateway"

	"go.uber.org/zap"
)

var (
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrUnknownOrder      = errors.New("no order for gateway order id")
)

// PaymentConfirmer applies verified payment outcomes to orders.
type PaymentConfirmer interface {
	OnPaymentVerified(ctx context.Context, orderID, paymentID string) (*models.Order, error)
	OnPaymentFailed(ctx context.Context, orderID string) (*models.Order, error)
}

// PaymentVerifier authenticates gateway callbacks before they reach the order lifecycle.
type PaymentVerifier struct {
	secret    string
	orders    repositories.OrderRepository
	payments  repositories.PaymentRepository
	confirmer PaymentConfirmer
	logger    *zap.Logger
}

// NewPaymentVerifier creates a verifier keyed with the gateway secret.
func NewPaymentVerifier(secret string, store repositories.Store, confirmer PaymentConfirmer, logger *zap.Logger) *PaymentVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentVerifier{
		secret:    secret,
		orders:    store.Orders(),
		payments:  store.Payments(),
		confirmer: confirmer,
		logger:    logger.Named("payments"),
	}
}

// Verify checks the callback signature over gatewayOrderID|paymentID and confirms the
// matching order. A payment id already consumed by this order returns it untouched; one
// consumed by another order is ErrPaymentConflict.
func (v *PaymentVerifier) Verify(ctx context.Context, gatewayOrderID, paymentID, signature string) (*models.Order, error) {
	order, err := v.authenticate(ctx, gatewayOrderID, paymentID, signature)
	if err != nil {
		return nil, err
	}

	consumed, err := v.payments.FindConsumed(ctx, paymentID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return v.confirmer.OnPaymentVerified(ctx, order.ID, paymentID)
	case err != nil:
		return nil, err
	case consumed.OrderID != order.ID:
		v.logger.Warn("payment id reused across orders",
			zap.String("payment_id", paymentID),
			zap.String("order_id", order.ID),
			zap.String("owner_order_id", consumed.OrderID))
		return nil, fmt.Errorf("%w: payment %s belongs to order %s", ErrPaymentConflict, paymentID, consumed.OrderID)
	}
	return order, nil
}

// VerifyFailure authenticates a failed-payment callback and records the failure.
func (v *PaymentVerifier) VerifyFailure(ctx context.Context, gatewayOrderID, paymentID, signature string) (*models.Order, error) {
	order, err := v.authenticate(ctx, gatewayOrderID, paymentID, signature)
	if err != nil {
		return nil, err
	}
	return v.confirmer.OnPaymentFailed(ctx, order.ID)
}

func (v *PaymentVerifier) authenticate(ctx context.Context, gatewayOrderID, paymentID, signature string) (*models.Order, error) {
	if gatewayOrderID == "" || paymentID == "" || !gateway.VerifySignature(v.secret, gatewayOrderID, paymentID, signature) {
		v.logger.Warn("payment callback signature mismatch",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.String("payment_id", paymentID))
		return nil, ErrSignatureMismatch
	}

	order, err := v.orders.GetByPaymentOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			v.logger.Warn("payment callback for unknown order", zap.String("gateway_order_id", gatewayOrderID))
			return nil, ErrUnknownOrder
		}
		return nil, err
	}
	return order, nil
}
