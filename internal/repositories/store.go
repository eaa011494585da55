package repositories

import (
	"context"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// Store groups the repositories checkout writes through, and runs them in one transaction.
type Store interface {
	Coupons() CouponRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Products() ProductRepository
	// WithinTransaction runs fn against a Store bound to a single transaction. Returning an
	// error from fn rolls every write back.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is the GORM-backed Store.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a Store on top of db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Coupons() CouponRepository   { return NewGORMCouponRepository(s.db) }
func (s *GORMStore) Orders() OrderRepository     { return NewGORMOrderRepository(s.db) }
func (s *GORMStore) Payments() PaymentRepository { return NewGORMPaymentRepository(s.db) }
func (s *GORMStore) Products() ProductRepository { return NewGORMProductRepository(s.db) }

// WithinTransaction implements Store.
func (s *GORMStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx})
	})
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.ConsumedPayment{},
	)
}
