package repository

import (
	"context"
	"storefront-checkout/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusChange is a compare-and-set update of the three status axes.
// Nil fields are left untouched; Expected* hold the values read before the change.
type StatusChange struct {
	ExpectedStatus            model.OrderStatus
	ExpectedPaymentStatus     model.PaymentStatus
	ExpectedFulfillmentStatus model.FulfillmentStatus

	Status            *model.OrderStatus
	PaymentStatus     *model.PaymentStatus
	FulfillmentStatus *model.FulfillmentStatus

	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	AppendTimeline(ctx context.Context, tx *gorm.DB, entries ...*model.OrderTimelineEntry) error
	// UpdateStatus returns false when the row no longer holds the expected statuses.
	UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, change *StatusChange) (bool, error)
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByReceipt(ctx context.Context, receiptNumber string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) AppendTimeline(ctx context.Context, tx *gorm.DB, entries ...*model.OrderTimelineEntry) error {
	// one insert per entry keeps id order equal to argument order
	for _, entry := range entries {
		if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, change *StatusChange) (bool, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if change.Status != nil {
		updates["status"] = *change.Status
	}
	if change.PaymentStatus != nil {
		updates["payment_status"] = *change.PaymentStatus
	}
	if change.FulfillmentStatus != nil {
		updates["fulfillment_status"] = *change.FulfillmentStatus
	}
	if change.ShippedAt != nil {
		updates["shipped_at"] = *change.ShippedAt
	}
	if change.DeliveredAt != nil {
		updates["delivered_at"] = *change.DeliveredAt
	}
	if change.CancelledAt != nil {
		updates["cancelled_at"] = *change.CancelledAt
	}

	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where(`
			id = ?
			AND status = ?
			AND payment_status = ?
			AND fulfillment_status = ?
		`,
			orderID,
			change.ExpectedStatus,
			change.ExpectedPaymentStatus,
			change.ExpectedFulfillmentStatus,
		).
		Updates(updates)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByReceipt(ctx context.Context, receiptNumber string) (*model.Order, error) {
	var order model.Order
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("receipt_number = ?", receiptNumber).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("ShippingAddress").
		Preload("BillingAddress").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("ShippingAddress").
		Preload("BillingAddress")
}
