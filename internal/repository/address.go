package repository

import (
	"context"
	"storefront-checkout/internal/model"

	"gorm.io/gorm"
)

// AddressRepository writes order-scoped address snapshots. Snapshots are never updated.
type AddressRepository interface {
	Create(ctx context.Context, tx *gorm.DB, address *model.Address) error
}

type addressRepoImpl struct{}

func NewAddressRepository() AddressRepository {
	return &addressRepoImpl{}
}

func (r *addressRepoImpl) Create(ctx context.Context, tx *gorm.DB, address *model.Address) error {
	return tx.WithContext(ctx).Create(address).Error
}
