package model

// Product is the catalog row a line item references. The catalog is owned elsewhere;
// checkout only reads it.
type Product struct {
	ID       string `gorm:"primaryKey;size:64;not null" json:"id"` // product sku
	Name     string `gorm:"size:255;not null" json:"name"`
	Price    Money  `gorm:"not null" json:"price"`
	Currency string `gorm:"size:8;not null" json:"currency"`
}

// Tables lists every model managed by this service, in dependency order.
func Tables() []any {
	return []any{
		&Product{},
		&Address{},
		&Order{},
		&OrderItem{},
		&OrderTimelineEntry{},
	}
}
