package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// AuthorPaymentGateway marks timeline entries written on behalf of the gateway.
	AuthorPaymentGateway = "PAYMENT_GATEWAY"
	AuthorSystem         = "SYSTEM"

	PaymentProviderBraintree = "braintree"
	PaymentMethodCreditCard  = "credit_card"
)

type Order struct {
	ID                string            `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber       string            `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"`
	UserID            string            `gorm:"size:64;index;not null" json:"userId"`
	Status            OrderStatus       `gorm:"size:32;index;not null" json:"status"`
	PaymentStatus     PaymentStatus     `gorm:"size:32;not null" json:"paymentStatus"`
	FulfillmentStatus FulfillmentStatus `gorm:"size:32;not null" json:"fulfillmentStatus"`

	// minor units
	Subtotal Money  `gorm:"not null" json:"subtotal"`
	Tax      Money  `gorm:"not null" json:"tax"`
	Shipping Money  `gorm:"not null" json:"shipping"`
	Discount Money  `gorm:"not null;default:0" json:"discount"`
	Total    Money  `gorm:"not null" json:"total"`
	Currency string `gorm:"size:8;not null" json:"currency"`

	PaymentMethod     string `gorm:"size:32;not null" json:"paymentMethod"`
	PaymentProvider   string `gorm:"size:32" json:"paymentProvider,omitempty"`
	TransactionID     string `gorm:"size:64;index" json:"transactionId,omitempty"`
	AuthorizationCode string `gorm:"size:64" json:"authorizationCode,omitempty"`
	ReceiptNumber     string `gorm:"size:128;index" json:"receiptNumber,omitempty"`

	ShippingAddressID string   `gorm:"size:36;not null" json:"shippingAddressId"`
	BillingAddressID  string   `gorm:"size:36;not null" json:"billingAddressId"`
	ShippingAddress   *Address `gorm:"foreignKey:ShippingAddressID" json:"shippingAddress,omitempty"`
	BillingAddress    *Address `gorm:"foreignKey:BillingAddressID" json:"billingAddress,omitempty"`

	Items    []*OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Timeline []*OrderTimelineEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"timeline,omitempty"`

	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type OrderItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderID     string `gorm:"size:36;index;not null" json:"orderId"`
	ProductID   string `gorm:"size:64;index;not null" json:"productId"`
	ProductName string `gorm:"size:255" json:"productName,omitempty"`
	Quantity    int32  `gorm:"not null" json:"quantity"`
	// price at purchase
	Price     Money     `gorm:"not null" json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i *OrderItem) LineTotal() Money {
	return i.Price * Money(i.Quantity)
}

// OrderTimelineEntry is append-only; ID order is creation order.
type OrderTimelineEntry struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	OrderID   string            `gorm:"size:36;index;not null" json:"orderId"`
	Status    string            `gorm:"size:32;not null" json:"status"`
	Message   string            `gorm:"size:512" json:"message"`
	Metadata  map[string]string `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
	CreatedBy string            `gorm:"size:64;not null" json:"createdBy"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (OrderTimelineEntry) TableName() string {
	return "order_timeline"
}

// Address is a snapshot owned by a single order.
type Address struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:64;index;not null" json:"userId"`
	FullName     string    `gorm:"size:255;not null" json:"fullName"`
	AddressLine1 string    `gorm:"size:255;not null" json:"addressLine1"`
	AddressLine2 string    `gorm:"size:255" json:"addressLine2,omitempty"`
	City         string    `gorm:"size:128;not null" json:"city"`
	State        string    `gorm:"size:128;not null" json:"state"`
	PostalCode   string    `gorm:"size:32;not null" json:"postalCode"`
	Country      string    `gorm:"size:64;not null" json:"country"`
	Phone        string    `gorm:"size:32;not null" json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
