package dto

import (
	"storefront-checkout/internal/model"
	"time"
)

// amounts are bounded by model.MaxAmount, quantities keep every line total inside int64
type Item struct {
	ProductID string      `json:"productId" validate:"notblank,max=64"`
	Quantity  int32       `json:"quantity" validate:"gte=1,lte=10000"`
	Price     model.Money `json:"price" validate:"gte=0,lte=100000000000"`
}

type Address struct {
	FullName     string `json:"fullName" validate:"notblank,max=255"`
	AddressLine1 string `json:"addressLine1" validate:"notblank,max=255"`
	AddressLine2 string `json:"addressLine2" validate:"max=255"`
	City         string `json:"city" validate:"notblank,max=128"`
	State        string `json:"state" validate:"notblank,max=128"`
	PostalCode   string `json:"postalCode" validate:"notblank,max=32"`
	Country      string `json:"country" validate:"max=64"`
	Phone        string `json:"phone" validate:"notblank,max=32"`
}

type CheckoutRequest struct {
	Items           []*Item  `json:"items" validate:"required,min=1,max=100,dive,required"`
	ShippingAddress *Address `json:"shippingAddress" validate:"required"`
	BillingAddress  *Address `json:"billingAddress" validate:"required"`

	PaymentMethod  string `json:"paymentMethod" validate:"max=32"`
	CardNumber     string `json:"cardNumber" validate:"notblank,max=32"`
	ExpiryMonth    string `json:"expiryMonth" validate:"notblank,max=2"`
	ExpiryYear     string `json:"expiryYear" validate:"notblank,max=4"`
	CVV            string `json:"cvv" validate:"notblank,max=4"`
	CardholderName string `json:"cardholderName" validate:"notblank,max=255"`

	Subtotal model.Money `json:"subtotal" validate:"gte=0,lte=100000000000"`
	Tax      model.Money `json:"tax" validate:"gte=0,lte=100000000000"`
	Shipping model.Money `json:"shipping" validate:"gte=0,lte=100000000000"`
	Discount model.Money `json:"discount" validate:"gte=0,lte=100000000000"`
	Total    model.Money `json:"total" validate:"gte=0,lte=100000000000"`
}

type StatusUpdateRequest struct {
	Status            string `json:"status" validate:"max=32"`
	PaymentStatus     string `json:"paymentStatus" validate:"max=32"`
	FulfillmentStatus string `json:"fulfillmentStatus" validate:"max=32"`
	Message           string `json:"message" validate:"max=512"`
}

// OrderDetail is an order plus what can still happen to it.
type OrderDetail struct {
	*model.Order

	ItemsTotal              model.Money               `json:"itemsTotal"`
	NextStatuses            []model.OrderStatus       `json:"nextStatuses"`
	NextPaymentStatuses     []model.PaymentStatus     `json:"nextPaymentStatuses"`
	NextFulfillmentStatuses []model.FulfillmentStatus `json:"nextFulfillmentStatuses"`
	IsTerminal              bool                      `json:"isTerminal"`
	CanCancel               bool                      `json:"canCancel"`
	CanRefund               bool                      `json:"canRefund"`
	CanReturn               bool                      `json:"canReturn"`
	CompletionPercent       int                       `json:"completionPercent"`
}

func NewOrderDetail(order *model.Order, now time.Time) *OrderDetail {
	var itemsTotal model.Money
	for _, item := range order.Items {
		itemsTotal += item.LineTotal()
	}
	return &OrderDetail{
		Order:                   order,
		ItemsTotal:              itemsTotal,
		NextStatuses:            order.Status.NextStatuses(),
		NextPaymentStatuses:     order.PaymentStatus.NextStatuses(),
		NextFulfillmentStatuses: order.FulfillmentStatus.NextStatuses(),
		IsTerminal:              order.Status.IsTerminal(),
		CanCancel:               order.Status.CanCancel(),
		CanRefund:               model.CanRefund(order.Status, order.PaymentStatus),
		CanReturn:               model.CanReturn(order.Status, order.DeliveredAt, now),
		CompletionPercent:       order.Status.CompletionPercent(),
	}
}

type ErrorResponse struct {
	Error         string `json:"error"`
	TransactionID string `json:"transactionId,omitempty"`
}

type DeclinedResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}
