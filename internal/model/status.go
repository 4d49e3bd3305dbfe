package model

import (
	"fmt"
	"time"
)

// OrderStatus is the customer-facing lifecycle stage of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusOnHold         OrderStatus = "ON_HOLD"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
	OrderStatusFailed         OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusPaymentPending, OrderStatusConfirmed, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusPaymentPending: {OrderStatusConfirmed, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusOnHold, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusOnHold, OrderStatusCancelled},
	OrderStatusOnHold:         {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusFailed},
	OrderStatusDelivered:      {OrderStatusRefunded},
	OrderStatusFailed:         {OrderStatusPending},
	OrderStatusCancelled:      nil,
	OrderStatusRefunded:       nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// NextStatuses returns the statuses reachable from s in one step.
func (s OrderStatus) NextStatuses() []OrderStatus {
	return append([]OrderStatus(nil), orderTransitions[s]...)
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanCancel() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaymentPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusOnHold:
		return true
	}
	return false
}

// CompletionPercent is the progress shown to the customer.
func (s OrderStatus) CompletionPercent() int {
	switch s {
	case OrderStatusPending:
		return 10
	case OrderStatusPaymentPending:
		return 20
	case OrderStatusConfirmed:
		return 30
	case OrderStatusOnHold:
		return 40
	case OrderStatusProcessing:
		return 50
	case OrderStatusShipped:
		return 70
	case OrderStatusOutForDelivery:
		return 90
	case OrderStatusDelivered:
		return 100
	}
	return 0
}

// PaymentStatus is the money-movement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusPendingReview     PaymentStatus = "PENDING_REVIEW"
	PaymentStatusAuthorized        PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured          PaymentStatus = "CAPTURED"
	PaymentStatusPartiallyCaptured PaymentStatus = "PARTIALLY_CAPTURED"
	PaymentStatusDeclined          PaymentStatus = "DECLINED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusExpired           PaymentStatus = "EXPIRED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusAuthorized, PaymentStatusDeclined, PaymentStatusFailed, PaymentStatusPendingReview, PaymentStatusCancelled},
	PaymentStatusPendingReview:     {PaymentStatusAuthorized, PaymentStatusDeclined, PaymentStatusCancelled},
	PaymentStatusAuthorized:        {PaymentStatusCaptured, PaymentStatusPartiallyCaptured, PaymentStatusExpired, PaymentStatusCancelled, PaymentStatusFailed},
	PaymentStatusPartiallyCaptured: {PaymentStatusCaptured, PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusCaptured:          {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
	PaymentStatusDeclined:          nil,
	PaymentStatusFailed:            nil,
	PaymentStatusExpired:           nil,
	PaymentStatusCancelled:         nil,
	PaymentStatusRefunded:          nil,
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown payment status %q", s)
	}
	return st, nil
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) NextStatuses() []PaymentStatus {
	return append([]PaymentStatus(nil), paymentTransitions[s]...)
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s.Valid() && len(paymentTransitions[s]) == 0
}

// FulfillmentStatus is the physical shipment state of an order.
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled        FulfillmentStatus = "UNFULFILLED"
	FulfillmentStatusPartiallyFulfilled FulfillmentStatus = "PARTIALLY_FULFILLED"
	FulfillmentStatusFulfilled          FulfillmentStatus = "FULFILLED"
	FulfillmentStatusRestocked          FulfillmentStatus = "RESTOCKED"
)

var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusUnfulfilled:        {FulfillmentStatusPartiallyFulfilled, FulfillmentStatusFulfilled},
	FulfillmentStatusPartiallyFulfilled: {FulfillmentStatusFulfilled, FulfillmentStatusRestocked},
	FulfillmentStatusFulfilled:          {FulfillmentStatusRestocked},
	FulfillmentStatusRestocked:          nil,
}

func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	st := FulfillmentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown fulfillment status %q", s)
	}
	return st, nil
}

func (s FulfillmentStatus) Valid() bool {
	_, ok := fulfillmentTransitions[s]
	return ok
}

func (s FulfillmentStatus) NextStatuses() []FulfillmentStatus {
	return append([]FulfillmentStatus(nil), fulfillmentTransitions[s]...)
}

func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	for _, candidate := range fulfillmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s FulfillmentStatus) IsTerminal() bool {
	return s.Valid() && len(fulfillmentTransitions[s]) == 0
}

const returnWindow = 30 * 24 * time.Hour

// CanRefund requires both a refundable order stage and money that has actually moved.
func CanRefund(order OrderStatus, payment PaymentStatus) bool {
	switch order {
	case OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
	default:
		return false
	}
	switch payment {
	case PaymentStatusAuthorized, PaymentStatusCaptured, PaymentStatusPartiallyCaptured:
		return true
	}
	return false
}

// CanReturn allows returns of delivered orders within 30 days of delivery.
func CanReturn(order OrderStatus, deliveredAt *time.Time, now time.Time) bool {
	if order != OrderStatusDelivered || deliveredAt == nil {
		return false
	}
	return now.Sub(*deliveredAt) <= returnWindow
}
