package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusPaymentPending},
		{OrderStatusPending, OrderStatusFailed},
		{OrderStatusPaymentPending, OrderStatusConfirmed},
		{OrderStatusPaymentPending, OrderStatusFailed},
		{OrderStatusConfirmed, OrderStatusProcessing},
		{OrderStatusConfirmed, OrderStatusOnHold},
		{OrderStatusOnHold, OrderStatusProcessing},
		{OrderStatusOnHold, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusOutForDelivery},
		{OrderStatusOutForDelivery, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusRefunded},
		{OrderStatusFailed, OrderStatusPending},
	}
	for _, tt := range allowed {
		assert.Truef(t, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	rejected := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusConfirmed, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusRefunded, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatus("BOGUS"), OrderStatusPending},
	}
	for _, tt := range rejected {
		assert.Falsef(t, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatusTerminalAndCancel(t *testing.T) {
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.False(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatus("BOGUS").IsTerminal())

	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusPaymentPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusOnHold} {
		assert.True(t, s.CanCancel(), s)
		assert.True(t, s.CanTransitionTo(OrderStatusCancelled), s)
	}
	assert.False(t, OrderStatusShipped.CanCancel())
}

func TestNextStatusesIsACopy(t *testing.T) {
	next := OrderStatusConfirmed.NextStatuses()
	next[0] = OrderStatusRefunded
	assert.Equal(t, OrderStatusProcessing, OrderStatusConfirmed.NextStatuses()[0])
}

func TestParseStatuses(t *testing.T) {
	s, err := ParseOrderStatus("SHIPPED")
	assert.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)

	p, err := ParsePaymentStatus("CAPTURED")
	assert.NoError(t, err)
	assert.Equal(t, PaymentStatusCaptured, p)
	_, err = ParsePaymentStatus("")
	assert.Error(t, err)

	f, err := ParseFulfillmentStatus("FULFILLED")
	assert.NoError(t, err)
	assert.Equal(t, FulfillmentStatusFulfilled, f)
	_, err = ParseFulfillmentStatus("LOST")
	assert.Error(t, err)
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusAuthorized))
	assert.True(t, PaymentStatusAuthorized.CanTransitionTo(PaymentStatusCaptured))
	assert.True(t, PaymentStatusAuthorized.CanTransitionTo(PaymentStatusExpired))
	assert.True(t, PaymentStatusCaptured.CanTransitionTo(PaymentStatusPartiallyRefunded))
	assert.True(t, PaymentStatusPartiallyCaptured.CanTransitionTo(PaymentStatusRefunded))
	assert.True(t, PaymentStatusPartiallyRefunded.CanTransitionTo(PaymentStatusRefunded))

	// refunds only after capture
	assert.False(t, PaymentStatusAuthorized.CanTransitionTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPartiallyRefunded))
	assert.False(t, PaymentStatusDeclined.CanTransitionTo(PaymentStatusAuthorized))

	for _, s := range []PaymentStatus{PaymentStatusDeclined, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled, PaymentStatusRefunded} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestFulfillmentStatusTransitions(t *testing.T) {
	assert.True(t, FulfillmentStatusUnfulfilled.CanTransitionTo(FulfillmentStatusFulfilled))
	assert.True(t, FulfillmentStatusUnfulfilled.CanTransitionTo(FulfillmentStatusPartiallyFulfilled))
	assert.True(t, FulfillmentStatusFulfilled.CanTransitionTo(FulfillmentStatusRestocked))
	assert.False(t, FulfillmentStatusUnfulfilled.CanTransitionTo(FulfillmentStatusRestocked))
	assert.False(t, FulfillmentStatusFulfilled.CanTransitionTo(FulfillmentStatusUnfulfilled))
	assert.True(t, FulfillmentStatusRestocked.IsTerminal())
}

func TestCanRefund(t *testing.T) {
	assert.True(t, CanRefund(OrderStatusConfirmed, PaymentStatusAuthorized))
	assert.True(t, CanRefund(OrderStatusDelivered, PaymentStatusCaptured))
	assert.False(t, CanRefund(OrderStatusPending, PaymentStatusCaptured))
	assert.False(t, CanRefund(OrderStatusShipped, PaymentStatusRefunded))
}

func TestCanReturn(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * 24 * time.Hour)
	old := now.Add(-31 * 24 * time.Hour)

	assert.True(t, CanReturn(OrderStatusDelivered, &recent, now))
	assert.False(t, CanReturn(OrderStatusDelivered, &old, now))
	assert.False(t, CanReturn(OrderStatusDelivered, nil, now))
	assert.False(t, CanReturn(OrderStatusShipped, &recent, now))
}

func TestCompletionPercent(t *testing.T) {
	assert.Equal(t, 10, OrderStatusPending.CompletionPercent())
	assert.Equal(t, 30, OrderStatusConfirmed.CompletionPercent())
	assert.Equal(t, 100, OrderStatusDelivered.CompletionPercent())
	assert.Equal(t, 0, OrderStatusCancelled.CompletionPercent())
}
