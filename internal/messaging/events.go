package messaging

import (
	"storefront-checkout/internal/model"
	"time"
)

type OrderConfirmedEvent struct {
	OrderID       string      `json:"orderId"`
	OrderNumber   string      `json:"orderNumber"`
	UserID        string      `json:"userId"`
	Total         model.Money `json:"total"`
	Currency      string      `json:"currency"`
	TransactionID string      `json:"transactionId"`
	ConfirmedAt   time.Time   `json:"confirmedAt"`
}

// ReconciliationEvent reports a charge with no matching order.
type ReconciliationEvent struct {
	TransactionID     string      `json:"transactionId"`
	AuthorizationCode string      `json:"authorizationCode"`
	ReferenceID       string      `json:"referenceId"`
	OrderNumber       string      `json:"orderNumber"`
	UserID            string      `json:"userId"`
	Amount            model.Money `json:"amount"`
	Currency          string      `json:"currency"`
	Reason            string      `json:"reason"`
	OccurredAt        time.Time   `json:"occurredAt"`
}
