package client

import (
	"context"
	"errors"
	"fmt"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"
	"strings"
	"time"

	"github.com/braintree-go/braintree-go"
)

// --- INTERFACE ---

type PaymentGateway interface {
	// AuthorizeAndCapture charges the card once and submits it for settlement.
	// A declined card is a result, not an error; a non-nil error is always a *GatewayError.
	// Implementations never retry.
	AuthorizeAndCapture(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}

type Card struct {
	Number         string
	ExpiryMonth    string
	ExpiryYear     string
	CVV            string
	CardholderName string
}

type ChargeRequest struct {
	Amount      model.Money
	Card        Card
	Billing     *model.Address
	ReferenceID string
}

type ChargeOutcome string

const (
	ChargeApproved ChargeOutcome = "approved"
	ChargeDeclined ChargeOutcome = "declined"
)

type ChargeResult struct {
	Outcome ChargeOutcome

	// approved
	TransactionID     string
	AuthorizationCode string

	// declined
	ErrorCode string
	Duplicate bool

	Message string
}

func (r *ChargeResult) Approved() bool {
	return r.Outcome == ChargeApproved
}

// GatewayError covers network failures, timeouts, malformed responses and missing credentials.
type GatewayError struct {
	Description string
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %s: %v", e.Description, e.Err)
	}
	return "payment gateway: " + e.Description
}

func (e *GatewayError) Unwrap() error { return e.Err }

const (
	duplicateErrorCode = "11"
	duplicateMessage   = "This transaction appears to be a duplicate. Please wait a moment before trying again, or change the transaction amount."
)

var ErrGatewayNotConfigured = errors.New("payment gateway not configured")

// --- IMPLEMENTATION ---

type transactionCreator interface {
	Create(ctx context.Context, req *braintree.TransactionRequest) (*braintree.Transaction, error)
}

type braintreeClientImpl struct {
	transactions transactionCreator
	timeout      time.Duration
}

// NewBraintreeClient initializes the Braintree SDK gateway. Missing credentials produce a
// client that reports every charge as a gateway error.
func NewBraintreeClient(cfg *config.Braintree) PaymentGateway {
	if !cfg.Configured() {
		return &braintreeClientImpl{timeout: cfg.Timeout}
	}

	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeClientImpl{
		transactions: gateway.Transaction(),
		timeout:      cfg.Timeout,
	}
}

// --- METHODS ---

func (c *braintreeClientImpl) AuthorizeAndCapture(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if c.transactions == nil {
		return nil, &GatewayError{Description: ErrGatewayNotConfigured.Error(), Err: ErrGatewayNotConfigured}
	}
	if req.Amount <= 0 {
		return nil, &GatewayError{Description: "amount must be positive"}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// Braintree expects NewDecimal(unscaled, scale); amounts are already in cents.
	txReq := &braintree.TransactionRequest{
		Type:    "sale",
		Amount:  braintree.NewDecimal(int64(req.Amount), 2),
		OrderId: req.ReferenceID,
		CreditCard: &braintree.CreditCard{
			Number:          req.Card.Number,
			ExpirationMonth: req.Card.ExpiryMonth,
			ExpirationYear:  req.Card.ExpiryYear,
			CVV:             req.Card.CVV,
			CardholderName:  req.Card.CardholderName,
		},
		BillingAddress: toBraintreeAddress(req.Billing),
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true, // Captures the funds immediately
		},
	}

	tx, err := c.transactions.Create(ctx, txReq)
	if err != nil {
		return mapCreateError(err)
	}
	return mapTransaction(tx)
}

func mapCreateError(err error) (*ChargeResult, error) {
	var btErr *braintree.BraintreeError
	if errors.As(err, &btErr) && btErr.Transaction != nil {
		// validation passed but the processor or gateway refused the charge
		return mapTransaction(btErr.Transaction)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &GatewayError{Description: "request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return nil, &GatewayError{Description: "request cancelled", Err: err}
	}
	return nil, &GatewayError{Description: "transaction creation failed", Err: err}
}

func mapTransaction(tx *braintree.Transaction) (*ChargeResult, error) {
	if tx == nil || tx.Id == "" {
		return nil, &GatewayError{Description: "malformed gateway response"}
	}

	switch tx.Status {
	case braintree.TransactionStatusSubmittedForSettlement,
		braintree.TransactionStatusSettling,
		braintree.TransactionStatusSettled,
		braintree.TransactionStatusAuthorized:
		return &ChargeResult{
			Outcome:           ChargeApproved,
			TransactionID:     tx.Id,
			AuthorizationCode: tx.ProcessorAuthorizationCode,
			Message:           tx.ProcessorResponseText,
		}, nil

	case braintree.TransactionStatusProcessorDeclined,
		braintree.TransactionStatusSettlementDeclined:
		return &ChargeResult{
			Outcome:   ChargeDeclined,
			ErrorCode: fmt.Sprintf("%d", tx.ProcessorResponseCode),
			Message:   tx.ProcessorResponseText,
		}, nil

	case braintree.TransactionStatusGatewayRejected:
		reason := string(tx.GatewayRejectionReason)
		if strings.EqualFold(reason, "duplicate") {
			return &ChargeResult{
				Outcome:   ChargeDeclined,
				ErrorCode: duplicateErrorCode,
				Duplicate: true,
				Message:   duplicateMessage,
			}, nil
		}
		return &ChargeResult{
			Outcome:   ChargeDeclined,
			ErrorCode: reason,
			Message:   "Transaction rejected by payment gateway: " + reason,
		}, nil
	}

	return nil, &GatewayError{Description: fmt.Sprintf("unexpected transaction status %q", tx.Status)}
}

func toBraintreeAddress(a *model.Address) *braintree.Address {
	if a == nil {
		return nil
	}
	first, last := splitName(a.FullName)
	return &braintree.Address{
		FirstName:         first,
		LastName:          last,
		StreetAddress:     a.AddressLine1,
		ExtendedAddress:   a.AddressLine2,
		Locality:          a.City,
		Region:            a.State,
		PostalCode:        a.PostalCode,
		CountryCodeAlpha2: a.Country,
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
