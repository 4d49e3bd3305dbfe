package client

import (
	"context"
	"errors"
	"regexp"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"
	"testing"
	"time"

	"github.com/braintree-go/braintree-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactions struct {
	mock.Mock
}

func (m *MockTransactions) Create(ctx context.Context, req *braintree.TransactionRequest) (*braintree.Transaction, error) {
	args := m.Called(ctx, req)
	if tx := args.Get(0); tx != nil {
		return tx.(*braintree.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func chargeRequest() *ChargeRequest {
	return &ChargeRequest{
		Amount:      2200,
		ReferenceID: "12345678-abc123",
		Card: Card{
			Number:         "4111111111111111",
			ExpiryMonth:    "12",
			ExpiryYear:     "2030",
			CVV:            "123",
			CardholderName: "Ada Lovelace",
		},
		Billing: &model.Address{
			FullName:     "Ada King Lovelace",
			AddressLine1: "1 Analytical Way",
			City:         "London",
			State:        "LDN",
			PostalCode:   "N1",
			Country:      "GB",
			Phone:        "555",
		},
	}
}

func TestAuthorizeAndCapture(t *testing.T) {
	t.Run("approved", func(t *testing.T) {
		txs := new(MockTransactions)
		c := &braintreeClientImpl{transactions: txs, timeout: time.Second}

		txs.On("Create", mock.Anything, mock.MatchedBy(func(req *braintree.TransactionRequest) bool {
			return req.Type == "sale" &&
				req.OrderId == "12345678-abc123" &&
				req.Options != nil && req.Options.SubmitForSettlement &&
				req.CreditCard.Number == "4111111111111111" &&
				req.BillingAddress.FirstName == "Ada" &&
				req.BillingAddress.LastName == "King Lovelace"
		})).Return(&braintree.Transaction{
			Id:                         "T1",
			Status:                     braintree.TransactionStatusSubmittedForSettlement,
			ProcessorAuthorizationCode: "AUTH1",
			ProcessorResponseText:      "Approved",
		}, nil).Once()

		res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

		require.NoError(t, err)
		assert.True(t, res.Approved())
		assert.Equal(t, "T1", res.TransactionID)
		assert.Equal(t, "AUTH1", res.AuthorizationCode)
		txs.AssertExpectations(t)
	})

	t.Run("processor declined", func(t *testing.T) {
		txs := new(MockTransactions)
		c := &braintreeClientImpl{transactions: txs}

		txs.On("Create", mock.Anything, mock.Anything).Return(&braintree.Transaction{
			Id:                    "T2",
			Status:                braintree.TransactionStatusProcessorDeclined,
			ProcessorResponseCode: 2000,
			ProcessorResponseText: "Do Not Honor",
		}, nil).Once()

		res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

		require.NoError(t, err)
		assert.Equal(t, ChargeDeclined, res.Outcome)
		assert.Equal(t, "2000", res.ErrorCode)
		assert.Equal(t, "Do Not Honor", res.Message)
		assert.False(t, res.Duplicate)
	})

	t.Run("declined inside api error", func(t *testing.T) {
		txs := new(MockTransactions)
		c := &braintreeClientImpl{transactions: txs}

		txs.On("Create", mock.Anything, mock.Anything).Return(nil, &braintree.BraintreeError{
			Transaction: &braintree.Transaction{
				Id:                     "T3",
				Status:                 braintree.TransactionStatusGatewayRejected,
				GatewayRejectionReason: "duplicate",
			},
		}).Once()

		res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

		require.NoError(t, err)
		assert.Equal(t, ChargeDeclined, res.Outcome)
		assert.True(t, res.Duplicate)
		assert.Equal(t, "11", res.ErrorCode)
		assert.Contains(t, res.Message, "appears to be a duplicate")
	})

	t.Run("network failure is a gateway error and is not retried", func(t *testing.T) {
		txs := new(MockTransactions)
		c := &braintreeClientImpl{transactions: txs}

		txs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

		res, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

		assert.Nil(t, res)
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		txs.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("timeout", func(t *testing.T) {
		txs := new(MockTransactions)
		c := &braintreeClientImpl{transactions: txs}

		txs.On("Create", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Once()

		_, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "request timed out", gwErr.Description)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("malformed response", func(t *testing.T) {
		txs := new(MockTransactions)
		c := &braintreeClientImpl{transactions: txs}

		txs.On("Create", mock.Anything, mock.Anything).Return(&braintree.Transaction{}, nil).Once()

		_, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

		var gwErr *GatewayError
		assert.ErrorAs(t, err, &gwErr)
	})
}

func TestUnconfiguredGateway(t *testing.T) {
	c := NewBraintreeClient(&config.Braintree{Environment: "sandbox"})

	_, err := c.AuthorizeAndCapture(context.Background(), chargeRequest())

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}

func TestNewReferenceID(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{8}-[0-9a-z]{6}$`)
	now := time.Now()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewReferenceID(now)
		assert.LessOrEqual(t, len(id), MaxReferenceIDLength)
		assert.Regexp(t, pattern, id)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate reference id %s", id)
		seen[id] = struct{}{}
	}
}
