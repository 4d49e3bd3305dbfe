package service

import (
	"context"
	"errors"
	"fmt"
	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/messaging"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("service/checkout")

type CheckoutService interface {
	// CreateOrder charges the card and records the order. idempotencyKey may be empty.
	CreateOrder(ctx context.Context, userID, idempotencyKey string, req *dto.CheckoutRequest) (*model.Order, error)
}

// CheckoutOptions holds the optional collaborators of the checkout service.
type CheckoutOptions struct {
	Idempotency          cache.IdempotencyStore // nil disables replay protection
	OrderEvents          messaging.Publisher
	ReconciliationEvents messaging.Publisher
	Metrics              *metrics.CheckoutMetrics
	Currency             string
	PersistTimeout       time.Duration // bounds the order write once the card is charged
	Now                  func() time.Time
}

const defaultPersistTimeout = 30 * time.Second

type checkoutServiceImpl struct {
	txr         repository.Transactor
	gateway     client.PaymentGateway
	orderRepo   repository.OrderRepository
	addressRepo repository.AddressRepository
	productRepo repository.ProductRepository

	idempotency    cache.IdempotencyStore
	orderEvents    messaging.Publisher
	reconciliation messaging.Publisher
	metrics        *metrics.CheckoutMetrics
	currency       string
	persistTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func NewCheckoutService(
	txr repository.Transactor,
	gateway client.PaymentGateway,
	orderRepo repository.OrderRepository,
	addressRepo repository.AddressRepository,
	productRepo repository.ProductRepository,
	opts CheckoutOptions,
	logger *zap.Logger,
) CheckoutService {
	s := &checkoutServiceImpl{
		txr:            txr,
		gateway:        gateway,
		orderRepo:      orderRepo,
		addressRepo:    addressRepo,
		productRepo:    productRepo,
		idempotency:    opts.Idempotency,
		orderEvents:    opts.OrderEvents,
		reconciliation: opts.ReconciliationEvents,
		metrics:        opts.Metrics,
		currency:       opts.Currency,
		persistTimeout: opts.PersistTimeout,
		now:            opts.Now,
		logger:         logger,
	}
	if s.orderEvents == nil {
		s.orderEvents = messaging.NopPublisher{}
	}
	if s.reconciliation == nil {
		s.reconciliation = messaging.NopPublisher{}
	}
	if s.currency == "" {
		s.currency = "USD"
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = defaultPersistTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *checkoutServiceImpl) CreateOrder(ctx context.Context, userID, idempotencyKey string, req *dto.CheckoutRequest) (order *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "checkout.create_order")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := validateCheckout(userID, req); err != nil {
		s.metrics.ObserveCheckout(metrics.OutcomeValidationFailed)
		return nil, err
	}

	productNames, err := s.lookupProducts(ctx, req.Items)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			s.metrics.ObserveCheckout(metrics.OutcomeValidationFailed)
		} else {
			s.metrics.ObserveCheckout(metrics.OutcomeError)
		}
		return nil, err
	}

	key := ""
	if idempotencyKey != "" && s.idempotency != nil {
		key = userID + ":" + idempotencyKey
		existing, done, err := s.reserve(ctx, key)
		if done {
			return existing, err
		}
	}

	charge, err := s.authorize(ctx, userID, req)
	if err != nil {
		s.release(ctx, key)
		return nil, err
	}

	// the card is charged: a disconnecting client must not abort the write
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	order = s.buildOrder(userID, req, charge, productNames)
	if err := s.persist(persistCtx, order); err != nil {
		return nil, s.persistenceFailed(ctx, order, charge, err)
	}

	if stored, err := s.orderRepo.FindByID(persistCtx, order.ID); err != nil {
		s.logger.Warn("failed to reload committed order", zap.String("order_id", order.ID), zap.Error(err))
	} else {
		order = stored
	}

	s.complete(ctx, key, order.ID)
	s.metrics.ObserveCheckout(metrics.OutcomeConfirmed)
	s.publishConfirmed(ctx, order)

	s.logger.Info("order confirmed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID),
		zap.String("transaction_id", order.TransactionID),
		zap.String("total", order.Total.String()),
	)
	return order, nil
}

func (s *checkoutServiceImpl) lookupProducts(ctx context.Context, items []*dto.Item) (map[string]string, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			return nil, invalid("items", "Unknown product %s", id)
		}
	}
	return names, nil
}

// reserve returns done=true when the request must not charge: a replayed checkout,
// one still in flight, or an unavailable store.
func (s *checkoutServiceImpl) reserve(ctx context.Context, key string) (*model.Order, bool, error) {
	res, err := s.idempotency.Reserve(ctx, key)
	if err != nil {
		s.metrics.ObserveCheckout(metrics.OutcomeError)
		return nil, true, fmt.Errorf("idempotency store unavailable: %w", err)
	}

	switch res.State {
	case cache.ReservationCompleted:
		order, err := s.orderRepo.FindByID(ctx, res.OrderID)
		if err != nil {
			return nil, true, fmt.Errorf("load replayed order %s: %w", res.OrderID, err)
		}
		s.metrics.ObserveCheckout(metrics.OutcomeReplayed)
		return order, true, nil
	case cache.ReservationInProgress:
		s.metrics.ObserveCheckout(metrics.OutcomeInProgress)
		return nil, true, &CheckoutInProgressError{Key: key}
	}
	return nil, false, nil
}

type approvedCharge struct {
	referenceID       string
	transactionID     string
	authorizationCode string
}

func (s *checkoutServiceImpl) authorize(ctx context.Context, userID string, req *dto.CheckoutRequest) (*approvedCharge, error) {
	ctx, span := tracer.Start(ctx, "checkout.authorize")
	defer span.End()

	referenceID := client.NewReferenceID(s.now())
	span.SetAttributes(attribute.String("payment.reference_id", referenceID))

	start := time.Now()
	result, err := s.gateway.AuthorizeAndCapture(ctx, &client.ChargeRequest{
		Amount:      req.Total,
		ReferenceID: referenceID,
		Billing:     toAddress(userID, req.BillingAddress),
		Card: client.Card{
			Number:         req.CardNumber,
			ExpiryMonth:    req.ExpiryMonth,
			ExpiryYear:     req.ExpiryYear,
			CVV:            req.CVV,
			CardholderName: req.CardholderName,
		},
	})

	if err != nil {
		s.metrics.ObserveGateway("error", time.Since(start))
		s.metrics.ObserveCheckout(metrics.OutcomeGatewayUnavailable)
		s.logger.Warn("payment gateway unavailable",
			zap.String("user_id", userID),
			zap.String("reference_id", referenceID),
			zap.Error(err),
		)

		msg := "Payment service is temporarily unavailable. Please try again."
		if errors.Is(err, client.ErrGatewayNotConfigured) {
			msg = "Payment gateway not configured"
		}
		return nil, &PaymentGatewayUnavailableError{Message: msg, Err: err}
	}

	if !result.Approved() {
		s.metrics.ObserveGateway("declined", time.Since(start))
		s.metrics.ObserveCheckout(metrics.OutcomeDeclined)
		s.logger.Info("payment declined",
			zap.String("user_id", userID),
			zap.String("reference_id", referenceID),
			zap.String("error_code", result.ErrorCode),
		)

		msg := result.Message
		if msg == "" {
			msg = "Payment was declined"
		}
		return nil, &PaymentDeclinedError{Code: result.ErrorCode, Message: msg, Duplicate: result.Duplicate}
	}

	s.metrics.ObserveGateway("approved", time.Since(start))
	return &approvedCharge{
		referenceID:       referenceID,
		transactionID:     result.TransactionID,
		authorizationCode: result.AuthorizationCode,
	}, nil
}

func (s *checkoutServiceImpl) buildOrder(userID string, req *dto.CheckoutRequest, charge *approvedCharge, productNames map[string]string) *model.Order {
	now := s.now()
	receipt := fmt.Sprintf("RCP-%d-%s", now.UnixMilli(), charge.transactionID)

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = model.PaymentMethodCreditCard
	}

	order := &model.Order{
		ID:                uuid.NewString(),
		OrderNumber:       newOrderNumber(now),
		UserID:            userID,
		Status:            model.OrderStatusConfirmed,
		PaymentStatus:     model.PaymentStatusAuthorized,
		FulfillmentStatus: model.FulfillmentStatusUnfulfilled,
		Subtotal:          req.Subtotal,
		Tax:               req.Tax,
		Shipping:          req.Shipping,
		Discount:          req.Discount,
		Total:             req.Total,
		Currency:          s.currency,
		PaymentMethod:     paymentMethod,
		PaymentProvider:   model.PaymentProviderBraintree,
		TransactionID:     charge.transactionID,
		AuthorizationCode: charge.authorizationCode,
		ReceiptNumber:     receipt,
		ShippingAddress:   toAddress(userID, req.ShippingAddress),
		BillingAddress:    toAddress(userID, req.BillingAddress),
		ConfirmedAt:       &now,
	}

	for _, item := range req.Items {
		order.Items = append(order.Items, &model.OrderItem{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: productNames[item.ProductID],
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	order.Timeline = []*model.OrderTimelineEntry{
		{
			OrderID:   order.ID,
			Status:    string(model.OrderStatusPending),
			Message:   "Order created by customer",
			CreatedBy: userID,
		},
		{
			OrderID:   order.ID,
			Status:    string(model.OrderStatusConfirmed),
			Message:   "Payment authorized - Transaction ID: " + charge.transactionID,
			CreatedBy: model.AuthorPaymentGateway,
			Metadata: map[string]string{
				"transactionId":     charge.transactionID,
				"authorizationCode": charge.authorizationCode,
				"referenceId":       charge.referenceID,
				"receiptNumber":     receipt,
			},
		},
	}
	return order
}

// persist writes both addresses, the order, its items and its timeline as one unit.
func (s *checkoutServiceImpl) persist(ctx context.Context, order *model.Order) error {
	ctx, span := tracer.Start(ctx, "checkout.persist")
	defer span.End()

	return s.txr.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.addressRepo.Create(ctx, tx, order.ShippingAddress); err != nil {
			return fmt.Errorf("create shipping address: %w", err)
		}
		if err := s.addressRepo.Create(ctx, tx, order.BillingAddress); err != nil {
			return fmt.Errorf("create billing address: %w", err)
		}
		order.ShippingAddressID = order.ShippingAddress.ID
		order.BillingAddressID = order.BillingAddress.ID

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		if err := s.orderRepo.AppendTimeline(ctx, tx, order.Timeline...); err != nil {
			return fmt.Errorf("create order timeline: %w", err)
		}
		return nil
	})
}

func (s *checkoutServiceImpl) persistenceFailed(ctx context.Context, order *model.Order, charge *approvedCharge, cause error) error {
	s.metrics.ObserveCheckout(metrics.OutcomePersistenceFailed)
	s.metrics.ReconciliationRequired()

	s.logger.Error("order persistence failed after payment, manual reconciliation required",
		zap.String("transaction_id", charge.transactionID),
		zap.String("authorization_code", charge.authorizationCode),
		zap.String("reference_id", charge.referenceID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.String("amount", order.Total.String()),
		zap.Error(cause),
	)

	// the request may already be cancelled; the operator still needs the event
	pubCtx := context.WithoutCancel(ctx)
	event := messaging.ReconciliationEvent{
		TransactionID:     charge.transactionID,
		AuthorizationCode: charge.authorizationCode,
		ReferenceID:       charge.referenceID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		Amount:            order.Total,
		Currency:          order.Currency,
		Reason:            cause.Error(),
		OccurredAt:        s.now(),
	}
	if err := s.reconciliation.Publish(pubCtx, charge.transactionID, event); err != nil {
		s.logger.Error("failed to publish reconciliation event",
			zap.String("transaction_id", charge.transactionID),
			zap.Error(err),
		)
	}

	return &OrderPersistenceFailedAfterPaymentError{
		TransactionID: charge.transactionID,
		ReferenceID:   charge.referenceID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.Total,
		Err:           cause,
	}
}

func (s *checkoutServiceImpl) publishConfirmed(ctx context.Context, order *model.Order) {
	event := messaging.OrderConfirmedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Total:         order.Total,
		Currency:      order.Currency,
		TransactionID: order.TransactionID,
		ConfirmedAt:   *order.ConfirmedAt,
	}
	if err := s.orderEvents.Publish(context.WithoutCancel(ctx), order.ID, event); err != nil {
		s.logger.Warn("failed to publish order confirmed event", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *checkoutServiceImpl) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *checkoutServiceImpl) complete(ctx context.Context, key, orderID string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Complete(context.WithoutCancel(ctx), key, orderID); err != nil {
		s.logger.Warn("failed to complete idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

func toAddress(userID string, a *dto.Address) *model.Address {
	country := a.Country
	if country == "" {
		country = "US"
	}
	return &model.Address{
		UserID:       userID,
		FullName:     strings.TrimSpace(a.FullName),
		AddressLine1: strings.TrimSpace(a.AddressLine1),
		AddressLine2: strings.TrimSpace(a.AddressLine2),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		PostalCode:   strings.TrimSpace(a.PostalCode),
		Country:      country,
		Phone:        strings.TrimSpace(a.Phone),
	}
}
