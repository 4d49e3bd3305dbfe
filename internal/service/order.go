package service

import (
	"context"
	"errors"
	"fmt"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService interface {
	ListOrders(ctx context.Context, userID string) ([]*model.Order, error)
	GetOrder(ctx context.Context, caller model.Identity, orderID string) (*model.Order, error)
	GetOrderByReceipt(ctx context.Context, caller model.Identity, receiptNumber string) (*model.Order, error)
	// UpdateStatus moves any of the three status axes and appends one timeline entry.
	UpdateStatus(ctx context.Context, caller model.Identity, orderID string, req *dto.StatusUpdateRequest) (*model.Order, error)
}

type orderServiceImpl struct {
	txr       repository.Transactor
	orderRepo repository.OrderRepository
	now       func() time.Time
	logger    *zap.Logger
}

func NewOrderService(txr repository.Transactor, orderRepo repository.OrderRepository, logger *zap.Logger) OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderServiceImpl{
		txr:       txr,
		orderRepo: orderRepo,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, caller model.Identity, orderID string) (*model.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return authorizeRead(caller, order)
}

func (s *orderServiceImpl) GetOrderByReceipt(ctx context.Context, caller model.Identity, receiptNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByReceipt(ctx, receiptNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order by receipt: %w", err)
	}
	return authorizeRead(caller, order)
}

func authorizeRead(caller model.Identity, order *model.Order) (*model.Order, error) {
	if order.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderServiceImpl) UpdateStatus(ctx context.Context, caller model.Identity, orderID string, req *dto.StatusUpdateRequest) (*model.Order, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if req == nil || (req.Status == "" && req.PaymentStatus == "" && req.FulfillmentStatus == "") {
		return nil, invalid("status", "At least one status must be provided")
	}
	if err := dto.Validate(req); err != nil {
		return nil, RequestValidationError(err)
	}

	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	change, err := planStatusChange(order, req, s.now())
	if err != nil {
		return nil, err
	}

	entryStatus := order.Status
	if change.Status != nil {
		entryStatus = *change.Status
	}
	entry := &model.OrderTimelineEntry{
		OrderID:   order.ID,
		Status:    string(entryStatus),
		Message:   timelineMessage(order, change, req.Message),
		CreatedBy: caller.UserID,
		Metadata:  changeMetadata(order, change),
	}

	err = s.txr.WithTransaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, change)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConcurrentUpdate
		}
		return s.orderRepo.AppendTimeline(ctx, tx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.logger.Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("by", caller.UserID),
		zap.String("status", string(entryStatus)),
	)
	return s.find(ctx, order.ID)
}

func (s *orderServiceImpl) find(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func planStatusChange(order *model.Order, req *dto.StatusUpdateRequest, now time.Time) (*repository.StatusChange, error) {
	change := &repository.StatusChange{
		ExpectedStatus:            order.Status,
		ExpectedPaymentStatus:     order.PaymentStatus,
		ExpectedFulfillmentStatus: order.FulfillmentStatus,
	}

	if req.Status != "" {
		next, err := model.ParseOrderStatus(req.Status)
		if err != nil {
			return nil, invalid("status", "%s", err.Error())
		}
		if !order.Status.CanTransitionTo(next) {
			return nil, &InvalidTransitionError{Kind: "order status", From: string(order.Status), To: string(next)}
		}
		change.Status = &next

		switch next {
		case model.OrderStatusShipped:
			change.ShippedAt = &now
		case model.OrderStatusDelivered:
			change.DeliveredAt = &now
		case model.OrderStatusCancelled:
			change.CancelledAt = &now
		}
	}

	if req.PaymentStatus != "" {
		next, err := model.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			return nil, invalid("paymentStatus", "%s", err.Error())
		}
		if !order.PaymentStatus.CanTransitionTo(next) {
			return nil, &InvalidTransitionError{Kind: "payment status", From: string(order.PaymentStatus), To: string(next)}
		}
		change.PaymentStatus = &next
	}

	if req.FulfillmentStatus != "" {
		next, err := model.ParseFulfillmentStatus(req.FulfillmentStatus)
		if err != nil {
			return nil, invalid("fulfillmentStatus", "%s", err.Error())
		}
		if !order.FulfillmentStatus.CanTransitionTo(next) {
			return nil, &InvalidTransitionError{Kind: "fulfillment status", From: string(order.FulfillmentStatus), To: string(next)}
		}
		change.FulfillmentStatus = &next
	}

	return change, nil
}

func timelineMessage(order *model.Order, change *repository.StatusChange, message string) string {
	if message != "" {
		return message
	}
	if change.Status != nil {
		return fmt.Sprintf("Status changed from %s to %s", order.Status, *change.Status)
	}
	if change.PaymentStatus != nil {
		return fmt.Sprintf("Payment status changed from %s to %s", order.PaymentStatus, *change.PaymentStatus)
	}
	return fmt.Sprintf("Fulfillment status changed from %s to %s", order.FulfillmentStatus, *change.FulfillmentStatus)
}

func changeMetadata(order *model.Order, change *repository.StatusChange) map[string]string {
	meta := map[string]string{}
	if change.Status != nil {
		meta["previousStatus"] = string(order.Status)
	}
	if change.PaymentStatus != nil {
		meta["previousPaymentStatus"] = string(order.PaymentStatus)
		meta["paymentStatus"] = string(*change.PaymentStatus)
	}
	if change.FulfillmentStatus != nil {
		meta["previousFulfillmentStatus"] = string(order.FulfillmentStatus)
		meta["fulfillmentStatus"] = string(*change.FulfillmentStatus)
	}
	return meta
}
