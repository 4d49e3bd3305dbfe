package handler

import (
	"errors"
	"net/http"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	checkoutService service.CheckoutService
	orderService    service.OrderService
	logger          *zap.Logger
}

func NewOrderHandler(checkoutService service.CheckoutService, orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		logger:          logger,
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := middleware.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return h.checkoutError(c, service.RequestValidationError(err))
	}

	order, err := h.checkoutService.CreateOrder(ctx, identity.UserID, c.Request().Header.Get(idempotencyHeader), &req)
	if err != nil {
		return h.checkoutError(c, err)
	}

	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) checkoutError(c echo.Context, err error) error {
	var (
		validation  *service.ValidationError
		declined    *service.PaymentDeclinedError
		unavailable *service.PaymentGatewayUnavailableError
		persistence *service.OrderPersistenceFailedAfterPaymentError
		inProgress  *service.CheckoutInProgressError
	)

	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validation.Message})
	case errors.As(err, &declined):
		return c.JSON(http.StatusBadRequest, dto.DeclinedResponse{
			Success:   false,
			Error:     declined.Message,
			ErrorCode: declined.Code,
		})
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: unavailable.Message})
	case errors.As(err, &persistence):
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:         "Payment was processed but the order could not be saved. Please contact support.",
			TransactionID: persistence.TransactionID,
		})
	case errors.As(err, &inProgress):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "A checkout with this idempotency key is already in progress"})
	}

	h.logger.Error("create order failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create order"})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := middleware.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	orders, err := h.orderService.ListOrders(ctx, identity.UserID)
	if err != nil {
		return h.orderError(c, err)
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := middleware.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	order, err := h.orderService.GetOrder(ctx, identity, c.Param("id"))
	if err != nil {
		return h.orderError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewOrderDetail(order, time.Now()))
}

func (h *OrderHandler) GetReceipt(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := middleware.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	order, err := h.orderService.GetOrderByReceipt(ctx, identity, c.Param("receiptNumber"))
	if err != nil {
		return h.orderError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewOrderDetail(order, time.Now()))
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := middleware.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return h.orderError(c, service.RequestValidationError(err))
	}

	order, err := h.orderService.UpdateStatus(ctx, identity, c.Param("id"), &req)
	if err != nil {
		return h.orderError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) orderError(c echo.Context, err error) error {
	var (
		validation *service.ValidationError
		transition *service.InvalidTransitionError
	)

	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Order not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, service.ErrConcurrentUpdate):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "Order was modified by another request, reload and retry"})
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validation.Message})
	case errors.As(err, &transition):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: transition.Error()})
	}

	h.logger.Error("order request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
}
