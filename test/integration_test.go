//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/messaging"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/service"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type approvingGateway struct {
	calls int
}

func (g *approvingGateway) AuthorizeAndCapture(ctx context.Context, req *client.ChargeRequest) (*client.ChargeResult, error) {
	g.calls++
	return &client.ChargeResult{
		Outcome:           client.ChargeApproved,
		TransactionID:     "it-" + req.ReferenceID,
		AuthorizationCode: "OK123",
	}, nil
}

type brokenTransactor struct{}

func (brokenTransactor) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return errors.New("database unavailable")
}

type staticProducts struct{}

func (staticProducts) Seed(ctx context.Context, products []*model.Product) error { return nil }

func (staticProducts) FindMany(ctx context.Context, ids []string) ([]*model.Product, error) {
	out := make([]*model.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.Product{ID: id, Name: id, Currency: "USD"})
	}
	return out, nil
}

func checkoutRequest() *dto.CheckoutRequest {
	addr := &dto.Address{
		FullName:     "Grace Hopper",
		AddressLine1: "1 Compiler Ct",
		City:         "Arlington",
		State:        "VA",
		PostalCode:   "22201",
		Country:      "US",
		Phone:        "555-0100",
	}
	return &dto.CheckoutRequest{
		Items:           []*dto.Item{{ProductID: "SKU-TEE-001", Quantity: 2, Price: 1999}},
		ShippingAddress: addr,
		BillingAddress:  addr,
		PaymentMethod:   model.PaymentMethodCreditCard,
		CardNumber:      "4111111111111111",
		ExpiryMonth:     "12",
		ExpiryYear:      "2030",
		CVV:             "123",
		CardholderName:  "Grace Hopper",
		Subtotal:        3998,
		Tax:             320,
		Shipping:        500,
		Total:           4818,
	}
}

func TestCheckoutEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	dsn, cleanupMySQL := SetupMySQL(ctx, t)
	defer cleanupMySQL()
	redisAddr, cleanupRedis := SetupRedis(ctx, t)
	defer cleanupRedis()
	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	require.NoError(t, client.RunMigrations(dsn, migrationsPath()))

	db, err := client.InitDBClient(&config.Database{
		Driver:          "mysql",
		URL:             dsn,
		MaxIdleConns:    2,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)

	products := repository.NewProductRepository(db)
	require.NoError(t, products.Seed(ctx, []*model.Product{
		{ID: "SKU-TEE-001", Name: "Classic Tee", Price: 1999, Currency: "USD"},
	}))

	rdb, err := cache.NewRedisClient(ctx, &config.Redis{Addr: redisAddr})
	require.NoError(t, err)
	defer func() { _ = rdb.Close() }()

	producer := messaging.NewProducer(brokers, "order.confirmed")
	defer func() { _ = producer.Close() }()

	gateway := &approvingGateway{}
	orderRepo := repository.NewOrderRepository(db)
	checkout := service.NewCheckoutService(
		repository.NewTransactor(db, repository.DefaultRetryPolicy()),
		gateway,
		orderRepo,
		repository.NewAddressRepository(),
		products,
		service.CheckoutOptions{
			Idempotency: cache.NewRedisIdempotencyStore(rdb, time.Hour),
			OrderEvents: producer,
			Currency:    "USD",
		},
		zaptest.NewLogger(t),
	)

	order, err := checkout.CreateOrder(ctx, "user-42", "key-1", checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, model.Money(4818), order.Total)

	t.Run("order row set is committed", func(t *testing.T) {
		stored, err := orderRepo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusConfirmed, stored.Status)
		assert.Equal(t, model.PaymentStatusAuthorized, stored.PaymentStatus)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "Classic Tee", stored.Items[0].ProductName)
		require.Len(t, stored.Timeline, 2)
		assert.Equal(t, "user-42", stored.Timeline[0].CreatedBy)
		assert.Equal(t, model.AuthorPaymentGateway, stored.Timeline[1].CreatedBy)
		assert.Equal(t, order.TransactionID, stored.Timeline[1].Metadata["transactionId"])
		require.NotNil(t, stored.ShippingAddress)
		assert.Equal(t, "Arlington", stored.ShippingAddress.City)
	})

	t.Run("replayed key does not charge again", func(t *testing.T) {
		replay, err := checkout.CreateOrder(ctx, "user-42", "key-1", checkoutRequest())
		require.NoError(t, err)
		assert.Equal(t, order.ID, replay.ID)
		assert.Equal(t, 1, gateway.calls)
	})

	t.Run("deleting an order removes everything it owns", func(t *testing.T) {
		other, err := checkout.CreateOrder(ctx, "user-43", "", checkoutRequest())
		require.NoError(t, err)

		require.NoError(t, db.WithContext(ctx).Delete(&model.Order{}, "id = ?", other.ID).Error)

		var n int64
		require.NoError(t, db.Model(&model.Address{}).
			Where("id IN ?", []string{other.ShippingAddressID, other.BillingAddressID}).Count(&n).Error)
		assert.Zero(t, n)
		require.NoError(t, db.Model(&model.OrderItem{}).Where("order_id = ?", other.ID).Count(&n).Error)
		assert.Zero(t, n)
		require.NoError(t, db.Model(&model.OrderTimelineEntry{}).Where("order_id = ?", other.ID).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("values at the column limits are stored", func(t *testing.T) {
		req := checkoutRequest()
		req.ShippingAddress = &dto.Address{
			FullName:     strings.Repeat("n", 255),
			AddressLine1: strings.Repeat("a", 255),
			City:         strings.Repeat("c", 128),
			State:        strings.Repeat("s", 128),
			PostalCode:   strings.Repeat("9", 32),
			Country:      "United States",
			Phone:        strings.Repeat("5", 32),
		}
		req.PaymentMethod = strings.Repeat("m", 32)

		stored, err := checkout.CreateOrder(ctx, strings.Repeat("u", 64), "", req)
		require.NoError(t, err)
		assert.Equal(t, "United States", stored.ShippingAddress.Country)
	})

	t.Run("confirmation event is published", func(t *testing.T) {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       "order.confirmed",
			StartOffset: kafka.FirstOffset,
			MaxWait:     500 * time.Millisecond,
		})
		defer func() { _ = reader.Close() }()

		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		defer readCancel()
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err)

		assert.Equal(t, order.ID, string(msg.Key))
		var event messaging.OrderConfirmedEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, order.OrderNumber, event.OrderNumber)
		assert.Equal(t, model.Money(4818), event.Total)
	})
}

func TestIdempotencyStoreAgainstRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisAddr, cleanup := SetupRedis(ctx, t)
	defer cleanup()

	rdb, err := cache.NewRedisClient(ctx, &config.Redis{Addr: redisAddr})
	require.NoError(t, err)
	defer func() { _ = rdb.Close() }()

	store := cache.NewRedisIdempotencyStore(rdb, time.Minute)

	first, err := store.Reserve(ctx, "user-1:abc")
	require.NoError(t, err)
	assert.Equal(t, cache.ReservationAcquired, first.State)

	second, err := store.Reserve(ctx, "user-1:abc")
	require.NoError(t, err)
	assert.Equal(t, cache.ReservationInProgress, second.State)

	require.NoError(t, store.Release(ctx, "user-1:abc"))
	again, err := store.Reserve(ctx, "user-1:abc")
	require.NoError(t, err)
	assert.Equal(t, cache.ReservationAcquired, again.State)

	require.NoError(t, store.Complete(ctx, "user-1:abc", "order-1"))
	done, err := store.Reserve(ctx, "user-1:abc")
	require.NoError(t, err)
	assert.Equal(t, cache.ReservationCompleted, done.State)
	assert.Equal(t, "order-1", done.OrderID)
}

func TestPersistenceFailureIsReportedOnKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	producer := messaging.NewProducer(brokers, "payment.reconciliation")
	defer func() { _ = producer.Close() }()

	checkout := service.NewCheckoutService(
		brokenTransactor{},
		&approvingGateway{},
		nil,
		repository.NewAddressRepository(),
		staticProducts{},
		service.CheckoutOptions{ReconciliationEvents: producer},
		zaptest.NewLogger(t),
	)

	_, err := checkout.CreateOrder(ctx, "user-7", "", checkoutRequest())
	var perr *service.OrderPersistenceFailedAfterPaymentError
	require.ErrorAs(t, err, &perr)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       "payment.reconciliation",
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer func() { _ = reader.Close() }()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	var event messaging.ReconciliationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, perr.TransactionID, event.TransactionID)
	assert.Equal(t, model.Money(4818), event.Amount)
}
