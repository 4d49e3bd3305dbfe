package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type ReservationState int

const (
	// ReservationAcquired means the caller owns the key and may charge.
	ReservationAcquired ReservationState = iota
	// ReservationInProgress means another request holds the key.
	ReservationInProgress
	// ReservationCompleted means an order already exists for the key.
	ReservationCompleted
)

type Reservation struct {
	State   ReservationState
	OrderID string
}

// IdempotencyStore guards a whole checkout behind a client supplied key.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (*Reservation, error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

const (
	keyPrefix     = "checkout:idempotency:"
	pendingValue  = "pending"
	orderIDPrefix = "order:"
)

type redisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) IdempotencyStore {
	return &redisIdempotencyStore{
		rdb: rdb,
		ttl: ttl,
	}
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, key string) (*Reservation, error) {
	k := keyPrefix + key

	ok, err := s.rdb.SetNX(ctx, k, pendingValue, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return &Reservation{State: ReservationAcquired}, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	if orderID, found := strings.CutPrefix(val, orderIDPrefix); found {
		return &Reservation{State: ReservationCompleted, OrderID: orderID}, nil
	}
	return &Reservation{State: ReservationInProgress}, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	return s.rdb.Set(ctx, keyPrefix+key, orderIDPrefix+orderID, s.ttl).Err()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, keyPrefix+key).Err()
}
