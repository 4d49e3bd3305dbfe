package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// RetryPolicy decides whether a failed unit of work is run again.
// Only the whole transaction is retried, never a single statement.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // multiplied by the attempt number
	Retryable   func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     100 * time.Millisecond,
		Retryable:   IsConnectionError,
	}
}

// IsConnectionError reports errors where the connection, not the statement, failed.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactorImpl struct {
	db     *gorm.DB
	policy RetryPolicy
}

func NewTransactor(db *gorm.DB, policy RetryPolicy) Transactor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Retryable == nil {
		policy.Retryable = IsConnectionError
	}
	return &transactorImpl{
		db:     db,
		policy: policy,
	}
}

func (t *transactorImpl) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= t.policy.MaxAttempts; attempt++ {
		err = t.db.WithContext(ctx).Transaction(fn)
		if err == nil || !t.policy.Retryable(err) || attempt == t.policy.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(t.policy.Backoff * time.Duration(attempt)):
		}
	}
	return err
}
