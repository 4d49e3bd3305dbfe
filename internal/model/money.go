package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents).
type Money int64

// MaxAmount bounds every single amount a client may submit.
const MaxAmount Money = 100_000_000_000

var ErrMoneyOverflow = errors.New("amount out of range")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal rounds d half away from zero to the minor unit.
// Amounts that do not fit in int64 minor units are rejected.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %s", ErrMoneyOverflow, d.String())
	}
	return Money(cents.IntPart()), nil
}

// ParseMoney parses a major-unit string such as "22.00".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Within reports whether m and other differ by at most tolerance minor units.
func (m Money) Within(other Money, tolerance Money) bool {
	diff := m - other
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// Times multiplies m by n, failing instead of wrapping.
func (m Money) Times(n int64) (Money, error) {
	if m == 0 || n == 0 {
		return 0, nil
	}
	if (m == -1 && n == math.MinInt64) || (n == -1 && m == math.MinInt64) {
		return 0, ErrMoneyOverflow
	}
	p := m * Money(n)
	if p/Money(n) != m {
		return 0, ErrMoneyOverflow
	}
	return p, nil
}

// Plus adds other to m, failing instead of wrapping.
func (m Money) Plus(other Money) (Money, error) {
	sum := m + other
	if (other > 0 && sum < m) || (other < 0 && sum > m) {
		return 0, ErrMoneyOverflow
	}
	return sum, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
