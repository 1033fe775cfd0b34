package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point currency amount. Repeated debits never drift the
// way float64 arithmetic would.
type Money struct {
	Amount decimal.Decimal
}

// MoneyScale is the number of decimal places an amount may carry. Every
// accepted amount renders exactly, so String never rounds.
const MoneyScale = 2

// Zero is the empty amount.
var Zero = Money{Amount: decimal.Zero}

// NewMoney parses a decimal string such as "0.50". Amounts finer than
// MoneyScale are rejected with ErrInvalidInput.
func NewMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", value, ErrInvalidInput)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(MoneyScale)) {
		return Money{}, fmt.Errorf("amount %s has more than %d decimal places: %w", d, MoneyScale, ErrInvalidInput)
	}
	return Money{Amount: d}, nil
}

// MustMoney is NewMoney for constants and tests.
func MustMoney(value string) Money {
	m, err := NewMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// FromCents builds an amount from minor units.
func FromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, -MoneyScale)}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount)}
}

// Sub never fails: balances may legitimately go below zero through reloads.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount)}
}

// Times multiplies by a unit count.
func (m Money) Times(n int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(n)))}
}

func (m Money) LessThan(other Money) bool { return m.Amount.LessThan(other.Amount) }
func (m Money) Equal(other Money) bool    { return m.Amount.Equal(other.Amount) }
func (m Money) IsPositive() bool          { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool          { return m.Amount.IsNegative() }

// String renders two decimal places, e.g. "4.50".
func (m Money) String() string {
	return m.Amount.StringFixed(MoneyScale)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "4.50" and 4.50.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", ErrInvalidInput)
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
