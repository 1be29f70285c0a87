// Package core provides the finance domain: entities, money handling,
// validation rules and the monthly summary aggregation.
//
// This file contains the fixed-point money type. Amounts are exact base-10
// decimals quantized to two fractional digits with half-up rounding and are
// always serialized as strings.
package core

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for every amount.
const MoneyScale = 2

// Bounds on parsed amounts, matching the NUMERIC(12,2) columns. Exponents
// are checked before any rescaling so "1e5000000" is rejected cheaply.
const (
	MaxIntegerDigits = 10
	minExponent      = -32
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountOutOfRange = errors.New("amount out of range")

	ErrAmountTooLarge   = fmt.Errorf("%w: more than %d integer digits", ErrAmountOutOfRange, MaxIntegerDigits)
	ErrAmountTooPrecise = fmt.Errorf("%w: more than %d decimal places", ErrAmountOutOfRange, -minExponent)
)

// Money is a signed amount with exactly two fractional digits.
// The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// ToFixedPoint converts v into an exact decimal without rounding.
//
// Accepted inputs are strings, integers, floats, json.Number, decimal.Decimal
// and Money. Floats go through their shortest string representation so that
// 0.1 becomes 0.1 and not the nearest binary value. Inputs other than
// decimal.Decimal and Money must have at most MaxIntegerDigits integer
// digits.
func ToFixedPoint(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case Money:
		return x.d, nil
	}
	d, err := parseFixedPoint(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsZero() {
		// "0e5000000" would otherwise be rescaled digit by digit.
		return decimal.Zero, nil
	}
	if err := checkRange(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// checkRange works on the coefficient and exponent only.
func checkRange(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < minExponent {
		return ErrAmountTooPrecise
	}
	coefDigits := len(new(big.Int).Abs(d.Coefficient()).String())
	if int64(coefDigits)+int64(exp) > MaxIntegerDigits {
		return ErrAmountTooLarge
	}
	return nil
}

func parseFixedPoint(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, ErrInvalidAmount
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, x)
		}
		return d, nil
	case json.Number:
		return parseFixedPoint(string(x))
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float32:
		return parseFixedPoint(strconv.FormatFloat(float64(x), 'f', -1, 32))
	case float64:
		return parseFixedPoint(strconv.FormatFloat(x, 'f', -1, 64))
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}
}

// RoundHalfUp quantizes d to two fractional digits, rounding halves away
// from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Serialize renders d as a plain decimal string with exactly two
// fractional digits.
func Serialize(d decimal.Decimal) string {
	return RoundHalfUp(d).StringFixed(MoneyScale)
}

// NewMoney normalizes d into a Money value.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: RoundHalfUp(d)}
}

// MoneyFromCents builds a Money from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -MoneyScale)}
}

// ParseMoney converts any supported input into a normalized Money.
func ParseMoney(v any) (Money, error) {
	d, err := ToFixedPoint(v)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d), nil
}

// MustMoney is ParseMoney for constants; it panics on invalid input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) String() string { return Serialize(m.d) }

func (m Money) Add(o Money) Money { return NewMoney(m.d.Add(o.d)) }

func (m Money) Sub(o Money) Money { return NewMoney(m.d.Sub(o.d)) }

func (m Money) Neg() Money { return NewMoney(m.d.Neg()) }

func (m Money) Abs() Money { return NewMoney(m.d.Abs()) }

func (m Money) Sign() int { return m.d.Sign() }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Cents returns the amount as an integer number of cents.
func (m Money) Cents() int64 {
	return RoundHalfUp(m.d).Shift(MoneyScale).IntPart()
}

// MarshalJSON always emits a quoted string such as "12.50".
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a JSON string or a JSON number. Numbers are read
// from their literal text, never through float64.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner. Stores hand amounts back as TEXT on SQLite
// and NUMERIC on PostgreSQL.
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = NewMoney(d)
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// SumMoney adds amounts exactly and rounds once at the end.
func SumMoney(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return NewMoney(total)
}
