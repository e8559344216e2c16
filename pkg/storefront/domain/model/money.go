package model

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (paise).
type Money int64

const minorUnitsExp = -2

var hundred = decimal.NewFromInt(100)

// ParseMoney parses a decimal major-unit amount such as "1499.50".
// Fractions below one paisa are rounded half away from zero.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), minorUnitsExp)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// BasisPoints returns m * bp / 10000 rounded to the nearest paisa.
func (m Money) BasisPoints(bp int64) Money {
	return MoneyFromDecimal(m.Decimal().Mul(decimal.NewFromInt(bp)).Div(decimal.NewFromInt(10000)))
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return ErrInvalidAmount
		}
		raw = unquoted
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
