package model

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Money is a monetary amount in integer cents.
//
// On the wire it is a plain JSON number ("2000", "19.99"). Decoding also
// accepts a numeric string, because HTML form values arrive that way.
type Money int64

// MaxMoney is the largest amount, in whole units, that fits in cents.
const MaxMoney = math.MaxInt64 / 100

// ErrMoneyOutOfRange reports an amount whose cents do not fit in an int64.
var ErrMoneyOutOfRange = errors.New("model: monetary amount out of range")

// MoneyFromFloat rounds a decimal amount to the nearest cent. Amounts of
// MaxMoney or more (in either direction) are ErrMoneyOutOfRange.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.Abs(f) >= MaxMoney {
		return 0, ErrMoneyOutOfRange
	}
	return Money(math.Round(f * 100)), nil
}

func (m Money) String() string {
	sign := ""
	// Unsigned so the most negative value still has a magnitude.
	c := uint64(m)
	if m < 0 {
		sign = "-"
		c = -c
	}
	if c%100 == 0 {
		return fmt.Sprintf("%s%d", sign, c/100)
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON writes a bare JSON number such as 19.99 or 2000.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string (what an HTML
// form posts) and rounds to the nearest cent:
//
//	2000      -> 200000
//	"19.99"   -> 1999
//	"abc"     -> error
//	1e17      -> ErrMoneyOutOfRange
//
// On error m is left unchanged.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = bytes.TrimSpace(data[1 : len(data)-1])
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("model: invalid monetary amount %q", string(data))
	}
	cents, err := MoneyFromFloat(f)
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(data))
	}
	*m = cents
	return nil
}
