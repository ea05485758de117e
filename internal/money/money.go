// Package money represents token amounts as fixed-point integers.
//
// An Amount counts minor units with Decimals places, so 1 token is
// 1_000_000_000 units. Parsing and formatting go through shopspring/decimal;
// arithmetic is plain int64.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits carried by an Amount.
const Decimals = 9

// Unit is one whole token.
const Unit Amount = 1_000_000_000

// Amount is a token quantity in minor units.
type Amount int64

const (
	// MinTransfer is the smallest amount accepted for staging.
	MinTransfer Amount = 1_000_000 // 0.001
	// StepUpThreshold is the amount at or above which a PIN is required.
	StepUpThreshold Amount = 100_000_000 // 0.1
)

// Parse reads a decimal string such as "1.5" or "0.001". Digits beyond
// Decimals are rejected rather than rounded.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts d to minor units.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), Decimals)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Amount(shifted.IntPart()), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the amount in whole tokens.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Decimals)
}

// String formats without trailing zeros, e.g. "1.5".
func (a Amount) String() string {
	return a.Decimal().String()
}

// Fixed formats with exactly places decimals, rounding half away from zero.
func (a Amount) Fixed(places int32) string {
	return a.Decimal().StringFixed(places)
}

// IsPositive reports a > 0.
func (a Amount) IsPositive() bool { return a > 0 }

// Split divides a into n equal shares. The remainder left by integer division
// is returned separately and is not distributed.
func (a Amount) Split(n int) (share Amount, remainder Amount) {
	if n <= 0 {
		return 0, a
	}
	share = a / Amount(n)
	remainder = a - share*Amount(n)
	return share, remainder
}

// CeilTo rounds a up to a multiple of step.
func (a Amount) CeilTo(step Amount) Amount {
	if step <= 0 || a%step == 0 {
		return a
	}
	if a < 0 {
		return a - a%step
	}
	return a - a%step + step
}

// MarshalJSON encodes the amount as a decimal string to avoid float drift in
// JSON consumers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the amount as its minor-unit integer.
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}

// Scan reads a minor-unit integer column.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*a = Amount(v)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("scan amount: %w", err)
		}
		*a = Amount(d.IntPart())
	case nil:
		*a = 0
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
	return nil
}
