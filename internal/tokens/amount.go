package tokens

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a user-entered decimal string into raw token units.
// Empty, non-numeric and non-positive inputs are rejected with
// ErrInvalidAmount. Digits beyond the token's precision are truncated.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrInvalidAmount, "empty")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q", s)
	}
	if !d.IsPositive() {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q is not positive", s)
	}

	raw := d.Shift(int32(decimals)).BigInt()
	if raw.Sign() <= 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q is below token precision", s)
	}
	return raw, nil
}

// FormatUnits renders raw / 10^decimals with a fixed number of fractional
// digits. A nil amount renders as zero.
func FormatUnits(raw *big.Int, decimals uint8, places int32) string {
	if raw == nil {
		raw = new(big.Int)
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(places)
}
