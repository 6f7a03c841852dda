package types

import (
	crand "crypto/rand"
	"io"
	"math/big"

	"github.com/kysee/zktx/errs"
	"github.com/shopspring/decimal"
)

// AmountDecimals is the number of fractional digits in a displayed amount.
const AmountDecimals = 8

// RandBytes panics if the system randomness source fails.
func RandBytes(n int) []byte {
	rbz := make([]byte, n)
	if _, err := io.ReadFull(crand.Reader, rbz); err != nil {
		panic(err)
	}
	return rbz
}

// FormatAmount renders base units as a fixed-point string.
func FormatAmount(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -AmountDecimals).StringFixed(AmountDecimals)
}

// ParseAmount converts a fixed-point string back into base units.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errs.Wrap(errs.ParseError, err, "amount")
	}
	units := d.Shift(AmountDecimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, errs.Newf(errs.RangeError, "amount", "%s has more than %d decimals", s, AmountDecimals)
	}
	bi := units.BigInt()
	if bi.Sign() < 0 || !bi.IsUint64() {
		return 0, errs.Newf(errs.RangeError, "amount", "%s does not fit an unsigned 64-bit value", s)
	}
	return bi.Uint64(), nil
}

// Uint64Value checks that v is a non-negative 64-bit quantity.
func Uint64Value(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, errs.Newf(errs.RangeError, "value", "%v does not fit an unsigned 64-bit value", v)
	}
	return v.Uint64(), nil
}
