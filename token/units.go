// Package token implements exact amount arithmetic and an ERC20 binding for
// fee and payment checks.
//
// Amounts are always handled as integers of base units. Thresholds given in
// whole tokens are scaled by 10^decimals before comparison, so a balance one
// base unit short of the threshold is never rounded up.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/tos-network/starkcounter"
)

var (
	ErrInvalidAmount = errors.New("token: invalid amount")
	ErrTooPrecise    = errors.New("token: amount has more fractional digits than the token supports")
	ErrU256Overflow  = errors.New("token: amount exceeds u256")
)

var twoPow128 = new(big.Int).Lsh(big.NewInt(1), 128)

// Scale returns 10^decimals.
func Scale(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ParseUnits converts a decimal amount of whole tokens ("1", "0.25") into
// base units.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	whole, frac, hasFrac := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q", ErrTooPrecise, amount)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
		}
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return v, nil
}

// FormatUnits renders base units as a decimal amount of whole tokens without
// trailing zeros.
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	q, r := new(big.Int).QuoRem(new(big.Int).Abs(v), Scale(decimals), new(big.Int))
	s := q.String()
	if r.Sign() != 0 {
		frac := r.String()
		frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
		s += "." + strings.TrimRight(frac, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Sufficient reports whether have covers need, both in base units.
func Sufficient(have, need *big.Int) bool {
	if have == nil {
		return need == nil || need.Sign() <= 0
	}
	if need == nil {
		return true
	}
	return have.Cmp(need) >= 0
}

// SufficientTokens reports whether a base unit balance covers an amount given
// in whole tokens.
func SufficientTokens(balance *big.Int, tokens string, decimals uint8) (bool, error) {
	need, err := ParseUnits(tokens, decimals)
	if err != nil {
		return false, err
	}
	return Sufficient(balance, need), nil
}

// U256 joins the low and high 128-bit halves of a Cairo u256.
func U256(low, high *starkcounter.Felt) (*uint256.Int, error) {
	l, h := low.Big(), high.Big()
	if l.Cmp(twoPow128) >= 0 || h.Cmp(twoPow128) >= 0 {
		return nil, ErrU256Overflow
	}
	v := new(big.Int).Lsh(h, 128)
	u, _ := uint256.FromBig(v.Or(v, l))
	return u, nil
}

// SplitU256 splits a non-negative amount into the low and high felts of a
// Cairo u256, the calldata layout expected by ERC20 entry points.
func SplitU256(v *big.Int) (low, high *starkcounter.Felt, err error) {
	if v == nil || v.Sign() < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if v.BitLen() > 256 {
		return nil, nil, ErrU256Overflow
	}
	mask := new(big.Int).Sub(twoPow128, big.NewInt(1))
	if low, err = starkcounter.FeltFromBig(new(big.Int).And(v, mask)); err != nil {
		return nil, nil, err
	}
	if high, err = starkcounter.FeltFromBig(new(big.Int).Rsh(v, 128)); err != nil {
		return nil, nil, err
	}
	return low, high, nil
}
