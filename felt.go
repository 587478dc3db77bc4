package starkcounter

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrFeltSyntax   = errors.New("felt: invalid syntax")
	ErrFeltOverflow = errors.New("felt: value exceeds field prime")
)

// FieldPrime is the StarkNet field modulus 2^251 + 17*2^192 + 1.
var FieldPrime = func() *uint256.Int {
	p := new(uint256.Int).Lsh(uint256.NewInt(1), 251)
	p.Add(p, new(uint256.Int).Lsh(uint256.NewInt(17), 192))
	return p.Add(p, uint256.NewInt(1))
}()

var selectorMask = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 250), uint256.NewInt(1))

// Felt is a StarkNet field element. It marshals as 0x-prefixed hex without
// leading zeros, the encoding used by the JSON-RPC API.
type Felt uint256.Int

// NewFelt returns a felt holding v.
func NewFelt(v uint64) *Felt {
	return (*Felt)(uint256.NewInt(v))
}

// FeltFromBig converts a non-negative big integer below the field prime.
func FeltFromBig(v *big.Int) (*Felt, error) {
	if v == nil || v.Sign() < 0 {
		return nil, ErrFeltSyntax
	}
	u, overflow := uint256.FromBig(v)
	if overflow || u.Cmp(FieldPrime) >= 0 {
		return nil, ErrFeltOverflow
	}
	return (*Felt)(u), nil
}

// ParseFelt accepts 0x-prefixed hex (leading zeros allowed) or a decimal string.
func ParseFelt(s string) (*Felt, error) {
	s = strings.TrimSpace(s)
	var (
		v  = new(big.Int)
		ok bool
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return nil, ErrFeltSyntax
		}
		_, ok = v.SetString(s[2:], 16)
	} else if s != "" {
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFeltSyntax, s)
	}
	return FeltFromBig(v)
}

// MustParseFelt is like ParseFelt but panics on error. Intended for constants.
func MustParseFelt(s string) *Felt {
	f, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Selector computes the entry point selector of a function or event name:
// keccak256(name) truncated to 250 bits.
func Selector(name string) *Felt {
	h := new(uint256.Int).SetBytes(crypto.Keccak256([]byte(name)))
	return (*Felt)(h.And(h, selectorMask))
}

func (f *Felt) Uint256() *uint256.Int { return (*uint256.Int)(f) }

func (f *Felt) Big() *big.Int {
	if f == nil {
		return new(big.Int)
	}
	return f.Uint256().ToBig()
}

func (f *Felt) Hex() string {
	if f == nil {
		return "0x0"
	}
	return f.Uint256().Hex()
}

func (f *Felt) String() string { return f.Hex() }

func (f *Felt) IsZero() bool { return f == nil || f.Uint256().IsZero() }

func (f *Felt) Uint64() uint64 { return f.Uint256().Uint64() }

func (f *Felt) IsUint64() bool { return f.Uint256().IsUint64() }

// Cmp compares two felts, treating nil as zero.
func (f *Felt) Cmp(o *Felt) int {
	var a, b uint256.Int
	if f != nil {
		a = *f.Uint256()
	}
	if o != nil {
		b = *o.Uint256()
	}
	return a.Cmp(&b)
}

func (f *Felt) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

func (f *Felt) UnmarshalText(input []byte) error {
	v, err := ParseFelt(string(input))
	if err != nil {
		return err
	}
	*f = *v
	return nil
}
