package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals to JSON as a decimal string and
// to CBOR as a native bignum.
type BigInt big.Int

// NewInt returns a BigInt holding x.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// NewBigInt wraps a copy of the big.Int provided.
func NewBigInt(x *big.Int) *BigInt {
	if x == nil {
		return nil
	}
	return (*BigInt)(new(big.Int).Set(x))
}

// MathBigInt returns the underlying big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// Equal reports whether i and j hold the same value.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return (*big.Int)(i).Cmp((*big.Int)(j)) == 0
}

func (i *BigInt) MarshalText() ([]byte, error) {
	return []byte((*big.Int)(i).String()), nil
}

func (i *BigInt) UnmarshalText(data []byte) error {
	if _, ok := (*big.Int)(i).SetString(string(data), 0); !ok {
		return fmt.Errorf("invalid big int %q", data)
	}
	return nil
}

func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(i))
}

func (i *BigInt) UnmarshalCBOR(data []byte) error {
	v := new(big.Int)
	if err := cbor.Unmarshal(data, v); err != nil {
		return err
	}
	(*big.Int)(i).Set(v)
	return nil
}
