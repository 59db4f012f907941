// Package mimc implements the native MiMC hash over the BN254 scalar field.
// Its output matches gnark's in-circuit std/hash/mimc for the same sequence
// of field elements, which is what lets the prover compute values natively
// that the circuit recomputes.
package mimc

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Hash returns MiMC(inputs...). Every input must be a canonical field
// element.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	h := mimc.NewMiMC()
	for i, in := range inputs {
		if in == nil || in.Sign() < 0 || in.Cmp(fr.Modulus()) >= 0 {
			return nil, fmt.Errorf("input %d is not a field element", i)
		}
		var e fr.Element
		e.SetBigInt(in)
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return nil, fmt.Errorf("hash input %d: %w", i, err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// HashUint64 is Hash for inputs that are small integers.
func HashUint64(inputs ...uint64) (*big.Int, error) {
	bigInputs := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		bigInputs[i] = new(big.Int).SetUint64(in)
	}
	return Hash(bigInputs...)
}
