// Package backend wraps the gnark proving systems the bid circuit can be
// proven with behind a single interface, and holds the immutable proving
// and verification parameters shared by every prover and verifier of a
// process.
package backend

import (
	"fmt"
	"io"
	"strings"

	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
)

// Scheme identifies a proving system. It is the first byte of an encoded
// proof.
type Scheme uint8

const (
	SchemeGroth16 Scheme = iota + 1
	SchemePlonk
	SchemeStub
)

func (s Scheme) String() string {
	switch s {
	case SchemeGroth16:
		return "groth16"
	case SchemePlonk:
		return "plonk"
	case SchemeStub:
		return "stub"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Key is a proving or verifying key of any scheme.
type Key interface {
	io.WriterTo
	io.ReaderFrom
}

// Keys holds the proving and the verifying key of a circuit. Proving may
// be nil for verification only parameters.
type Keys struct {
	Proving   Key
	Verifying Key
}

// Backend is a proving system over BN254.
type Backend interface {
	Scheme() Scheme
	// Compile compiles the circuit into the constraint system kind the
	// scheme proves.
	Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error)
	// NewCS returns an empty constraint system to read a compiled one into.
	NewCS() constraint.ConstraintSystem
	// Setup generates the keys of the constraint system.
	Setup(ccs constraint.ConstraintSystem) (Keys, error)
	// NewKeys returns empty keys to read stored ones into.
	NewKeys() Keys
	// Prove returns the serialized proof of the full witness.
	Prove(ccs constraint.ConstraintSystem, pk Key, full witness.Witness) ([]byte, error)
	// Verify checks the serialized proof against the public witness.
	Verify(vk Key, proof []byte, public witness.Witness) error
}

// ByName returns the backend with the name provided.
func ByName(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "groth16":
		return Groth16(), nil
	case "plonk":
		return Plonk(), nil
	case "stub":
		return Stub(), nil
	default:
		return nil, fmt.Errorf("unknown proving backend %q", name)
	}
}

// ByScheme returns the backend of the scheme provided.
func ByScheme(s Scheme) (Backend, error) {
	switch s {
	case SchemeGroth16, SchemePlonk, SchemeStub:
		return ByName(s.String())
	default:
		return nil, fmt.Errorf("unknown proving scheme %s", s)
	}
}
