package backend

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

type groth16Backend struct{}

// Groth16 returns the Groth16 backend. Its keys come from a circuit
// specific setup.
func Groth16() Backend {
	return groth16Backend{}
}

func (groth16Backend) Scheme() Scheme { return SchemeGroth16 }

func (groth16Backend) Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
}

func (groth16Backend) NewCS() constraint.ConstraintSystem {
	return groth16.NewCS(ecc.BN254)
}

func (groth16Backend) Setup(ccs constraint.ConstraintSystem) (Keys, error) {
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return Keys{}, fmt.Errorf("groth16 setup: %w", err)
	}
	return Keys{Proving: pk, Verifying: vk}, nil
}

func (groth16Backend) NewKeys() Keys {
	return Keys{
		Proving:   groth16.NewProvingKey(ecc.BN254),
		Verifying: groth16.NewVerifyingKey(ecc.BN254),
	}
}

func (groth16Backend) Prove(ccs constraint.ConstraintSystem, pk Key, full witness.Witness) ([]byte, error) {
	provingKey, ok := pk.(groth16.ProvingKey)
	if !ok {
		return nil, fmt.Errorf("not a groth16 proving key: %T", pk)
	}
	proof, err := groth16.Prove(ccs, provingKey, full)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if _, err := proof.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to encode groth16 proof: %w", err)
	}
	return buf.Bytes(), nil
}

func (groth16Backend) Verify(vk Key, data []byte, public witness.Witness) error {
	verifyingKey, ok := vk.(groth16.VerifyingKey)
	if !ok {
		return fmt.Errorf("not a groth16 verifying key: %T", vk)
	}
	proof := groth16.NewProof(ecc.BN254)
	n, err := proof.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode groth16 proof: %w", err)
	}
	if n != int64(len(data)) {
		return fmt.Errorf("groth16 proof has %d trailing bytes", int64(len(data))-n)
	}
	return groth16.Verify(proof, verifyingKey, public)
}
