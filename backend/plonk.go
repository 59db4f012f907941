package backend

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
)

type plonkBackend struct{}

// Plonk returns the PlonK backend. The KZG SRS of its setup is generated
// locally with a known toxic waste, so it is only fit for tests and local
// networks.
func Plonk() Backend {
	return plonkBackend{}
}

func (plonkBackend) Scheme() Scheme { return SchemePlonk }

func (plonkBackend) Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, circuit)
}

func (plonkBackend) NewCS() constraint.ConstraintSystem {
	return plonk.NewCS(ecc.BN254)
}

func (plonkBackend) Setup(ccs constraint.ConstraintSystem) (Keys, error) {
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return Keys{}, fmt.Errorf("plonk srs: %w", err)
	}
	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return Keys{}, fmt.Errorf("plonk setup: %w", err)
	}
	return Keys{Proving: pk, Verifying: vk}, nil
}

func (plonkBackend) NewKeys() Keys {
	return Keys{
		Proving:   plonk.NewProvingKey(ecc.BN254),
		Verifying: plonk.NewVerifyingKey(ecc.BN254),
	}
}

func (plonkBackend) Prove(ccs constraint.ConstraintSystem, pk Key, full witness.Witness) ([]byte, error) {
	provingKey, ok := pk.(plonk.ProvingKey)
	if !ok {
		return nil, fmt.Errorf("not a plonk proving key: %T", pk)
	}
	proof, err := plonk.Prove(ccs, provingKey, full)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if _, err := proof.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to encode plonk proof: %w", err)
	}
	return buf.Bytes(), nil
}

func (plonkBackend) Verify(vk Key, data []byte, public witness.Witness) error {
	verifyingKey, ok := vk.(plonk.VerifyingKey)
	if !ok {
		return fmt.Errorf("not a plonk verifying key: %T", vk)
	}
	proof := plonk.NewProof(ecc.BN254)
	n, err := proof.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode plonk proof: %w", err)
	}
	if n != int64(len(data)) {
		return fmt.Errorf("plonk proof has %d trailing bytes", int64(len(data))-n)
	}
	return plonk.Verify(proof, verifyingKey, public)
}
