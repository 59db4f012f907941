package backend

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/vocdoni/blindbid/crypto/hash/mimc"
	"github.com/vocdoni/blindbid/types"
	"github.com/vocdoni/blindbid/util"
)

// stubKey binds stub proofs to a constraint system through its digest.
type stubKey struct {
	digest [sha256.Size]byte
}

func (k *stubKey) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(k.digest[:])
	return int64(n), err
}

func (k *stubKey) ReadFrom(r io.Reader) (int64, error) {
	n, err := io.ReadFull(r, k.digest[:])
	return int64(n), err
}

type stubBackend struct{}

// Stub returns a backend that checks the witness satisfies the constraint
// system and emits a MiMC digest of the public witness as proof. It is not
// zero knowledge nor sound: anyone can forge a proof. It only exists so
// tests exercise the full prove and verify flow without a trusted setup.
func Stub() Backend {
	return stubBackend{}
}

func (stubBackend) Scheme() Scheme { return SchemeStub }

func (stubBackend) Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
}

func (stubBackend) NewCS() constraint.ConstraintSystem {
	return groth16.NewCS(ecc.BN254)
}

func (stubBackend) Setup(ccs constraint.ConstraintSystem) (Keys, error) {
	h := sha256.New()
	if _, err := ccs.WriteTo(h); err != nil {
		return Keys{}, fmt.Errorf("stub setup: %w", err)
	}
	key := &stubKey{}
	copy(key.digest[:], h.Sum(nil))
	return Keys{Proving: key, Verifying: key}, nil
}

func (stubBackend) NewKeys() Keys {
	return Keys{Proving: &stubKey{}, Verifying: &stubKey{}}
}

func (stubBackend) Prove(ccs constraint.ConstraintSystem, pk Key, full witness.Witness) ([]byte, error) {
	key, ok := pk.(*stubKey)
	if !ok {
		return nil, fmt.Errorf("not a stub proving key: %T", pk)
	}
	if err := ccs.IsSolved(full); err != nil {
		return nil, err
	}
	public, err := full.Public()
	if err != nil {
		return nil, err
	}
	return stubDigest(key, public)
}

func (stubBackend) Verify(vk Key, data []byte, public witness.Witness) error {
	key, ok := vk.(*stubKey)
	if !ok {
		return fmt.Errorf("not a stub verifying key: %T", vk)
	}
	expected, err := stubDigest(key, public)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(expected, data) != 1 {
		return fmt.Errorf("stub proof does not match the public witness")
	}
	return nil
}

// stubDigest returns MiMC(key, public inputs...) as a 32 byte scalar.
func stubDigest(key *stubKey, public witness.Witness) ([]byte, error) {
	vector, ok := public.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", public.Vector())
	}
	inputs := make([]*big.Int, 0, len(vector)+1)
	inputs = append(inputs, util.BigToFF(new(big.Int).SetBytes(key.digest[:])))
	for i := range vector {
		inputs = append(inputs, vector[i].BigInt(new(big.Int)))
	}
	digest, err := mimc.Hash(inputs...)
	if err != nil {
		return nil, err
	}
	return types.AppendScalar(nil, digest)
}
