package bidproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/score"
	"github.com/vocdoni/blindbid/state"
	"github.com/vocdoni/blindbid/types"
)

// ErrMalformedPublicInputs is returned when the public inputs are missing a
// value, carry an out of range value or cannot be decoded.
var ErrMalformedPublicInputs = fmt.Errorf("malformed public inputs")

// PublicInputsSize is the size of encoded public inputs:
// root(32) | seed(32) | round(8) | score(32) | minimum(8).
const PublicInputsSize = 3*types.ScalarSize + 2*types.HeightSize

// PublicInputs are the values a verifier knows about a bid proof.
type PublicInputs struct {
	MerkleRoot  *big.Int
	Seed        *big.Int
	RoundHeight uint64
	Score       *big.Int
	MinimumBid  uint64
}

// Validate checks every field element is present and canonical.
func (p *PublicInputs) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil inputs", ErrMalformedPublicInputs)
	}
	for name, v := range map[string]*big.Int{
		"merkle root": p.MerkleRoot,
		"seed":        p.Seed,
		"score":       p.Score,
	} {
		if !types.IsScalar(v) {
			return fmt.Errorf("%w: %s is not a field element", ErrMalformedPublicInputs, name)
		}
	}
	return nil
}

// Encode returns the canonical encoding of the public inputs.
func (p *PublicInputs) Encode() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, PublicInputsSize)
	buf, _ = types.AppendScalar(buf, p.MerkleRoot)
	buf, _ = types.AppendScalar(buf, p.Seed)
	buf = types.AppendHeight(buf, p.RoundHeight)
	buf, _ = types.AppendScalar(buf, p.Score)
	buf = types.AppendHeight(buf, p.MinimumBid)
	return buf, nil
}

// DecodePublicInputs parses the canonical encoding of the public inputs.
func DecodePublicInputs(data []byte) (*PublicInputs, error) {
	d := types.NewDecoder(data)
	p := &PublicInputs{
		MerkleRoot:  d.Scalar(),
		Seed:        d.Scalar(),
		RoundHeight: d.Height(),
		Score:       d.Scalar(),
		MinimumBid:  d.Height(),
	}
	if err := d.Finish(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPublicInputs, err)
	}
	return p, nil
}

// Assignment returns a circuit assignment holding only the public inputs.
func (p *PublicInputs) Assignment() *Circuit {
	return &Circuit{
		MerkleRoot:  p.MerkleRoot,
		Seed:        p.Seed,
		RoundHeight: p.RoundHeight,
		Score:       p.Score,
		MinimumBid:  p.MinimumBid,
	}
}

// Witness returns the public witness of the inputs.
func (p *PublicInputs) Witness() (witness.Witness, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	w, err := frontend.NewWitness(p.Assignment(), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPublicInputs, err)
	}
	return w, nil
}

// Equal reports whether both inputs hold the same values.
func (p *PublicInputs) Equal(o *PublicInputs) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.MerkleRoot.Cmp(o.MerkleRoot) == 0 &&
		p.Seed.Cmp(o.Seed) == 0 &&
		p.RoundHeight == o.RoundHeight &&
		p.Score.Cmp(o.Score) == 0 &&
		p.MinimumBid == o.MinimumBid
}

// PrivateInputs are the values only the bidder knows.
type PrivateInputs struct {
	Opening bid.Opening
	Secret  *big.Int
	Score   *score.Witness
	Path    *state.MerklePath
}

// NewAssignment returns the full assignment proving the private inputs
// satisfy the public ones. It does not check the relation holds, a wrong
// assignment is only detected when solving the circuit.
func NewAssignment(public *PublicInputs, private *PrivateInputs) (*Circuit, error) {
	if err := public.Validate(); err != nil {
		return nil, err
	}
	if private == nil || private.Opening.Blinder == nil || private.Secret == nil ||
		private.Score == nil || private.Score.Y == nil ||
		private.Path == nil || private.Path.Record == nil || private.Path.Record.RewardKey == nil {
		return nil, fmt.Errorf("incomplete private inputs")
	}
	inclusion, err := MerkleProofFromPath(private.Path)
	if err != nil {
		return nil, err
	}
	record := private.Path.Record
	assignment := public.Assignment()
	assignment.Value = private.Opening.Value
	assignment.Blinder = private.Opening.Blinder
	assignment.Secret = private.Secret
	assignment.Y = private.Score.Y
	assignment.StartHeight = record.Window.Start
	assignment.EndHeight = record.Window.End
	assignment.RewardKey = [2]frontend.Variable{record.RewardKey.X, record.RewardKey.Y}
	assignment.Inclusion = inclusion
	return assignment, nil
}

// Placeholder returns an empty circuit to compile.
func Placeholder() *Circuit {
	return &Circuit{}
}
