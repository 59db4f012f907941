// Package prover builds bid proofs: it derives the score of a bid for a
// round, assembles the circuit witness and proves it with the shared
// parameters.
package prover

import (
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/blindbid/backend"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/circuits/bidproof"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/log"
	"github.com/vocdoni/blindbid/score"
	"github.com/vocdoni/blindbid/state"
)

var (
	// ErrConstraintUnsatisfied is returned when the witness does not satisfy
	// the bid circuit. No proof is ever produced in that case.
	ErrConstraintUnsatisfied = fmt.Errorf("constraint unsatisfied")
	// ErrInvalidRequest is returned when a request is missing values.
	ErrInvalidRequest = fmt.Errorf("invalid proving request")
)

// Setup compiles the bid circuit and generates its parameters with the
// backend provided.
func Setup(b backend.Backend) (*backend.Params, error) {
	return backend.Setup(b, bidproof.Placeholder())
}

// Request holds everything the owner of a bid needs to prove its score for
// a round.
type Request struct {
	Limits  bid.Limits
	Record  *bid.Record
	Opening bid.Opening
	Secret  *big.Int
	Seed    *big.Int
	Round   uint64
	Path    *state.MerklePath
}

func (r *Request) check() error {
	if r == nil || r.Record == nil || r.Opening.Blinder == nil || r.Secret == nil ||
		r.Seed == nil || r.Path == nil {
		return fmt.Errorf("%w: missing values", ErrInvalidRequest)
	}
	// a value below the minimum is left to the score generator, which
	// reports it as an insufficient stake
	if r.Opening.Value > r.Limits.Maximum {
		return r.Limits.Check(r.Opening.Value)
	}
	return nil
}

// checkOpening checks the private values open the bid and the path leads
// from it to a root.
func (r *Request) checkOpening() error {
	if !r.Record.Commitment.Equal(pedersen.Commit(new(big.Int).SetUint64(r.Opening.Value), r.Opening.Blinder)) {
		return fmt.Errorf("%w: opening does not match the bid commitment", ErrConstraintUnsatisfied)
	}
	hashedSecret, err := bid.HashSecret(r.Secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if hashedSecret.Cmp(r.Record.HashedSecret) != 0 {
		return fmt.Errorf("%w: secret does not match the bid", ErrConstraintUnsatisfied)
	}
	if !r.Path.Record.Equal(r.Record) {
		return fmt.Errorf("%w: merkle path is not the path of the bid", ErrConstraintUnsatisfied)
	}
	if err := r.Path.Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrConstraintUnsatisfied, err)
	}
	return nil
}

// Prove returns the proof of the score of the bid for the round requested,
// together with the public inputs it is bound to. The value range, the
// eligibility window and the opening are checked first, then the witness
// is solved against the constraint system, and only then it is proven.
func Prove(params *backend.Params, r *Request) (*backend.Proof, *bidproof.PublicInputs, error) {
	if params == nil || !params.CanProve() {
		return nil, nil, fmt.Errorf("parameters cannot be used to prove")
	}
	if err := r.check(); err != nil {
		return nil, nil, err
	}
	s, w, err := score.NewGenerator(r.Limits).Generate(r.Secret, r.Opening.Value, r.Seed, r.Round, r.Record.Window)
	if err != nil {
		return nil, nil, err
	}
	if err := r.checkOpening(); err != nil {
		return nil, nil, err
	}
	public := &bidproof.PublicInputs{
		MerkleRoot:  r.Path.Root,
		Seed:        r.Seed,
		RoundHeight: r.Round,
		Score:       s,
		MinimumBid:  r.Limits.Minimum,
	}
	assignment, err := bidproof.NewAssignment(public, &bidproof.PrivateInputs{
		Opening: r.Opening,
		Secret:  r.Secret,
		Score:   w,
		Path:    r.Path,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	full, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create witness: %w", err)
	}
	if err := params.IsSolved(full); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConstraintUnsatisfied, err)
	}
	startTime := time.Now()
	proof, err := params.Prove(full)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prove bid: %w", err)
	}
	log.Debugw("bid proof generated",
		"round", r.Round,
		"position", r.Path.Position,
		"scheme", proof.Scheme.String(),
		"took", time.Since(startTime).String())
	return proof, public, nil
}
