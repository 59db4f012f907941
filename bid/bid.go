// Package bid defines the public bid record of the blind bid sortition, the
// limits a bid value must respect and the predicates deciding when a bid
// can take part in a round.
package bid

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/blindbid/crypto/hash/mimc"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/types"
)

var (
	// ErrInvalidValue is returned when the bid value is outside the limits.
	ErrInvalidValue = fmt.Errorf("invalid bid value")
	// ErrInvalidBid is returned when any other bid field is not valid.
	ErrInvalidBid = fmt.Errorf("invalid bid")
)

const (
	// MinimumBid is the minimum value a bidder is permitted to lock.
	MinimumBid uint64 = 50_000
	// MaximumBid is the maximum value a bidder is permitted to lock.
	MaximumBid uint64 = 250_000
)

// Limits bounds the value of a bid, both ends included.
type Limits struct {
	Minimum uint64 `yaml:"minimum"`
	Maximum uint64 `yaml:"maximum"`
}

// DefaultLimits are the limits of the protocol.
var DefaultLimits = Limits{Minimum: MinimumBid, Maximum: MaximumBid}

// Check returns ErrInvalidValue if value is outside the limits.
func (l Limits) Check(value uint64) error {
	if value < l.Minimum {
		return fmt.Errorf("%w: %d is below the minimum %d", ErrInvalidValue, value, l.Minimum)
	}
	if value > l.Maximum {
		return fmt.Errorf("%w: %d exceeds the maximum %d", ErrInvalidValue, value, l.Maximum)
	}
	return nil
}

// EligibilityWindow is the range of round heights [Start, End) in which a
// bid can be used.
type EligibilityWindow struct {
	Start uint64
	End   uint64
}

// Contains reports whether height is inside the window.
func (w EligibilityWindow) Contains(height uint64) bool {
	return w.Start <= height && height < w.End
}

// Valid reports whether the window is not empty.
func (w EligibilityWindow) Valid() bool {
	return w.Start < w.End
}

func (w EligibilityWindow) String() string {
	return fmt.Sprintf("[%d,%d)", w.Start, w.End)
}

// Record is the public part of a bid, as published when the stake is
// locked. The value and blinding factor stay hidden behind Commitment and
// the bidder secret behind HashedSecret.
type Record struct {
	Commitment   pedersen.Commitment
	Window       EligibilityWindow
	RewardKey    *babyjub.PublicKey
	HashedSecret *big.Int
}

// New builds the record of a bid locking value with the blinding factor
// and the bidder secret provided. It fails with ErrInvalidValue if value is
// outside the limits.
func New(limits Limits, value uint64, blinder, secret *big.Int,
	window EligibilityWindow, rewardKey *babyjub.PublicKey,
) (*Record, error) {
	if err := limits.Check(value); err != nil {
		return nil, err
	}
	if blinder == nil || blinder.Sign() < 0 || blinder.Cmp(pedersen.Order()) >= 0 {
		return nil, fmt.Errorf("%w: blinder out of range", ErrInvalidBid)
	}
	if !types.IsScalar(secret) {
		return nil, fmt.Errorf("%w: secret is not a field element", ErrInvalidBid)
	}
	if !window.Valid() {
		return nil, fmt.Errorf("%w: empty eligibility window %s", ErrInvalidBid, window)
	}
	if !validRewardKey(rewardKey) {
		return nil, fmt.Errorf("%w: reward key is not a curve point", ErrInvalidBid)
	}
	hashedSecret, err := HashSecret(secret)
	if err != nil {
		return nil, err
	}
	return &Record{
		Commitment:   pedersen.Commit(new(big.Int).SetUint64(value), blinder),
		Window:       window,
		RewardKey:    rewardKey,
		HashedSecret: hashedSecret,
	}, nil
}

func validRewardKey(k *babyjub.PublicKey) bool {
	return k != nil && types.IsScalar(k.X) && types.IsScalar(k.Y) && k.Point().InCurve()
}

// HashSecret returns the public hash of a bidder secret.
func HashSecret(secret *big.Int) (*big.Int, error) {
	return mimc.Hash(secret)
}

// IsEligible reports whether the bid can be used at round height.
func (r *Record) IsEligible(height uint64) bool {
	return r.Window.Contains(height)
}

// Hash returns the leaf value of the record in the bid tree. Every public
// field is part of the preimage.
func (r *Record) Hash() (*big.Int, error) {
	return mimc.Hash(r.hashInputs()...)
}

func (r *Record) hashInputs() []*big.Int {
	return []*big.Int{
		r.Commitment.X,
		r.Commitment.Y,
		new(big.Int).SetUint64(r.Window.Start),
		new(big.Int).SetUint64(r.Window.End),
		r.RewardKey.X,
		r.RewardKey.Y,
		r.HashedSecret,
	}
}

// Equal reports whether both records hash to the same leaf.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	a, err := r.Hash()
	if err != nil {
		return false
	}
	b, err := o.Hash()
	if err != nil {
		return false
	}
	return a.Cmp(b) == 0
}

// ProverID returns the one-time identifier of the bidder for a round step,
// MiMC(secret, seed, round, step). It lets the consensus layer tell apart
// messages of the same bidder without linking them across rounds.
func ProverID(secret, seed *big.Int, round, step uint64) (*big.Int, error) {
	return mimc.Hash(secret, seed, new(big.Int).SetUint64(round), new(big.Int).SetUint64(step))
}
