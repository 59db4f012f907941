// Package score derives the per round sortition score of a bid.
//
// The score is Score = d·(low128(y) + 1) + mid64(y) with y = MiMC(k, seed),
// where low128 are bits [0,128) of y and mid64 bits [128,192). y is the
// pseudorandom part, unknown without the bidder secret k. For a fixed y each
// unit of stake adds low128(y) + 1 to the score, so a larger stake always
// yields a larger score. The mid64 offset keeps d from dividing the score:
// any stake d' of the bid limits explains a given score with quotient
// Score/d' and remainder Score mod d' < 2^64, so the score alone does not
// single out d. Since d < 2^64 the score stays below 2^193 and never wraps
// around the field.
package score

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/crypto/hash/mimc"
	"github.com/vocdoni/blindbid/types"
)

var (
	// ErrInsufficientStake is returned when the bid value is below the
	// minimum bid of the round.
	ErrInsufficientStake = fmt.Errorf("insufficient stake")
	// ErrBidNotEligible is returned when the round is before the bid window.
	ErrBidNotEligible = fmt.Errorf("bid not eligible yet")
	// ErrBidExpired is returned when the round is at or after the window end.
	ErrBidExpired = fmt.Errorf("bid expired")
	// ErrInvalidInput is returned when the secret or the seed are not field
	// elements.
	ErrInvalidInput = fmt.Errorf("invalid score input")
)

const (
	// LowBits is the number of low bits of y scaled by the stake.
	LowBits = 128
	// MidBits is the number of bits of y, after the low ones, added to the
	// scaled part.
	MidBits = 64
)

var (
	lowMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), LowBits), big.NewInt(1))
	midMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), MidBits), big.NewInt(1))
)

// Witness holds the private values the circuit needs to check a score.
type Witness struct {
	// Y is MiMC(secret, seed).
	Y *big.Int
	// YLow is the low LowBits bits of Y.
	YLow *big.Int
	// YMid is the MidBits bits of Y after YLow.
	YMid *big.Int
}

// Generator computes scores for the rounds of a given minimum bid.
type Generator struct {
	MinimumBid uint64
}

// NewGenerator returns a generator for the limits provided.
func NewGenerator(limits bid.Limits) Generator {
	return Generator{MinimumBid: limits.Minimum}
}

// Generate returns the score of a bid of the value provided for the round
// and seed provided, and the private witness behind it. Cheap checks run
// first: the stake, then the eligibility window.
func (g Generator) Generate(secret *big.Int, value uint64, seed *big.Int,
	round uint64, window bid.EligibilityWindow,
) (*big.Int, *Witness, error) {
	if value < g.MinimumBid {
		return nil, nil, fmt.Errorf("%w: %d < %d", ErrInsufficientStake, value, g.MinimumBid)
	}
	if round < window.Start {
		return nil, nil, fmt.Errorf("%w: round %d, window %s", ErrBidNotEligible, round, window)
	}
	if round >= window.End {
		return nil, nil, fmt.Errorf("%w: round %d, window %s", ErrBidExpired, round, window)
	}
	if !types.IsScalar(secret) || !types.IsScalar(seed) {
		return nil, nil, ErrInvalidInput
	}
	y, err := mimc.Hash(secret, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return Combine(y, value), &Witness{Y: y, YLow: Low(y), YMid: Mid(y)}, nil
}

// Low returns the low LowBits bits of y.
func Low(y *big.Int) *big.Int {
	return new(big.Int).And(y, lowMask)
}

// Mid returns the MidBits bits of y after the low LowBits bits.
func Mid(y *big.Int) *big.Int {
	m := new(big.Int).Rsh(y, LowBits)
	return m.And(m, midMask)
}

// Combine returns value·(low128(y) + 1) + mid64(y).
func Combine(y *big.Int, value uint64) *big.Int {
	s := Low(y)
	s.Add(s, big.NewInt(1))
	s.Mul(s, new(big.Int).SetUint64(value))
	return s.Add(s, Mid(y))
}
