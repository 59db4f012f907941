// Package bidproof defines the circuit that proves a blind bid wins its
// score for a round: the bid is part of the bid tree, it is eligible at the
// round height, it locks at least the minimum stake and the score was
// derived from the bidder secret, the round seed and the hidden value.
package bidproof

import (
	"fmt"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/math/bits"
	"github.com/vocdoni/blindbid/circuits"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/score"
	"github.com/vocdoni/gnark-crypto-primitives/utils"
)

// HashFn is the in-circuit hash. It matches crypto/hash/mimc natively and
// the arbo MiMC hash of the bid tree.
var HashFn = utils.MiMCHasher

// heightBits is the width of round heights and bid values.
const heightBits = 64

type Circuit struct {
	// ---------------------------------------------------------------------------------------------
	// PUBLIC INPUTS (the order is the order of the public witness)

	MerkleRoot  frontend.Variable `gnark:",public"`
	Seed        frontend.Variable `gnark:",public"`
	RoundHeight frontend.Variable `gnark:",public"`
	Score       frontend.Variable `gnark:",public"`
	MinimumBid  frontend.Variable `gnark:",public"`

	// ---------------------------------------------------------------------------------------------
	// SECRET INPUTS

	Value       frontend.Variable
	Blinder     frontend.Variable
	Secret      frontend.Variable
	Y           frontend.Variable
	StartHeight frontend.Variable
	EndHeight   frontend.Variable
	RewardKey   [2]frontend.Variable
	Inclusion   MerkleProof
}

// Define declares the circuit constraints.
func (c Circuit) Define(api frontend.API) error {
	c.VerifyEligibility(api)
	c.VerifyStake(api)
	c.VerifyScore(api)
	cx, cy := c.Commitment(api)
	c.VerifyInclusion(api, c.Leaf(api, cx, cy))
	return nil
}

// VerifyEligibility checks StartHeight <= RoundHeight < EndHeight.
func (c Circuit) VerifyEligibility(api frontend.API) {
	bits.ToBinary(api, c.RoundHeight, bits.WithNbDigits(heightBits))
	bits.ToBinary(api, c.StartHeight, bits.WithNbDigits(heightBits))
	bits.ToBinary(api, c.EndHeight, bits.WithNbDigits(heightBits))
	assertLessOrEqual64(api, c.StartHeight, c.RoundHeight)
	assertLessOrEqual64(api, api.Add(c.RoundHeight, 1), c.EndHeight)
}

// VerifyStake checks MinimumBid <= Value, both 64 bit wide.
func (c Circuit) VerifyStake(api frontend.API) {
	bits.ToBinary(api, c.Value, bits.WithNbDigits(heightBits))
	bits.ToBinary(api, c.MinimumBid, bits.WithNbDigits(heightBits))
	assertLessOrEqual64(api, c.MinimumBid, c.Value)
}

// VerifyScore checks Y = MiMC(Secret, Seed) and
// Score = Value·(low128(Y) + 1) + mid64(Y).
func (c Circuit) VerifyScore(api frontend.API) {
	y, err := HashFn(api, c.Secret, c.Seed)
	if err != nil {
		circuits.FrontendError(api, "failed to hash secret and seed", err)
		return
	}
	api.AssertIsEqual(c.Y, y)
	// the full decomposition is checked to be canonical, so the low bits
	// are the low bits of y and not of y + p
	yBits := bits.ToBinary(api, c.Y)
	yLow := bits.FromBinary(api, yBits[:score.LowBits])
	yMid := bits.FromBinary(api, yBits[score.LowBits:score.LowBits+score.MidBits])
	api.AssertIsEqual(c.Score, api.Add(api.Mul(c.Value, api.Add(yLow, 1)), yMid))
}

// Commitment returns Value·G + Blinder·H.
func (c Circuit) Commitment(api frontend.API) (frontend.Variable, frontend.Variable) {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		circuits.FrontendError(api, "failed to load curve", err)
		return 0, 0
	}
	gx, gy := pedersen.G()
	hx, hy := pedersen.H()
	vg := curve.ScalarMul(twistededwards.Point{X: gx, Y: gy}, c.Value)
	rh := curve.ScalarMul(twistededwards.Point{X: hx, Y: hy}, c.Blinder)
	p := curve.Add(vg, rh)
	return p.X, p.Y
}

// Leaf returns the bid tree leaf of the record committing to (cx, cy):
// MiMC(cx, cy, StartHeight, EndHeight, RewardKey, MiMC(Secret)).
func (c Circuit) Leaf(api frontend.API, cx, cy frontend.Variable) frontend.Variable {
	hashedSecret, err := HashFn(api, c.Secret)
	if err != nil {
		circuits.FrontendError(api, "failed to hash secret", err)
		return 0
	}
	leaf, err := HashFn(api, cx, cy, c.StartHeight, c.EndHeight,
		c.RewardKey[0], c.RewardKey[1], hashedSecret)
	if err != nil {
		circuits.FrontendError(api, "failed to hash leaf", err)
		return 0
	}
	return leaf
}

// VerifyInclusion checks leaf is in the tree with MerkleRoot.
func (c Circuit) VerifyInclusion(api frontend.API, leaf frontend.Variable) {
	if err := c.Inclusion.Verify(api, HashFn, c.MerkleRoot, leaf); err != nil {
		circuits.FrontendError(api, "failed to verify bid inclusion", err)
	}
}

// assertLessOrEqual64 asserts a <= b for values already known to fit in 64
// bits: b - a fits in 64 bits only if it did not wrap around the field.
func assertLessOrEqual64(api frontend.API, a, b frontend.Variable) {
	bits.ToBinary(api, api.Sub(b, a), bits.WithNbDigits(heightBits))
}

func (c Circuit) String() string {
	return fmt.Sprintf("bidproof{root: %v, seed: %v, round: %v, score: %v, min: %v}",
		c.MerkleRoot, c.Seed, c.RoundHeight, c.Score, c.MinimumBid)
}
