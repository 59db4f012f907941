package bidproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/blindbid/circuits"
	"github.com/vocdoni/blindbid/state"
	garbo "github.com/vocdoni/gnark-crypto-primitives/tree/arbo"
)

// MerkleProof is the in-circuit inclusion path of a bid. The leaf and the
// root are not part of it: the leaf is recomputed from the opening and the
// root is a public input.
type MerkleProof struct {
	Position frontend.Variable
	Siblings [circuits.BidProofMaxLevels]frontend.Variable
}

// MerkleProofFromPath converts a native path into its circuit form, padding
// the siblings with zeros up to the tree depth.
func MerkleProofFromPath(p *state.MerklePath) (MerkleProof, error) {
	if len(p.Siblings) > circuits.BidProofMaxLevels {
		return MerkleProof{}, fmt.Errorf("path has %d siblings, the tree has %d levels",
			len(p.Siblings), circuits.BidProofMaxLevels)
	}
	return MerkleProof{
		Position: new(big.Int).SetUint64(p.Position),
		Siblings: padSiblings(p.Siblings),
	}, nil
}

func padSiblings(siblings []*big.Int) [circuits.BidProofMaxLevels]frontend.Variable {
	padded := [circuits.BidProofMaxLevels]frontend.Variable{}
	for i, s := range circuits.BigIntArrayToN(siblings, circuits.BidProofMaxLevels) {
		padded[i] = s
	}
	return padded
}

// Verify checks that leaf is at Position of the tree with root.
func (mp *MerkleProof) Verify(api frontend.API, hFn garbo.Hash, root, leaf frontend.Variable) error {
	return garbo.CheckInclusionProof(api, hFn, mp.Position, leaf, root, mp.Siblings[:])
}
