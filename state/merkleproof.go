package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/storage"
)

// ArboProof stores the proof in arbo native types
type ArboProof struct {
	// Key+Value hashed through Siblings path, should produce Root hash
	Root      []byte
	Siblings  [][]byte
	Key       []byte
	Value     []byte
	Existence bool
}

// GenArboProof generates the proof of key k against the root of t.
func GenArboProof(t *arbo.Tree, k []byte) (ArboProof, error) {
	root, err := t.Root()
	if err != nil {
		return ArboProof{}, err
	}
	leafK, leafV, packedSiblings, existence, err := t.GenProof(k)
	if err != nil {
		return ArboProof{}, err
	}
	unpackedSiblings, err := arbo.UnpackSiblings(HashFunc, packedSiblings)
	if err != nil {
		return ArboProof{}, err
	}
	return ArboProof{
		Root:      root,
		Siblings:  unpackedSiblings,
		Key:       leafK,
		Value:     leafV,
		Existence: existence,
	}, nil
}

// MerklePath proves that Record is the leaf at Position of the tree with
// Root. Siblings are ordered from the root level down to the leaf level,
// as arbo returns them.
type MerklePath struct {
	Root     *big.Int
	Position uint64
	Leaf     *big.Int
	Siblings []*big.Int
	Record   *bid.Record
}

// BuildInclusionWitness returns the path of the bid with the commitment
// provided in the snapshot. It fails with ErrNotFoundInTree if the
// commitment is unknown or was added after the snapshot was taken.
func BuildInclusionWitness(commitment pedersen.Commitment, snapshot *Snapshot) (*MerklePath, error) {
	entry, err := snapshot.index.BidByCommitment(commitment)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: commitment %s", ErrNotFoundInTree, commitment)
		}
		return nil, err
	}
	record, err := entry.Bid()
	if err != nil {
		return nil, err
	}
	value, err := leafValue(record)
	if err != nil {
		return nil, err
	}
	proof, err := GenArboProof(snapshot.tree, positionKey(entry.Position))
	if err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: position %d", ErrNotFoundInTree, entry.Position)
		}
		return nil, err
	}
	if !proof.Existence || !bytes.Equal(proof.Value, value) {
		return nil, fmt.Errorf("%w: position %d not in snapshot %x", ErrNotFoundInTree, entry.Position, proof.Root)
	}
	siblings := make([]*big.Int, len(proof.Siblings))
	for i, s := range proof.Siblings {
		siblings[i] = arbo.BytesToBigInt(s)
	}
	return &MerklePath{
		Root:     arbo.BytesToBigInt(proof.Root),
		Position: entry.Position,
		Leaf:     arbo.BytesToBigInt(proof.Value),
		Siblings: siblings,
		Record:   record,
	}, nil
}

// Verify recomputes the root from the leaf and the siblings and checks it
// matches Root.
func (p *MerklePath) Verify() error {
	siblings := make([][]byte, len(p.Siblings))
	for i, s := range p.Siblings {
		siblings[i] = arbo.BigIntToBytes(HashFunc.Len(), s)
	}
	packed, err := arbo.PackSiblings(HashFunc, siblings)
	if err != nil {
		return err
	}
	ok, err := arbo.CheckProof(HashFunc,
		positionKey(p.Position),
		arbo.BigIntToBytes(HashFunc.Len(), p.Leaf),
		arbo.BigIntToBytes(HashFunc.Len(), p.Root),
		packed)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("merkle path does not match root")
	}
	return nil
}
