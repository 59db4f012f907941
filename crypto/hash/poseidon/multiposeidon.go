// Package poseidon hashes arbitrary length lists of field elements with the
// iden3 Poseidon permutation, which only accepts up to 16 inputs per call.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

const (
	chunkSize = 16
	maxInputs = chunkSize * chunkSize
)

// MultiPoseidon hashes up to 256 inputs. Inputs are split in chunks of 16
// elements, each chunk is hashed and, if there is more than one chunk, the
// list of chunk hashes is hashed again.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > maxInputs {
		return nil, fmt.Errorf("too many inputs: %d > %d", len(inputs), maxInputs)
	} else if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	hashes := make([]*big.Int, 0, (len(inputs)+chunkSize-1)/chunkSize)
	for start := 0; start < len(inputs); start += chunkSize {
		end := min(start+chunkSize, len(inputs))
		hash, err := poseidon.Hash(inputs[start:end])
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", start/chunkSize, err)
		}
		hashes = append(hashes, hash)
	}
	if len(hashes) == 1 {
		return hashes[0], nil
	}
	return poseidon.Hash(hashes)
}
