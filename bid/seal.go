package bid

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/blindbid/crypto/hash/poseidon"
	"github.com/vocdoni/blindbid/types"
)

// ErrWrongSecret is returned when a sealed opening is opened with a key
// other than the one used to seal it.
var ErrWrongSecret = fmt.Errorf("wrong sealing key")

// Opening is the private value and blinding factor behind a commitment.
type Opening struct {
	Value   uint64
	Blinder *big.Int
}

// SealedOpening is an Opening encrypted under a BabyJubJub point only the
// bidder knows, so it can be published next to the record and the bidder
// can recover the opening from public data later.
type SealedOpening struct {
	Nonce   *big.Int
	Value   *big.Int
	Blinder *big.Int
	Tag     *big.Int
}

// SealedOpeningSize is the size of an encoded SealedOpening:
// nonce(32) | value(32) | blinder(32) | tag(32).
const SealedOpeningSize = 4 * types.ScalarSize

func keystream(key *babyjub.Point, nonce *big.Int, index int64) (*big.Int, error) {
	return poseidon.MultiPoseidon(key.X, key.Y, nonce, big.NewInt(index))
}

func sealTag(key *babyjub.Point, nonce, value, blinder *big.Int) (*big.Int, error) {
	return poseidon.MultiPoseidon(key.X, key.Y, nonce, value, blinder)
}

// Seal encrypts the opening with key and nonce. The nonce must be a field
// element and must not be reused with the same key.
func Seal(o Opening, key *babyjub.Point, nonce *big.Int) (*SealedOpening, error) {
	if key == nil || !types.IsScalar(nonce) || !types.IsScalar(o.Blinder) {
		return nil, fmt.Errorf("%w: cannot seal opening", ErrInvalidBid)
	}
	value := new(big.Int).SetUint64(o.Value)
	ks0, err := keystream(key, nonce, 0)
	if err != nil {
		return nil, err
	}
	ks1, err := keystream(key, nonce, 1)
	if err != nil {
		return nil, err
	}
	tag, err := sealTag(key, nonce, value, o.Blinder)
	if err != nil {
		return nil, err
	}
	return &SealedOpening{
		Nonce:   new(big.Int).Set(nonce),
		Value:   addMod(value, ks0),
		Blinder: addMod(o.Blinder, ks1),
		Tag:     tag,
	}, nil
}

// Open decrypts the sealed opening, failing with ErrWrongSecret if key is
// not the sealing key.
func (s *SealedOpening) Open(key *babyjub.Point) (*Opening, error) {
	if key == nil {
		return nil, ErrWrongSecret
	}
	ks0, err := keystream(key, s.Nonce, 0)
	if err != nil {
		return nil, err
	}
	ks1, err := keystream(key, s.Nonce, 1)
	if err != nil {
		return nil, err
	}
	value := subMod(s.Value, ks0)
	blinder := subMod(s.Blinder, ks1)
	tag, err := sealTag(key, s.Nonce, value, blinder)
	if err != nil {
		return nil, err
	}
	if tag.Cmp(s.Tag) != 0 || !value.IsUint64() {
		return nil, ErrWrongSecret
	}
	return &Opening{Value: value.Uint64(), Blinder: blinder}, nil
}

// Encode returns the canonical encoding of the sealed opening.
func (s *SealedOpening) Encode() ([]byte, error) {
	buf := make([]byte, 0, SealedOpeningSize)
	var err error
	for _, v := range []*big.Int{s.Nonce, s.Value, s.Blinder, s.Tag} {
		if buf, err = types.AppendScalar(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeSealedOpening parses the canonical encoding of a sealed opening.
func DecodeSealedOpening(data []byte) (*SealedOpening, error) {
	d := types.NewDecoder(data)
	s := &SealedOpening{Nonce: d.Scalar(), Value: d.Scalar(), Blinder: d.Scalar(), Tag: d.Scalar()}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return s, nil
}

func addMod(a, b *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, types.Modulus)
}

func subMod(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, types.Modulus)
}
