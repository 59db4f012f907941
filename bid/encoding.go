package bid

import (
	"fmt"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/types"
)

// EncodedSize is the size of an encoded Record:
//
//	C.x(32) | C.y(32) | start(8) | end(8) | R.x(32) | R.y(32) | HashedSecret(32)
//
// Scalars and heights are big-endian.
const EncodedSize = 5*types.ScalarSize + 2*types.HeightSize

// Encode returns the canonical encoding of the record.
func (r *Record) Encode() ([]byte, error) {
	if r.RewardKey == nil {
		return nil, fmt.Errorf("%w: missing reward key", types.ErrSerialization)
	}
	buf := make([]byte, 0, EncodedSize)
	var err error
	if buf, err = types.AppendScalar(buf, r.Commitment.X); err != nil {
		return nil, fmt.Errorf("commitment x: %w", err)
	}
	if buf, err = types.AppendScalar(buf, r.Commitment.Y); err != nil {
		return nil, fmt.Errorf("commitment y: %w", err)
	}
	buf = types.AppendHeight(buf, r.Window.Start)
	buf = types.AppendHeight(buf, r.Window.End)
	if buf, err = types.AppendScalar(buf, r.RewardKey.X); err != nil {
		return nil, fmt.Errorf("reward key x: %w", err)
	}
	if buf, err = types.AppendScalar(buf, r.RewardKey.Y); err != nil {
		return nil, fmt.Errorf("reward key y: %w", err)
	}
	if buf, err = types.AppendScalar(buf, r.HashedSecret); err != nil {
		return nil, fmt.Errorf("hashed secret: %w", err)
	}
	return buf, nil
}

// Decode parses the canonical encoding of a record. It fails with
// types.ErrSerialization on malformed lengths, out of range scalars, points
// that are not on their curve or an empty eligibility window.
func Decode(data []byte) (*Record, error) {
	d := types.NewDecoder(data)
	r := &Record{}
	r.Commitment = pedersen.Commitment{X: d.Scalar(), Y: d.Scalar()}
	r.Window = EligibilityWindow{Start: d.Height(), End: d.Height()}
	r.RewardKey = &babyjub.PublicKey{X: d.Scalar(), Y: d.Scalar()}
	r.HashedSecret = d.Scalar()
	if err := d.Finish(); err != nil {
		return nil, err
	}
	if !r.Commitment.IsValid() {
		return nil, fmt.Errorf("%w: commitment is not a valid curve point", types.ErrSerialization)
	}
	if !r.Window.Valid() {
		return nil, fmt.Errorf("%w: empty eligibility window %s", types.ErrSerialization, r.Window)
	}
	if !validRewardKey(r.RewardKey) {
		return nil, fmt.Errorf("%w: reward key is not a curve point", types.ErrSerialization)
	}
	return r, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.Encode()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Record) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}
