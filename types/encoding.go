package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// ErrSerialization is returned (wrapped) by every canonical decoder when the
// input is truncated, has trailing bytes or carries an out of range value.
var ErrSerialization = errors.New("serialization error")

// Modulus is the order of the scalar field every encoded scalar belongs to
// (BN254 Fr). It is written out so the byte level contract does not depend on
// any field arithmetic library.
var Modulus, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// IsScalar reports whether v is a canonical field element, 0 <= v < Modulus.
func IsScalar(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(Modulus) < 0
}

// AppendScalar appends the fixed width big-endian encoding of v to b. It
// fails if v is not a canonical field element.
func AppendScalar(b []byte, v *big.Int) ([]byte, error) {
	if !IsScalar(v) {
		return b, fmt.Errorf("%w: scalar out of range", ErrSerialization)
	}
	var buf [ScalarSize]byte
	v.FillBytes(buf[:])
	return append(b, buf[:]...), nil
}

// AppendHeight appends the fixed width big-endian encoding of h to b.
func AppendHeight(b []byte, h uint64) []byte {
	return binary.BigEndian.AppendUint64(b, h)
}

// Decoder reads canonical fixed width fields from a byte slice. The first
// error is sticky: every later read returns zero values and Finish returns
// that error.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

func (d *Decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: truncated input, want %d more bytes at offset %d, have %d",
			ErrSerialization, n, d.off, len(d.buf)-d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// Scalar reads a 32 byte big-endian field element, rejecting values that
// are not lower than Modulus.
func (d *Decoder) Scalar() *big.Int {
	b := d.next(ScalarSize)
	if b == nil {
		return new(big.Int)
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(Modulus) >= 0 {
		d.err = fmt.Errorf("%w: scalar at offset %d is not lower than the field modulus",
			ErrSerialization, d.off-ScalarSize)
		return new(big.Int)
	}
	return v
}

// Height reads an 8 byte big-endian round height.
func (d *Decoder) Height() uint64 {
	b := d.next(HeightSize)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() uint8 {
	b := d.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint32 reads a 4 byte big-endian integer.
func (d *Decoder) Uint32() uint32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Bytes reads n raw bytes. The returned slice is a copy.
func (d *Decoder) Bytes(n int) []byte {
	b := d.next(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Fail records err as the decoder error unless there is one already.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first error found so far.
func (d *Decoder) Err() error {
	return d.err
}

// Finish returns the first decoding error, or an error if the input has
// not been fully consumed.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerialization, len(d.buf)-d.off)
	}
	return nil
}
