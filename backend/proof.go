package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/vocdoni/blindbid/types"
)

// MaxProofSize bounds the proof data accepted by DecodeProof.
const MaxProofSize = 1 << 16

// Proof is an opaque proof of the scheme it names.
type Proof struct {
	Scheme Scheme
	Data   []byte
}

// Encode returns the canonical encoding of the proof:
// scheme(1) | len(4, big-endian) | data.
func (p *Proof) Encode() ([]byte, error) {
	if len(p.Data) == 0 || len(p.Data) > MaxProofSize {
		return nil, fmt.Errorf("%w: proof of %d bytes", types.ErrSerialization, len(p.Data))
	}
	buf := make([]byte, 0, 5+len(p.Data))
	buf = append(buf, byte(p.Scheme))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p.Data)))
	return append(buf, p.Data...), nil
}

// DecodeProof parses the canonical encoding of a proof.
func DecodeProof(data []byte) (*Proof, error) {
	d := types.NewDecoder(data)
	scheme := Scheme(d.Uint8())
	size := d.Uint32()
	if d.Err() == nil {
		if _, err := ByScheme(scheme); err != nil {
			d.Fail(fmt.Errorf("%w: %v", types.ErrSerialization, err))
		} else if size == 0 || size > MaxProofSize {
			d.Fail(fmt.Errorf("%w: proof of %d bytes", types.ErrSerialization, size))
		}
	}
	var proof []byte
	if d.Err() == nil {
		proof = d.Bytes(int(size))
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return &Proof{Scheme: scheme, Data: proof}, nil
}
