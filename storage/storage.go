// storage package persists the bid index next to the bid tree. The index
// maps every commitment to its position in the tree and keeps the canonical
// encoding of the record (and, optionally, its sealed opening) so the
// record can be recovered from the commitment alone. The following prefixes
// are used:
//   - 'b/' for bid entries, keyed by the hash of the commitment
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	bidPrefix = []byte("b/")

	// ErrNotFound is returned when the requested entry does not exist.
	ErrNotFound = fmt.Errorf("not found")
	// ErrExists is returned when storing an entry whose key is already used.
	ErrExists = fmt.Errorf("already exists")
)

const (
	// maxKeySize is the size of the keys of the entries, the truncated hash
	// of the commitment.
	maxKeySize = 20
)

// BidEntry is the stored form of a bid.
type BidEntry struct {
	Position uint64 `cbor:"0,keyasint"`
	Record   []byte `cbor:"1,keyasint"`
	Sealed   []byte `cbor:"2,keyasint,omitempty"`
}

// Bid decodes the record of the entry.
func (e *BidEntry) Bid() (*bid.Record, error) {
	return bid.Decode(e.Record)
}

// SealedOpening decodes the sealed opening of the entry, if any.
func (e *BidEntry) SealedOpening() (*bid.SealedOpening, error) {
	if len(e.Sealed) == 0 {
		return nil, ErrNotFound
	}
	return bid.DecodeSealedOpening(e.Sealed)
}

// Storage is the bid index.
type Storage struct {
	db db.Database
	mu sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err)
	}
}

// SetBid stores the record at position. It fails with ErrExists if the
// commitment of the record is already indexed. sealed can be nil.
func (s *Storage) SetBid(record *bid.Record, position uint64, sealed *bid.SealedOpening) error {
	encRecord, err := record.Encode()
	if err != nil {
		return err
	}
	entry := &BidEntry{Position: position, Record: encRecord}
	if sealed != nil {
		if entry.Sealed, err = sealed.Encode(); err != nil {
			return err
		}
	}
	data, err := encodeArtifact(entry)
	if err != nil {
		return err
	}
	key, err := commitmentKey(record.Commitment)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rTx := prefixeddb.NewPrefixedReader(s.db, bidPrefix)
	if _, err := rTx.Get(key); err == nil {
		return fmt.Errorf("%w: commitment %s", ErrExists, record.Commitment)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), bidPrefix)
	defer wTx.Discard()
	if err := wTx.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// BidByCommitment returns the entry of the commitment provided or
// ErrNotFound.
func (s *Storage) BidByCommitment(c pedersen.Commitment) (*BidEntry, error) {
	key, err := commitmentKey(c)
	if err != nil {
		return nil, err
	}
	rTx := prefixeddb.NewPrefixedReader(s.db, bidPrefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry := &BidEntry{}
	if err := decodeArtifact(data, entry); err != nil {
		return nil, fmt.Errorf("decode bid entry: %w", err)
	}
	return entry, nil
}

// IterateBids calls callback for every stored entry until it returns false.
func (s *Storage) IterateBids(callback func(*BidEntry) bool) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, bidPrefix)
	var decodeErr error
	err := rTx.Iterate(nil, func(_, value []byte) bool {
		entry := &BidEntry{}
		if decodeErr = decodeArtifact(value, entry); decodeErr != nil {
			return false
		}
		return callback(entry)
	})
	if err != nil {
		return err
	}
	return decodeErr
}
