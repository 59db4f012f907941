// Package state maintains the set of published bids as an append-only arbo
// merkle tree, and builds the inclusion witnesses that prove a bid belongs
// to the tree root of a round.
package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/log"
	"github.com/vocdoni/blindbid/storage"
	"github.com/vocdoni/blindbid/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	// size of the inclusion proofs
	MaxLevels = types.BidTreeMaxLevels
	// MaxKeyLen is ceil(maxLevels/8)
	MaxKeyLen = types.BidTreeKeyLen
)

// HashFunc is the hash function used in the bid tree. It is MiMC over the
// BN254 scalar field, the same hash the bid circuit uses.
var HashFunc = arbo.HashMiMC_BN254{}

var (
	// ErrNotFoundInTree is returned when a commitment is not part of a tree
	// snapshot.
	ErrNotFoundInTree = fmt.Errorf("bid not found in tree")
	// ErrBidExists is returned when appending a commitment twice.
	ErrBidExists = fmt.Errorf("bid already in tree")

	treePrefix  = []byte("t/")
	indexPrefix = []byte("i/")
)

// BidTree is the append-only tree of bids. Leaf keys are positions and leaf
// values are record hashes.
type BidTree struct {
	mu    sync.Mutex
	db    db.Database
	tree  *arbo.Tree
	index *storage.Storage
}

// New creates or opens a BidTree stored in the passed database.
func New(database db.Database) (*BidTree, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(database, treePrefix),
		MaxLevels:    MaxLevels,
		HashFunction: HashFunc,
	})
	if err != nil {
		return nil, err
	}
	return &BidTree{
		db:    database,
		tree:  tree,
		index: storage.New(prefixeddb.NewPrefixedDatabase(database, indexPrefix)),
	}, nil
}

// Close the database, no more operations can be done after this.
func (t *BidTree) Close() error {
	return t.db.Close()
}

func positionKey(position uint64) []byte {
	return arbo.BigIntToBytes(MaxKeyLen, new(big.Int).SetUint64(position))
}

func leafValue(record *bid.Record) ([]byte, error) {
	leaf, err := record.Hash()
	if err != nil {
		return nil, err
	}
	return arbo.BigIntToBytes(HashFunc.Len(), leaf), nil
}

// Add appends the record to the tree and returns its position. sealed is
// the optional sealed opening stored next to the record.
func (t *BidTree) Add(record *bid.Record, sealed *bid.SealedOpening) (uint64, error) {
	value, err := leafValue(record)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	nLeafs, err := t.tree.GetNLeafs()
	if err != nil {
		return 0, fmt.Errorf("count leafs: %w", err)
	}
	position := uint64(nLeafs)
	// the index entry goes first: an entry without leaf is never returned
	// as an inclusion witness, since its leaf is checked against the tree
	if err := t.index.SetBid(record, position, sealed); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return 0, fmt.Errorf("%w: %v", ErrBidExists, err)
		}
		return 0, err
	}
	if err := t.tree.Add(positionKey(position), value); err != nil {
		return 0, fmt.Errorf("add leaf %d: %w", position, err)
	}
	log.Debugw("bid added", "position", position, "window", record.Window.String())
	return position, nil
}

// Root returns the current root of the tree.
func (t *BidTree) Root() (*big.Int, error) {
	root, err := t.tree.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// Size returns the number of bids in the tree.
func (t *BidTree) Size() (uint64, error) {
	n, err := t.tree.GetNLeafs()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SealedOpening returns the sealed opening stored with the record of the
// commitment, if any.
func (t *BidTree) SealedOpening(record *bid.Record) (*bid.SealedOpening, error) {
	entry, err := t.index.BidByCommitment(record.Commitment)
	if err != nil {
		return nil, err
	}
	return entry.SealedOpening()
}

// IterateBids calls callback with every bid of the tree and its position,
// in no particular order, until it returns false.
func (t *BidTree) IterateBids(callback func(position uint64, record *bid.Record) bool) error {
	var recordErr error
	err := t.index.IterateBids(func(entry *storage.BidEntry) bool {
		record, err := entry.Bid()
		if err != nil {
			recordErr = err
			return false
		}
		return callback(entry.Position, record)
	})
	if err != nil {
		return err
	}
	return recordErr
}

// Snapshot is an immutable view of the tree at a given root. It can be
// shared by any number of goroutines.
type Snapshot struct {
	root  []byte
	tree  *arbo.Tree
	index *storage.Storage
}

// Snapshot returns a read-only view of the tree at its current root.
// Later appends are not visible through it.
func (t *BidTree) Snapshot() (*Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	root, err := t.tree.Root()
	if err != nil {
		return nil, err
	}
	tree, err := t.tree.Snapshot(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot at root %x: %w", root, err)
	}
	return &Snapshot{root: root, tree: tree, index: t.index}, nil
}

// Root returns the root of the snapshot as a field element.
func (s *Snapshot) Root() *big.Int {
	return arbo.BytesToBigInt(s.root)
}
