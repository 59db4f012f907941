package storage

import (
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/util"
	"go.vocdoni.io/dvote/db/metadb"
)

func newRecord(t *testing.T) *bid.Record {
	r, err := bid.New(bid.DefaultLimits, bid.MinimumBid, util.RandomBelow(pedersen.Order()),
		util.RandomFieldElement(), bid.EligibilityWindow{Start: 1, End: 100},
		babyjub.NewRandPrivKey().Public())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestBidIndex(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	r0, r1 := newRecord(t), newRecord(t)
	c.Assert(stg.SetBid(r0, 0, nil), qt.IsNil)
	key := babyjub.NewRandPrivKey().Public().Point()
	sealed, err := bid.Seal(bid.Opening{Value: bid.MinimumBid, Blinder: big.NewInt(3)}, key, big.NewInt(9))
	c.Assert(err, qt.IsNil)
	c.Assert(stg.SetBid(r1, 1, sealed), qt.IsNil)

	entry, err := stg.BidByCommitment(r1.Commitment)
	c.Assert(err, qt.IsNil)
	c.Assert(entry.Position, qt.Equals, uint64(1))
	record, err := entry.Bid()
	c.Assert(err, qt.IsNil)
	c.Assert(record, qt.DeepEquals, r1)
	storedSealed, err := entry.SealedOpening()
	c.Assert(err, qt.IsNil)
	opening, err := storedSealed.Open(key)
	c.Assert(err, qt.IsNil)
	c.Assert(opening.Value, qt.Equals, bid.MinimumBid)

	entry, err = stg.BidByCommitment(r0.Commitment)
	c.Assert(err, qt.IsNil)
	c.Assert(entry.Position, qt.Equals, uint64(0))
	_, err = entry.SealedOpening()
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)

	// duplicates are rejected
	c.Assert(errors.Is(stg.SetBid(r0, 2, nil), ErrExists), qt.IsTrue)

	// unknown commitment
	_, err = stg.BidByCommitment(newRecord(t).Commitment)
	c.Assert(errors.Is(err, ErrNotFound), qt.IsTrue)

	positions := map[uint64]bool{}
	c.Assert(stg.IterateBids(func(e *BidEntry) bool {
		positions[e.Position] = true
		return true
	}), qt.IsNil)
	c.Assert(positions, qt.DeepEquals, map[uint64]bool{0: true, 1: true})
}
