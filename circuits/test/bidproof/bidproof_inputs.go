// Package bidprooftest builds complete bid proof inputs for tests: a bid
// tree with some bids, one of them owned by the caller, and the score of
// that bid for a round.
package bidprooftest

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/circuits/bidproof"
	"github.com/vocdoni/blindbid/crypto/pedersen"
	"github.com/vocdoni/blindbid/score"
	"github.com/vocdoni/blindbid/state"
	"github.com/vocdoni/blindbid/util"
	"go.vocdoni.io/dvote/db"
)

// Options of a generated scenario. Zero values take the defaults of
// DefaultOptions.
type Options struct {
	Limits bid.Limits
	Value  uint64
	Window bid.EligibilityWindow
	Round  uint64
	// Others is the number of bids of other bidders added to the tree
	// before the owned one.
	Others int
}

// DefaultOptions is a bid of 100 eligible in [10,50) proving round 20.
var DefaultOptions = Options{
	Limits: bid.Limits{Minimum: 1, Maximum: bid.MaximumBid},
	Value:  100,
	Window: bid.EligibilityWindow{Start: 10, End: 50},
	Round:  20,
	Others: 3,
}

// Scenario holds everything a bidder knows when proving a score.
type Scenario struct {
	Tree     *state.BidTree
	Snapshot *state.Snapshot
	Record   *bid.Record
	Opening  bid.Opening
	Secret   *big.Int
	Seed     *big.Int
	Public   *bidproof.PublicInputs
	Private  *bidproof.PrivateInputs
}

func (o Options) withDefaults() Options {
	if o.Limits == (bid.Limits{}) {
		o.Limits = DefaultOptions.Limits
	}
	if o.Value == 0 {
		o.Value = DefaultOptions.Value
	}
	if o.Window == (bid.EligibilityWindow{}) {
		o.Window = DefaultOptions.Window
	}
	if o.Round == 0 {
		o.Round = DefaultOptions.Round
	}
	return o
}

func randomRecord(limits bid.Limits, value uint64, window bid.EligibilityWindow) (*bid.Record, bid.Opening, *big.Int, error) {
	opening := bid.Opening{Value: value, Blinder: util.RandomBelow(pedersen.Order())}
	secret := util.RandomFieldElement()
	r, err := bid.New(limits, value, opening.Blinder, secret, window, babyjub.NewRandPrivKey().Public())
	return r, opening, secret, err
}

// NewScenario fills a bid tree in database and returns the inputs proving
// the score of the last bid added.
func NewScenario(database db.Database, opts Options) (*Scenario, error) {
	opts = opts.withDefaults()
	tree, err := state.New(database)
	if err != nil {
		return nil, err
	}
	for range opts.Others {
		other, _, _, err := randomRecord(opts.Limits, opts.Limits.Minimum, opts.Window)
		if err != nil {
			return nil, err
		}
		if _, err := tree.Add(other, nil); err != nil {
			return nil, err
		}
	}
	record, opening, secret, err := randomRecord(opts.Limits, opts.Value, opts.Window)
	if err != nil {
		return nil, err
	}
	if _, err := tree.Add(record, nil); err != nil {
		return nil, err
	}
	snapshot, err := tree.Snapshot()
	if err != nil {
		return nil, err
	}
	path, err := state.BuildInclusionWitness(record.Commitment, snapshot)
	if err != nil {
		return nil, err
	}
	seed := util.RandomFieldElement()
	s, w, err := score.NewGenerator(opts.Limits).Generate(secret, opts.Value, seed, opts.Round, opts.Window)
	if err != nil {
		return nil, fmt.Errorf("generate score: %w", err)
	}
	return &Scenario{
		Tree:     tree,
		Snapshot: snapshot,
		Record:   record,
		Opening:  opening,
		Secret:   secret,
		Seed:     seed,
		Public: &bidproof.PublicInputs{
			MerkleRoot:  snapshot.Root(),
			Seed:        seed,
			RoundHeight: opts.Round,
			Score:       s,
			MinimumBid:  opts.Limits.Minimum,
		},
		Private: &bidproof.PrivateInputs{
			Opening: opening,
			Secret:  secret,
			Score:   w,
			Path:    path,
		},
	}, nil
}

// Assignment returns the full circuit assignment of the scenario.
func (s *Scenario) Assignment() (*bidproof.Circuit, error) {
	return bidproof.NewAssignment(s.Public, s.Private)
}
