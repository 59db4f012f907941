package bidproof_test

import (
	"math/big"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"
	"github.com/vocdoni/blindbid/circuits/bidproof"
	bidprooftest "github.com/vocdoni/blindbid/circuits/test/bidproof"
	"github.com/vocdoni/blindbid/util"
	"go.vocdoni.io/dvote/db/metadb"
)

func runCircuitTests() bool {
	v := os.Getenv("RUN_CIRCUIT_TESTS")
	return v != "" && v != "false"
}

func newScenario(t *testing.T, opts bidprooftest.Options) *bidprooftest.Scenario {
	t.Helper()
	s, err := bidprooftest.NewScenario(metadb.NewTest(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Tree.Close() })
	return s
}

func TestCircuitSolved(t *testing.T) {
	c := qt.New(t)
	s := newScenario(t, bidprooftest.DefaultOptions)
	assignment, err := s.Assignment()
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(bidproof.Placeholder(), assignment, ecc.BN254.ScalarField()), qt.IsNil)
}

func TestCircuitWindowEdges(t *testing.T) {
	c := qt.New(t)
	for _, round := range []uint64{10, 49} {
		opts := bidprooftest.DefaultOptions
		opts.Round = round
		s := newScenario(t, opts)
		assignment, err := s.Assignment()
		c.Assert(err, qt.IsNil)
		c.Assert(test.IsSolved(bidproof.Placeholder(), assignment, ecc.BN254.ScalarField()), qt.IsNil,
			qt.Commentf("round %d", round))
	}
}

func TestCircuitFirstBid(t *testing.T) {
	c := qt.New(t)
	opts := bidprooftest.DefaultOptions
	opts.Others = 0
	s := newScenario(t, opts)
	assignment, err := s.Assignment()
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(bidproof.Placeholder(), assignment, ecc.BN254.ScalarField()), qt.IsNil)
}

func TestCircuitRejectsTamperedWitness(t *testing.T) {
	s := newScenario(t, bidprooftest.DefaultOptions)
	one := big.NewInt(1)
	add := func(v frontend.Variable) frontend.Variable {
		return new(big.Int).Add(v.(*big.Int), one)
	}
	cases := map[string]func(a *bidproof.Circuit){
		"value":     func(a *bidproof.Circuit) { a.Value = s.Opening.Value + 1 },
		"blinder":   func(a *bidproof.Circuit) { a.Blinder = add(a.Blinder) },
		"secret":    func(a *bidproof.Circuit) { a.Secret = util.RandomFieldElement() },
		"y":         func(a *bidproof.Circuit) { a.Y = add(a.Y) },
		"score":     func(a *bidproof.Circuit) { a.Score = add(a.Score) },
		"no offset": func(a *bidproof.Circuit) {
			// the scaled part alone, without the mid bits of y
			scaled := new(big.Int).Add(s.Private.Score.YLow, one)
			a.Score = scaled.Mul(scaled, new(big.Int).SetUint64(s.Opening.Value))
		},
		"root":      func(a *bidproof.Circuit) { a.MerkleRoot = add(a.MerkleRoot) },
		"seed":      func(a *bidproof.Circuit) { a.Seed = util.RandomFieldElement() },
		"sibling":   func(a *bidproof.Circuit) { a.Inclusion.Siblings[0] = add(a.Inclusion.Siblings[0]) },
		"position":  func(a *bidproof.Circuit) { a.Inclusion.Position = add(a.Inclusion.Position) },
		"start":     func(a *bidproof.Circuit) { a.StartHeight = uint64(11) },
		"rewardKey": func(a *bidproof.Circuit) { a.RewardKey[0] = add(a.RewardKey[0]) },
		"minimum":   func(a *bidproof.Circuit) { a.MinimumBid = s.Opening.Value + 1 },
		"early":     func(a *bidproof.Circuit) { a.RoundHeight = uint64(9) },
		"expired":   func(a *bidproof.Circuit) { a.RoundHeight = uint64(50) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)
			assignment, err := s.Assignment()
			c.Assert(err, qt.IsNil)
			mutate(assignment)
			c.Assert(test.IsSolved(bidproof.Placeholder(), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
		})
	}
}

func TestCircuitCompile(t *testing.T) {
	if !runCircuitTests() {
		t.Skip("skipping circuit tests...")
	}
	// enable log to see nbConstraints
	logger.Set(zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger())

	if _, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, bidproof.Placeholder()); err != nil {
		t.Fatal(err)
	}
}

func TestCircuitProve(t *testing.T) {
	if !runCircuitTests() {
		t.Skip("skipping circuit tests...")
	}
	s := newScenario(t, bidprooftest.DefaultOptions)
	assignment, err := s.Assignment()
	if err != nil {
		t.Fatal(err)
	}
	assert := test.NewAssert(t)
	assert.ProverSucceeded(bidproof.Placeholder(), assignment,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))

	assignment.Score = new(big.Int).Add(s.Public.Score, big.NewInt(1))
	assert.SolvingFailed(bidproof.Placeholder(), assignment,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}
