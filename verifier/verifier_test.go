package verifier_test

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/blindbid/backend"
	"github.com/vocdoni/blindbid/circuits/bidproof"
	bidprooftest "github.com/vocdoni/blindbid/circuits/test/bidproof"
	"github.com/vocdoni/blindbid/prover"
	"github.com/vocdoni/blindbid/util"
	"github.com/vocdoni/blindbid/verifier"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	stubParamsOnce sync.Once
	stubParams     *backend.Params
	errStubParams  error
)

func testParams(t *testing.T) *backend.Params {
	t.Helper()
	stubParamsOnce.Do(func() {
		stubParams, errStubParams = prover.Setup(backend.Stub())
	})
	if errStubParams != nil {
		t.Fatal(errStubParams)
	}
	return stubParams
}

// proveScenario proves the default scenario: a bid of 100 eligible in
// [10,50) at round 20.
func proveScenario(t *testing.T, params *backend.Params) (*backend.Proof, *bidproof.PublicInputs) {
	t.Helper()
	opts := bidprooftest.DefaultOptions
	s, err := bidprooftest.NewScenario(metadb.NewTest(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Tree.Close() })
	proof, public, err := prover.Prove(params, &prover.Request{
		Limits:  opts.Limits,
		Record:  s.Record,
		Opening: s.Opening,
		Secret:  s.Secret,
		Seed:    s.Seed,
		Round:   opts.Round,
		Path:    s.Private.Path,
	})
	if err != nil {
		t.Fatal(err)
	}
	return proof, public
}

func copyInputs(p *bidproof.PublicInputs) *bidproof.PublicInputs {
	cp := *p
	return &cp
}

func testRoundBinding(t *testing.T, params *backend.Params) {
	c := qt.New(t)
	proof, public := proveScenario(t, params)
	c.Assert(public.RoundHeight, qt.Equals, uint64(20))
	c.Assert(verifier.Verify(params, proof, public), qt.IsNil)

	shifted := copyInputs(public)
	shifted.RoundHeight = 21
	c.Assert(verifier.Verify(params, proof, shifted), qt.ErrorIs, verifier.ErrInvalidProof)

	one := big.NewInt(1)
	mutations := map[string]func(p *bidproof.PublicInputs){
		"score":   func(p *bidproof.PublicInputs) { p.Score = new(big.Int).Add(p.Score, one) },
		"seed":    func(p *bidproof.PublicInputs) { p.Seed = util.RandomFieldElement() },
		"root":    func(p *bidproof.PublicInputs) { p.MerkleRoot = new(big.Int).Add(p.MerkleRoot, one) },
		"minimum": func(p *bidproof.PublicInputs) { p.MinimumBid++ },
	}
	for name, mutate := range mutations {
		mutated := copyInputs(public)
		mutate(mutated)
		c.Assert(verifier.Verify(params, proof, mutated), qt.ErrorIs, verifier.ErrInvalidProof,
			qt.Commentf(name))
	}
}

func TestVerifyRoundBinding(t *testing.T) {
	testRoundBinding(t, testParams(t))
}

func TestVerifyRoundBindingGroth16(t *testing.T) {
	if os.Getenv("RUN_CIRCUIT_TESTS") == "" || os.Getenv("RUN_CIRCUIT_TESTS") == "false" {
		t.Skip("skipping circuit tests...")
	}
	params, err := prover.Setup(backend.Groth16())
	if err != nil {
		t.Fatal(err)
	}
	testRoundBinding(t, params)
}

func TestVerifyRoundBindingPlonk(t *testing.T) {
	if os.Getenv("RUN_CIRCUIT_TESTS") == "" || os.Getenv("RUN_CIRCUIT_TESTS") == "false" {
		t.Skip("skipping circuit tests...")
	}
	params, err := prover.Setup(backend.Plonk())
	if err != nil {
		t.Fatal(err)
	}
	testRoundBinding(t, params)
}

func TestVerifyTamperedProof(t *testing.T) {
	c := qt.New(t)
	params := testParams(t)
	proof, public := proveScenario(t, params)

	data := append([]byte(nil), proof.Data...)
	data[len(data)-1] ^= 1
	c.Assert(verifier.Verify(params, &backend.Proof{Scheme: proof.Scheme, Data: data}, public),
		qt.ErrorIs, verifier.ErrInvalidProof)
	c.Assert(verifier.Verify(params, &backend.Proof{Scheme: backend.SchemeGroth16, Data: proof.Data}, public),
		qt.ErrorIs, verifier.ErrInvalidProof)
	c.Assert(verifier.Verify(params, nil, public), qt.ErrorIs, verifier.ErrInvalidProof)
	c.Assert(verifier.Verify(nil, proof, public), qt.ErrorIs, verifier.ErrInvalidProof)
}

func TestVerifyMalformedInputs(t *testing.T) {
	c := qt.New(t)
	params := testParams(t)
	proof, public := proveScenario(t, params)

	missing := copyInputs(public)
	missing.MerkleRoot = nil
	c.Assert(verifier.Verify(params, proof, missing), qt.ErrorIs, bidproof.ErrMalformedPublicInputs)
	c.Assert(verifier.Verify(params, proof, nil), qt.ErrorIs, bidproof.ErrMalformedPublicInputs)

	proofData, err := proof.Encode()
	c.Assert(err, qt.IsNil)
	inputsData, err := public.Encode()
	c.Assert(err, qt.IsNil)
	c.Assert(verifier.VerifyEncoded(params, proofData, inputsData), qt.IsNil)

	err = verifier.VerifyEncoded(params, proofData, inputsData[1:])
	c.Assert(err, qt.ErrorIs, bidproof.ErrMalformedPublicInputs)
	err = verifier.VerifyEncoded(params, proofData[:len(proofData)-1], inputsData)
	c.Assert(err, qt.ErrorIs, verifier.ErrInvalidProof)
}

func TestVerifyWithLoadedParams(t *testing.T) {
	c := qt.New(t)
	params := testParams(t)
	proof, public := proveScenario(t, params)
	_, _, vk, err := params.Export()
	c.Assert(err, qt.IsNil)
	verifierParams, err := backend.Load(backend.Stub(), nil, nil, vk)
	c.Assert(err, qt.IsNil)
	c.Assert(verifier.Verify(verifierParams, proof, public), qt.IsNil)
}

func TestVerifyConcurrent(t *testing.T) {
	c := qt.New(t)
	params := testParams(t)
	proof, public := proveScenario(t, params)
	shifted := copyInputs(public)
	shifted.RoundHeight++

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				errs <- verifier.Verify(params, proof, public)
				return
			}
			if err := verifier.Verify(params, proof, shifted); !errors.Is(err, verifier.ErrInvalidProof) {
				errs <- fmt.Errorf("shifted round not rejected: %v", err)
				return
			}
			errs <- nil
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		c.Assert(err, qt.IsNil)
	}
}
