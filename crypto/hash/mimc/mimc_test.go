package mimc

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	stdmimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
)

type mimcCircuit struct {
	Inputs [3]frontend.Variable
	Hash   frontend.Variable `gnark:",public"`
}

func (c *mimcCircuit) Define(api frontend.API) error {
	h, err := stdmimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Inputs[:]...)
	api.AssertIsEqual(h.Sum(), c.Hash)
	return nil
}

func TestHashMatchesCircuit(t *testing.T) {
	c := qt.New(t)
	inputs := []*big.Int{big.NewInt(1), big.NewInt(2), new(big.Int).Sub(ecc.BN254.ScalarField(), big.NewInt(1))}
	hash, err := Hash(inputs...)
	c.Assert(err, qt.IsNil)

	assignment := &mimcCircuit{Hash: hash}
	for i := range inputs {
		assignment.Inputs[i] = inputs[i]
	}
	assert := test.NewAssert(t)
	assert.SolvingSucceeded(&mimcCircuit{}, assignment, test.WithCurves(ecc.BN254))
}

func TestHashInputs(t *testing.T) {
	c := qt.New(t)
	_, err := Hash()
	c.Assert(err, qt.IsNotNil)
	_, err = Hash(ecc.BN254.ScalarField())
	c.Assert(err, qt.ErrorMatches, "input 0 is not a field element")
	_, err = Hash(big.NewInt(-1))
	c.Assert(err, qt.IsNotNil)

	a, err := HashUint64(1, 2)
	c.Assert(err, qt.IsNil)
	b, err := Hash(big.NewInt(1), big.NewInt(2))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Cmp(b), qt.Equals, 0)
	d, err := HashUint64(2, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Cmp(d), qt.Not(qt.Equals), 0)
}
