package pedersen

import (
	"errors"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"
)

func TestGenerators(t *testing.T) {
	c := qt.New(t)
	gx, gy := G()
	hx, hy := H()
	gc := Commitment{X: gx, Y: gy}
	hc := Commitment{X: hx, Y: hy}
	c.Assert(gc.IsValid(), qt.IsTrue)
	c.Assert(hc.IsValid(), qt.IsTrue)
	c.Assert(gc.Equal(hc), qt.IsFalse)

	// derivation is deterministic
	p, err := hashToCurve(GeneratorTag)
	c.Assert(err, qt.IsNil)
	x, y := toBig(&p)
	c.Assert(x.Cmp(hx), qt.Equals, 0)
	c.Assert(y.Cmp(hy), qt.Equals, 0)

	// and tag dependent
	q, err := hashToCurve("another tag")
	c.Assert(err, qt.IsNil)
	c.Assert(q.Equal(&p), qt.IsFalse)
}

func TestCommit(t *testing.T) {
	c := qt.New(t)
	v1, r1 := big.NewInt(100), big.NewInt(12345)
	v2, r2 := big.NewInt(250), big.NewInt(67890)

	c1 := Commit(v1, r1)
	c.Assert(c1.IsValid(), qt.IsTrue)
	c.Assert(Commit(v1, r1).Equal(c1), qt.IsTrue)
	c.Assert(Commit(v1, r2).Equal(c1), qt.IsFalse)
	c.Assert(Commit(v2, r1).Equal(c1), qt.IsFalse)

	// homomorphic
	sum, err := c1.Add(Commit(v2, r2))
	c.Assert(err, qt.IsNil)
	expected := Commit(new(big.Int).Add(v1, v2), new(big.Int).Add(r1, r2))
	c.Assert(sum.Equal(expected), qt.IsTrue)

	// a blinder reduced modulo the subgroup order opens to the same point
	wrapped := new(big.Int).Add(r1, Order())
	c.Assert(Commit(v1, wrapped).Equal(c1), qt.IsTrue)
}

func TestAddRejectsInvalid(t *testing.T) {
	c := qt.New(t)
	valid := Commit(big.NewInt(7), big.NewInt(11))
	gx, gy := G()
	for name, invalid := range map[string]Commitment{
		"nil":          {},
		"out of field": {X: new(big.Int).Set(fr.Modulus()), Y: big.NewInt(1)},
		"off curve":    {X: gx, Y: new(big.Int).Add(gy, big.NewInt(1))},
	} {
		_, err := valid.Add(invalid)
		c.Assert(errors.Is(err, ErrInvalidCommitment), qt.IsTrue, qt.Commentf(name))
		_, err = invalid.Add(valid)
		c.Assert(errors.Is(err, ErrInvalidCommitment), qt.IsTrue, qt.Commentf(name))
	}
}

func TestIsValid(t *testing.T) {
	c := qt.New(t)
	c.Assert(Commitment{}.IsValid(), qt.IsFalse)
	c.Assert(Commitment{X: big.NewInt(1), Y: big.NewInt(1)}.IsValid(), qt.IsFalse)
	// the identity is in the subgroup
	c.Assert(Commitment{X: big.NewInt(0), Y: big.NewInt(1)}.IsValid(), qt.IsTrue)
	gx, gy := G()
	c.Assert(Commitment{X: gx, Y: new(big.Int).Add(gy, big.NewInt(1))}.IsValid(), qt.IsFalse)
}
