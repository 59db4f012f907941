// Package pedersen implements Pedersen commitments C = v·G + r·H over the
// BabyJubJub twisted Edwards curve embedded in BN254. G is the curve base
// point and H is derived from a public tag by hashing to the curve, so no
// discrete log relation between them is known.
package pedersen

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/vocdoni/blindbid/crypto/hash/mimc"
)

// GeneratorTag is the domain tag hashed to obtain the blinding generator H.
const GeneratorTag = "blindbid/pedersen/H"

// maxGeneratorTries bounds the try-and-increment loop, the probability of
// needing more than a handful of tries is negligible.
const maxGeneratorTries = 256

var (
	curve = twistededwards.GetEdwardsCurve()
	g     twistededwards.PointAffine
	h     twistededwards.PointAffine
)

func init() {
	g = curve.Base
	var err error
	if h, err = hashToCurve(GeneratorTag); err != nil {
		panic(err)
	}
}

// hashToCurve maps tag to a point of the prime order subgroup. It tries
// y = MiMC(tag, i) for increasing i until y is the ordinate of a curve
// point, then clears the cofactor.
func hashToCurve(tag string) (twistededwards.PointAffine, error) {
	tagScalar := new(big.Int).SetBytes([]byte(tag))
	var cofactor big.Int
	curve.Cofactor.BigInt(&cofactor)
	for i := int64(0); i < maxGeneratorTries; i++ {
		yBig, err := mimc.Hash(tagScalar, big.NewInt(i))
		if err != nil {
			return twistededwards.PointAffine{}, err
		}
		var y, y2, num, den, x2, x fr.Element
		y.SetBigInt(yBig)
		// a·x² + y² = 1 + d·x²·y²  =>  x² = (1 - y²) / (a - d·y²)
		y2.Square(&y)
		num.SetOne().Sub(&num, &y2)
		den.Mul(&curve.D, &y2)
		den.Sub(&curve.A, &den)
		if den.IsZero() {
			continue
		}
		x2.Div(&num, &den)
		if x.Sqrt(&x2) == nil {
			continue
		}
		p := twistededwards.PointAffine{X: x, Y: y}
		p.ScalarMultiplication(&p, &cofactor)
		if isIdentity(&p) {
			continue
		}
		return p, nil
	}
	return twistededwards.PointAffine{}, fmt.Errorf("no curve point found for tag %q", tag)
}

func isIdentity(p *twistededwards.PointAffine) bool {
	return p.X.IsZero() && p.Y.IsOne()
}

// Order returns the order of the prime subgroup; blinding factors live in
// [0, Order).
func Order() *big.Int {
	return new(big.Int).Set(&curve.Order)
}

// G returns the affine coordinates of the value generator.
func G() (*big.Int, *big.Int) {
	return toBig(&g)
}

// H returns the affine coordinates of the blinding generator.
func H() (*big.Int, *big.Int) {
	return toBig(&h)
}

func toBig(p *twistededwards.PointAffine) (*big.Int, *big.Int) {
	return p.X.BigInt(new(big.Int)), p.Y.BigInt(new(big.Int))
}

// Commitment is a commitment point in affine coordinates.
type Commitment struct {
	X *big.Int
	Y *big.Int
}

// Commit returns value·G + blinder·H.
func Commit(value, blinder *big.Int) Commitment {
	var vg, rh, c twistededwards.PointAffine
	vg.ScalarMultiplication(&g, value)
	rh.ScalarMultiplication(&h, blinder)
	c.Add(&vg, &rh)
	x, y := toBig(&c)
	return Commitment{X: x, Y: y}
}

func (c Commitment) point() (twistededwards.PointAffine, bool) {
	var p twistededwards.PointAffine
	if c.X == nil || c.Y == nil ||
		c.X.Sign() < 0 || c.X.Cmp(fr.Modulus()) >= 0 ||
		c.Y.Sign() < 0 || c.Y.Cmp(fr.Modulus()) >= 0 {
		return p, false
	}
	p.X.SetBigInt(c.X)
	p.Y.SetBigInt(c.Y)
	return p, true
}

// IsValid reports whether the commitment is a point of the prime order
// subgroup of the curve.
func (c Commitment) IsValid() bool {
	p, ok := c.point()
	if !ok || !p.IsOnCurve() {
		return false
	}
	var q twistededwards.PointAffine
	q.ScalarMultiplication(&p, &curve.Order)
	return isIdentity(&q)
}

// ErrInvalidCommitment is returned when a commitment is not a point of the
// prime order subgroup of the curve.
var ErrInvalidCommitment = fmt.Errorf("invalid commitment")

// Add returns the commitment to the sum of both openings. Both commitments
// must be valid.
func (c Commitment) Add(o Commitment) (Commitment, error) {
	if !c.IsValid() || !o.IsValid() {
		return Commitment{}, ErrInvalidCommitment
	}
	p, _ := c.point()
	q, _ := o.point()
	var r twistededwards.PointAffine
	r.Add(&p, &q)
	x, y := toBig(&r)
	return Commitment{X: x, Y: y}, nil
}

// Equal reports whether both commitments are the same point.
func (c Commitment) Equal(o Commitment) bool {
	if c.X == nil || c.Y == nil || o.X == nil || o.Y == nil {
		return c.X == o.X && c.Y == o.Y
	}
	return c.X.Cmp(o.X) == 0 && c.Y.Cmp(o.Y) == 0
}

func (c Commitment) String() string {
	return fmt.Sprintf("(%s, %s)", c.X, c.Y)
}
