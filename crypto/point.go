package crypto

import (
	"encoding/binary"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/utils"
)

// PointSize is the compressed encoding length of a point.
const PointSize = 32

// Point is an element of the Baby Jubjub prime-order subgroup. Arithmetic
// methods set the receiver and return it.
type Point struct {
	inner twistededwards.PointAffine
}

var (
	cofactor = big.NewInt(8)

	generator Point
	// valueBase is the independent base for value-commitment randomness
	// and binding signatures.
	valueBase Point
)

func init() {
	generator.inner = twistededwards.GetEdwardsCurve().Base
	valueBase = *HashToPoint("zktx_cv_randomness")
}

// NewPoint returns the identity.
func NewPoint() *Point {
	var p Point
	p.inner.X.SetZero()
	p.inner.Y.SetOne()
	return &p
}

// Generator returns the spend-authorisation base G.
func Generator() *Point {
	return NewPoint().Set(&generator)
}

// ValueCommitmentBase returns the randomness base H.
func ValueCommitmentBase() *Point {
	return NewPoint().Set(&valueBase)
}

// HashToPoint maps data into the prime-order subgroup by try-and-increment
// followed by cofactor clearing.
func HashToPoint(domain string, data ...[]byte) *Point {
	var ctr [4]byte
	for i := uint32(0); ; i++ {
		binary.LittleEndian.PutUint32(ctr[:], i)
		in := make([][]byte, 0, len(data)+1)
		in = append(in, data...)
		digest := utils.Blake2b256(domain, append(in, ctr[:])...)

		var p Point
		if _, err := p.inner.SetBytes(digest[:]); err != nil {
			continue
		}
		if !p.inner.IsOnCurve() {
			continue
		}
		p.inner.ScalarMultiplication(&p.inner, cofactor)
		if p.inner.IsZero() {
			continue
		}
		return &p
	}
}

func (p *Point) Add(a, b *Point) *Point {
	p.inner.Add(&a.inner, &b.inner)
	return p
}

func (p *Point) Sub(a, b *Point) *Point {
	var negB twistededwards.PointAffine
	negB.Neg(&b.inner)
	p.inner.Add(&a.inner, &negB)
	return p
}

func (p *Point) Negate(a *Point) *Point {
	p.inner.Neg(&a.inner)
	return p
}

// ScalarMult sets p to s*q.
func (p *Point) ScalarMult(s *Scalar, q *Point) *Point {
	p.inner.ScalarMultiplication(&q.inner, &s.inner)
	return p
}

// ScalarBaseMult sets p to s*G.
func (p *Point) ScalarBaseMult(s *Scalar) *Point {
	return p.ScalarMult(s, &generator)
}

// MulUint64 sets p to v*q.
func (p *Point) MulUint64(v uint64, q *Point) *Point {
	p.inner.ScalarMultiplication(&q.inner, new(big.Int).SetUint64(v))
	return p
}

func (p *Point) Set(a *Point) *Point {
	p.inner.Set(&a.inner)
	return p
}

func (p *Point) Clone() *Point {
	return NewPoint().Set(p)
}

// Bytes returns the compressed encoding.
func (p *Point) Bytes() []byte {
	b := p.inner.Bytes()
	return b[:]
}

// Bytes32 is Bytes as an array.
func (p *Point) Bytes32() [PointSize]byte {
	return p.inner.Bytes()
}

// SetBytes decodes a compressed point, rejecting encodings that are off
// the curve or outside the prime-order subgroup.
func (p *Point) SetBytes(data []byte) (*Point, error) {
	if len(data) != PointSize {
		return nil, errs.Newf(errs.ParseError, "point", "expected %d bytes, got %d", PointSize, len(data))
	}
	var q twistededwards.PointAffine
	if _, err := q.SetBytes(data); err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "point")
	}
	if !q.IsOnCurve() {
		return nil, errs.New(errs.ParseError, "point", "not on curve")
	}
	var check twistededwards.PointAffine
	check.ScalarMultiplication(&q, curveOrder)
	if !check.IsZero() {
		return nil, errs.New(errs.ParseError, "point", "not in prime-order subgroup")
	}
	// the encoding must round-trip so every point has one byte form
	if enc := q.Bytes(); string(enc[:]) != string(data) {
		return nil, errs.New(errs.ParseError, "point", "non-canonical encoding")
	}
	p.inner = q
	return p, nil
}

func (p *Point) Equal(b *Point) bool {
	return p.inner.Equal(&b.inner)
}

func (p *Point) IsIdentity() bool {
	return p.inner.IsZero()
}

// Coordinates returns the affine x and y as integers.
func (p *Point) Coordinates() (*big.Int, *big.Int) {
	var x, y big.Int
	p.inner.X.BigInt(&x)
	p.inner.Y.BigInt(&y)
	return &x, &y
}

// CoordinateBytes returns the affine x and y as canonical field elements.
func (p *Point) CoordinateBytes() ([]byte, []byte) {
	x := p.inner.X.Bytes()
	y := p.inner.Y.Bytes()
	return x[:], y[:]
}

// Affine exposes the underlying curve point.
func (p *Point) Affine() twistededwards.PointAffine {
	return p.inner
}

// ParsePoint decodes a compressed subgroup point.
func ParsePoint(data []byte) (*Point, error) {
	return NewPoint().SetBytes(data)
}

// HashToField maps data to an Fr element with BLAKE2b-512.
func HashToField(domain string, data ...[]byte) fr.Element {
	var e fr.Element
	e.SetBytes(utils.Blake2b512(domain, data...))
	return e
}
