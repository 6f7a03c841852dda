package crypto

import (
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/utils"
)

// ScalarSize is the encoded length of a scalar.
const ScalarSize = 32

// curveOrder is the Baby Jubjub subgroup order, distinct from the BN254 Fr
// modulus.
var curveOrder = func() *big.Int {
	curve := twistededwards.GetEdwardsCurve()
	return new(big.Int).Set(&curve.Order)
}()

// Order returns a copy of the subgroup order.
func Order() *big.Int {
	return new(big.Int).Set(curveOrder)
}

// Scalar is an integer modulo the subgroup order. Arithmetic methods set
// the receiver and return it.
type Scalar struct {
	inner big.Int
}

func NewScalar() *Scalar {
	return &Scalar{}
}

func ScalarFromUint64(v uint64) *Scalar {
	s := &Scalar{}
	s.inner.SetUint64(v)
	return s
}

// ScalarFromBig reduces v modulo the order.
func ScalarFromBig(v *big.Int) *Scalar {
	s := &Scalar{}
	s.inner.Mod(v, curveOrder)
	return s
}

// RandomScalar draws a uniform scalar from r.
func RandomScalar(r io.Reader) (*Scalar, error) {
	var buf [64]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	s := &Scalar{}
	s.inner.SetBytes(buf[:])
	s.inner.Mod(&s.inner, curveOrder)
	return s, nil
}

// HashToScalar maps data to a scalar with BLAKE2b-512 under domain. The
// digest is read little-endian before reduction.
func HashToScalar(domain string, data ...[]byte) *Scalar {
	digest := utils.Blake2b512(domain, data...)
	s := &Scalar{}
	s.inner.SetBytes(utils.ReverseBytes(digest))
	s.inner.Mod(&s.inner, curveOrder)
	return s
}

func (s *Scalar) Add(a, b *Scalar) *Scalar {
	s.inner.Add(&a.inner, &b.inner)
	s.inner.Mod(&s.inner, curveOrder)
	return s
}

func (s *Scalar) Sub(a, b *Scalar) *Scalar {
	s.inner.Sub(&a.inner, &b.inner)
	s.inner.Mod(&s.inner, curveOrder)
	return s
}

func (s *Scalar) Mul(a, b *Scalar) *Scalar {
	s.inner.Mul(&a.inner, &b.inner)
	s.inner.Mod(&s.inner, curveOrder)
	return s
}

func (s *Scalar) Negate(a *Scalar) *Scalar {
	s.inner.Neg(&a.inner)
	s.inner.Mod(&s.inner, curveOrder)
	return s
}

// Invert returns an error when a is zero.
func (s *Scalar) Invert(a *Scalar) (*Scalar, error) {
	if a.IsZero() {
		return nil, errs.New(errs.RangeError, "invert", "zero scalar has no inverse")
	}
	s.inner.ModInverse(&a.inner, curveOrder)
	return s, nil
}

func (s *Scalar) Set(a *Scalar) *Scalar {
	s.inner.Set(&a.inner)
	return s
}

// Clone returns an independent copy.
func (s *Scalar) Clone() *Scalar {
	return NewScalar().Set(s)
}

// Bytes returns the 32 byte big-endian encoding.
func (s *Scalar) Bytes() []byte {
	return s.inner.FillBytes(make([]byte, ScalarSize))
}

// Bytes32 is Bytes as an array.
func (s *Scalar) Bytes32() [ScalarSize]byte {
	var out [ScalarSize]byte
	s.inner.FillBytes(out[:])
	return out
}

// SetBytes decodes a canonical 32 byte encoding.
func (s *Scalar) SetBytes(data []byte) (*Scalar, error) {
	if len(data) != ScalarSize {
		return nil, errs.Newf(errs.ParseError, "scalar", "expected %d bytes, got %d", ScalarSize, len(data))
	}
	var v big.Int
	v.SetBytes(data)
	if v.Cmp(curveOrder) >= 0 {
		return nil, errs.New(errs.ParseError, "scalar", "non-canonical scalar")
	}
	s.inner.Set(&v)
	return s, nil
}

// BigInt returns a copy of the value.
func (s *Scalar) BigInt() *big.Int {
	return new(big.Int).Set(&s.inner)
}

func (s *Scalar) Equal(b *Scalar) bool {
	return s.inner.Cmp(&b.inner) == 0
}

func (s *Scalar) IsZero() bool {
	return s.inner.Sign() == 0
}

// Zero clears the value.
func (s *Scalar) Zero() {
	s.inner.SetUint64(0)
}

// ParseScalar decodes a canonical scalar.
func ParseScalar(data []byte) (*Scalar, error) {
	return NewScalar().SetBytes(data)
}
