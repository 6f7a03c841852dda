package crypto

import (
	"io"

	"github.com/kysee/zktx/errs"
)

// SignatureSize is the encoded length of a Signature (R || s).
const SignatureSize = PointSize + ScalarSize

// Signature is a Schnorr signature over an arbitrary base point.
type Signature struct {
	R *Point
	S *Scalar
}

// Challenge is the Schnorr challenge H(R || Y || m). Threshold signing
// uses the same function, so an aggregated signature verifies here.
func Challenge(R, Y *Point, msg []byte) *Scalar {
	return HashToScalar("zktx_schnorr_challenge", R.Bytes(), Y.Bytes(), msg)
}

// Sign signs msg with key over base.
func Sign(r io.Reader, key *Scalar, base *Point, msg []byte) (*Signature, error) {
	k, err := RandomScalar(r)
	if err != nil {
		return nil, errs.Wrap(errs.SignatureError, err, "sign")
	}
	// hedge the nonce with the key and message
	k = HashToScalar("zktx_schnorr_nonce", k.Bytes(), key.Bytes(), msg)

	R := NewPoint().ScalarMult(k, base)
	Y := NewPoint().ScalarMult(key, base)
	c := Challenge(R, Y, msg)

	s := NewScalar().Mul(c, key)
	s.Add(k, s)
	return &Signature{R: R, S: s}, nil
}

// Verify checks s*base == R + c*Y.
func Verify(pub, base *Point, msg []byte, sig *Signature) bool {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	c := Challenge(sig.R, pub, msg)
	lhs := NewPoint().ScalarMult(sig.S, base)
	rhs := NewPoint().ScalarMult(c, pub)
	rhs.Add(sig.R, rhs)
	return lhs.Equal(rhs)
}

// RandomizePrivate returns key + alpha.
func RandomizePrivate(key, alpha *Scalar) *Scalar {
	return NewScalar().Add(key, alpha)
}

// RandomizePublic returns pub + alpha*G.
func RandomizePublic(pub *Point, alpha *Scalar) *Point {
	aG := NewPoint().ScalarBaseMult(alpha)
	return NewPoint().Add(pub, aG)
}

func (sig *Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureSize)
	out = append(out, sig.R.Bytes()...)
	return append(out, sig.S.Bytes()...)
}

// ParseSignature decodes R || s.
func ParseSignature(data []byte) (*Signature, error) {
	if len(data) != SignatureSize {
		return nil, errs.Newf(errs.ParseError, "signature", "expected %d bytes, got %d", SignatureSize, len(data))
	}
	R, err := ParsePoint(data[:PointSize])
	if err != nil {
		return nil, err
	}
	s, err := ParseScalar(data[PointSize:])
	if err != nil {
		return nil, err
	}
	return &Signature{R: R, S: s}, nil
}
