package frost

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
)

const (
	KeyPackageSize = IdentifierSize + crypto.ScalarSize + 2*crypto.PointSize + 2
)

// KeyPackage is one participant's share of the group signing key.
type KeyPackage struct {
	Identifier     Identifier
	SigningShare   *crypto.Scalar
	VerifyingShare *crypto.Point
	VerifyingKey   *crypto.Point
	MinSigners     uint16
}

// PublicKeyPackage holds the group key and every participant's verifying
// share. The coordinator needs it to aggregate.
type PublicKeyPackage struct {
	VerifyingShares map[Identifier]*crypto.Point
	VerifyingKey    *crypto.Point
}

// SplitKey splits secret into maxSigners shares with a trusted dealer, any
// minSigners of which can sign for secret*G.
func SplitKey(r io.Reader, secret *crypto.Scalar, minSigners, maxSigners uint16) (map[Identifier]*KeyPackage, *PublicKeyPackage, error) {
	if minSigners < 2 {
		return nil, nil, errs.New(errs.RangeError, "split key", "min signers must be at least 2")
	}
	if maxSigners < minSigners {
		return nil, nil, errs.New(errs.RangeError, "split key", "max signers must be >= min signers")
	}

	// f(x) = secret + a_1*x + ... + a_{t-1}*x^{t-1}
	coeffs := make([]*crypto.Scalar, minSigners)
	coeffs[0] = secret.Clone()
	for i := 1; i < len(coeffs); i++ {
		c, err := crypto.RandomScalar(r)
		if err != nil {
			return nil, nil, errs.Wrap(errs.KeyError, err, "split key")
		}
		coeffs[i] = c
	}

	groupKey := crypto.NewPoint().ScalarBaseMult(secret)
	pkp := &PublicKeyPackage{
		VerifyingShares: make(map[Identifier]*crypto.Point, maxSigners),
		VerifyingKey:    groupKey,
	}
	packages := make(map[Identifier]*KeyPackage, maxSigners)
	for n := uint16(1); n <= maxSigners; n++ {
		id, _ := IdentifierFromUint16(n)
		share := evalPolynomial(coeffs, id.Scalar())
		verifying := crypto.NewPoint().ScalarBaseMult(share)
		packages[id] = &KeyPackage{
			Identifier:     id,
			SigningShare:   share,
			VerifyingShare: verifying,
			VerifyingKey:   groupKey.Clone(),
			MinSigners:     minSigners,
		}
		pkp.VerifyingShares[id] = verifying.Clone()
	}

	for _, c := range coeffs {
		c.Zero()
	}
	return packages, pkp, nil
}

func evalPolynomial(coeffs []*crypto.Scalar, x *crypto.Scalar) *crypto.Scalar {
	result := coeffs[len(coeffs)-1].Clone()
	for i := len(coeffs) - 2; i >= 0; i-- {
		result.Mul(result, x)
		result.Add(result, coeffs[i])
	}
	return result
}

func (kp *KeyPackage) Bytes() []byte {
	out := make([]byte, 0, KeyPackageSize)
	out = append(out, kp.Identifier[:]...)
	out = append(out, kp.SigningShare.Bytes()...)
	out = append(out, kp.VerifyingShare.Bytes()...)
	out = append(out, kp.VerifyingKey.Bytes()...)
	return binary.LittleEndian.AppendUint16(out, kp.MinSigners)
}

func (kp *KeyPackage) Hex() string {
	return hex.EncodeToString(kp.Bytes())
}

// ParseKeyPackage decodes a key package and checks the signing share
// matches the verifying share.
func ParseKeyPackage(b []byte) (*KeyPackage, error) {
	if len(b) != KeyPackageSize {
		return nil, errs.Newf(errs.ParseError, "key package", "expected %d bytes, got %d", KeyPackageSize, len(b))
	}
	id, err := ParseIdentifier(b[:IdentifierSize])
	if err != nil {
		return nil, err
	}
	off := IdentifierSize
	share, err := crypto.ParseScalar(b[off : off+crypto.ScalarSize])
	if err != nil {
		return nil, errs.Retag(errs.ParseError, err, "key package")
	}
	off += crypto.ScalarSize
	verifying, err := crypto.ParsePoint(b[off : off+crypto.PointSize])
	if err != nil {
		return nil, err
	}
	off += crypto.PointSize
	groupKey, err := crypto.ParsePoint(b[off : off+crypto.PointSize])
	if err != nil {
		return nil, err
	}
	off += crypto.PointSize

	if !crypto.NewPoint().ScalarBaseMult(share).Equal(verifying) {
		return nil, errs.New(errs.KeyError, "key package", "signing share does not match verifying share")
	}
	return &KeyPackage{
		Identifier:     id,
		SigningShare:   share,
		VerifyingShare: verifying,
		VerifyingKey:   groupKey,
		MinSigners:     binary.LittleEndian.Uint16(b[off:]),
	}, nil
}

func KeyPackageFromHex(s string) (*KeyPackage, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "key package")
	}
	return ParseKeyPackage(b)
}

func (pkp *PublicKeyPackage) sortedIdentifiers() []Identifier {
	ids := make([]Identifier, 0, len(pkp.VerifyingShares))
	for id := range pkp.VerifyingShares {
		ids = append(ids, id)
	}
	sortIdentifiers(ids)
	return ids
}

// Bytes encodes the shares sorted by identifier, then the group key.
func (pkp *PublicKeyPackage) Bytes() []byte {
	ids := pkp.sortedIdentifiers()
	out := make([]byte, 0, 2+len(ids)*(IdentifierSize+crypto.PointSize)+crypto.PointSize)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(ids)))
	for _, id := range ids {
		out = append(out, id[:]...)
		out = append(out, pkp.VerifyingShares[id].Bytes()...)
	}
	return append(out, pkp.VerifyingKey.Bytes()...)
}

func (pkp *PublicKeyPackage) Hex() string {
	return hex.EncodeToString(pkp.Bytes())
}

func ParsePublicKeyPackage(b []byte) (*PublicKeyPackage, error) {
	if len(b) < 2 {
		return nil, errs.New(errs.ParseError, "public key package", "truncated")
	}
	n := int(binary.LittleEndian.Uint16(b))
	want := 2 + n*(IdentifierSize+crypto.PointSize) + crypto.PointSize
	if len(b) != want {
		return nil, errs.Newf(errs.ParseError, "public key package", "expected %d bytes, got %d", want, len(b))
	}

	pkp := &PublicKeyPackage{VerifyingShares: make(map[Identifier]*crypto.Point, n)}
	off := 2
	for i := 0; i < n; i++ {
		id, err := ParseIdentifier(b[off : off+IdentifierSize])
		if err != nil {
			return nil, err
		}
		off += IdentifierSize
		if _, dup := pkp.VerifyingShares[id]; dup {
			return nil, errs.Newf(errs.ParseError, "public key package", "duplicate identifier %s", id.Hex())
		}
		share, err := crypto.ParsePoint(b[off : off+crypto.PointSize])
		if err != nil {
			return nil, err
		}
		off += crypto.PointSize
		pkp.VerifyingShares[id] = share
	}
	vk, err := crypto.ParsePoint(b[off:])
	if err != nil {
		return nil, err
	}
	pkp.VerifyingKey = vk
	return pkp, nil
}

func PublicKeyPackageFromHex(s string) (*PublicKeyPackage, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "public key package")
	}
	return ParsePublicKeyPackage(b)
}
