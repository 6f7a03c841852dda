package types

import (
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/utils"
)

const (
	SpendingKeySize        = 32
	ProofGenerationKeySize = crypto.PointSize + utils.FieldSize
	ViewKeySize            = ProofGenerationKeySize
	IncomingViewKeySize    = crypto.ScalarSize
	OutgoingViewKeySize    = 32
)

// SpendingKey is the root secret every other key derives from.
type SpendingKey [SpendingKeySize]byte

func NewSpendingKey() SpendingKey {
	var sk SpendingKey
	copy(sk[:], RandBytes(SpendingKeySize))
	return sk
}

func SpendingKeyFromBytes(b []byte) (SpendingKey, error) {
	var sk SpendingKey
	if len(b) != SpendingKeySize {
		return sk, errs.Newf(errs.KeyError, "spending key", "expected %d bytes, got %d", SpendingKeySize, len(b))
	}
	copy(sk[:], b)
	return sk, nil
}

func SpendingKeyFromHex(s string) (SpendingKey, error) {
	b, err := decodeKeyHex(s, "spending key")
	if err != nil {
		return SpendingKey{}, err
	}
	return SpendingKeyFromBytes(b)
}

func (sk SpendingKey) Hex() string {
	return hex.EncodeToString(sk[:])
}

// AuthorizingKey is the spend authorisation secret ask.
func (sk SpendingKey) AuthorizingKey() *crypto.Scalar {
	return crypto.HashToScalar("zktx_ask", sk[:])
}

// NullifierKey is the field secret nk mixed into nullifiers.
func (sk SpendingKey) NullifierKey() fr.Element {
	return crypto.HashToField("zktx_nk", sk[:])
}

func (sk SpendingKey) ProofGenerationKey() ProofGenerationKey {
	return ProofGenerationKey{
		AK: crypto.NewPoint().ScalarBaseMult(sk.AuthorizingKey()),
		NK: sk.NullifierKey(),
	}
}

func (sk SpendingKey) ViewKey() ViewKey {
	return sk.ProofGenerationKey().ViewKey()
}

func (sk SpendingKey) IncomingViewKey() IncomingViewKey {
	return sk.ViewKey().IncomingViewKey()
}

func (sk SpendingKey) OutgoingViewKey() OutgoingViewKey {
	return OutgoingViewKey(utils.Blake2b256("zktx_ovk", sk[:]))
}

func (sk SpendingKey) PublicAddress() PublicAddress {
	return sk.ViewKey().PublicAddress()
}

// ProofGenerationKey is what a prover needs to build spend and mint proofs
// without being able to authorise them.
type ProofGenerationKey struct {
	AK *crypto.Point
	NK fr.Element
}

func (k ProofGenerationKey) ViewKey() ViewKey {
	return ViewKey{AK: k.AK.Clone(), NK: k.NK}
}

func (k ProofGenerationKey) Bytes() []byte {
	return encodeAKNK(k.AK, &k.NK)
}

func (k ProofGenerationKey) Hex() string {
	return hex.EncodeToString(k.Bytes())
}

func ProofGenerationKeyFromBytes(b []byte) (ProofGenerationKey, error) {
	ak, nk, err := decodeAKNK(b, "proof generation key")
	if err != nil {
		return ProofGenerationKey{}, err
	}
	return ProofGenerationKey{AK: ak, NK: nk}, nil
}

func ProofGenerationKeyFromHex(s string) (ProofGenerationKey, error) {
	b, err := decodeKeyHex(s, "proof generation key")
	if err != nil {
		return ProofGenerationKey{}, err
	}
	return ProofGenerationKeyFromBytes(b)
}

// ViewKey reveals incoming and spent notes of an account.
type ViewKey struct {
	AK *crypto.Point
	NK fr.Element
}

func (k ViewKey) Bytes() []byte {
	return encodeAKNK(k.AK, &k.NK)
}

func (k ViewKey) Hex() string {
	return hex.EncodeToString(k.Bytes())
}

func ViewKeyFromBytes(b []byte) (ViewKey, error) {
	ak, nk, err := decodeAKNK(b, "view key")
	if err != nil {
		return ViewKey{}, err
	}
	return ViewKey{AK: ak, NK: nk}, nil
}

func ViewKeyFromHex(s string) (ViewKey, error) {
	b, err := decodeKeyHex(s, "view key")
	if err != nil {
		return ViewKey{}, err
	}
	return ViewKeyFromBytes(b)
}

// OwnerTag commits to ak and nk. Notes are committed to this tag.
func (k ViewKey) OwnerTag() [32]byte {
	x, y := k.AK.CoordinateBytes()
	nk := k.NK.Bytes()
	return utils.MiMCHash32(x, y, nk[:])
}

func (k ViewKey) IncomingViewKey() IncomingViewKey {
	nk := k.NK.Bytes()
	return IncomingViewKey{inner: crypto.HashToScalar("zktx_ivk", k.AK.Bytes(), nk[:])}
}

func (k ViewKey) PublicAddress() PublicAddress {
	ivk := k.IncomingViewKey()
	return PublicAddress{
		Owner:           k.OwnerTag(),
		TransmissionKey: crypto.NewPoint().ScalarBaseMult(ivk.inner),
	}
}

// IncomingViewKey decrypts notes sent to an address.
type IncomingViewKey struct {
	inner *crypto.Scalar
}

func (k IncomingViewKey) Scalar() *crypto.Scalar {
	return k.inner.Clone()
}

func (k IncomingViewKey) Hex() string {
	return hex.EncodeToString(k.inner.Bytes())
}

func IncomingViewKeyFromHex(s string) (IncomingViewKey, error) {
	b, err := decodeKeyHex(s, "incoming view key")
	if err != nil {
		return IncomingViewKey{}, err
	}
	if len(b) != IncomingViewKeySize {
		return IncomingViewKey{}, errs.Newf(errs.KeyError, "incoming view key", "expected %d bytes, got %d", IncomingViewKeySize, len(b))
	}
	s2, err := crypto.ParseScalar(b)
	if err != nil {
		return IncomingViewKey{}, errs.Retag(errs.KeyError, err, "incoming view key")
	}
	return IncomingViewKey{inner: s2}, nil
}

// OutgoingViewKey lets a sender recover the notes it created.
type OutgoingViewKey [OutgoingViewKeySize]byte

func (k OutgoingViewKey) Hex() string {
	return hex.EncodeToString(k[:])
}

func OutgoingViewKeyFromHex(s string) (OutgoingViewKey, error) {
	var k OutgoingViewKey
	b, err := decodeKeyHex(s, "outgoing view key")
	if err != nil {
		return k, err
	}
	if len(b) != OutgoingViewKeySize {
		return k, errs.Newf(errs.KeyError, "outgoing view key", "expected %d bytes, got %d", OutgoingViewKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

func decodeKeyHex(s, what string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, what)
	}
	return b, nil
}

func encodeAKNK(ak *crypto.Point, nk *fr.Element) []byte {
	out := make([]byte, 0, ProofGenerationKeySize)
	out = append(out, ak.Bytes()...)
	nkb := nk.Bytes()
	return append(out, nkb[:]...)
}

func decodeAKNK(b []byte, what string) (*crypto.Point, fr.Element, error) {
	var nk fr.Element
	if len(b) != ProofGenerationKeySize {
		return nil, nk, errs.Newf(errs.KeyError, what, "expected %d bytes, got %d", ProofGenerationKeySize, len(b))
	}
	ak, err := crypto.ParsePoint(b[:crypto.PointSize])
	if err != nil {
		return nil, nk, errs.Retag(errs.KeyError, err, what)
	}
	if !utils.IsCanonicalField(b[crypto.PointSize:]) {
		return nil, nk, errs.New(errs.KeyError, what, "nullifier key is not a canonical field element")
	}
	nk.SetBytes(b[crypto.PointSize:])
	return ak, nk, nil
}

// RandomField draws a uniform Fr element.
func RandomField() fr.Element {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		e = crypto.HashToField("zktx_random_field", RandBytes(64))
	}
	return e
}
