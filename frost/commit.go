package frost

import (
	"encoding/hex"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
)

const SigningCommitmentsSize = 2 * crypto.PointSize

// SigningNonces are a participant's secret round one values. They must be
// used for exactly one signature share.
type SigningNonces struct {
	Hiding  *crypto.Scalar
	Binding *crypto.Scalar
}

// SigningCommitments is the public half of SigningNonces.
type SigningCommitments struct {
	Hiding  *crypto.Point
	Binding *crypto.Point
}

// Commit draws fresh nonces for kp and returns them with their commitments.
func Commit(r io.Reader, kp *KeyPackage) (*SigningNonces, *SigningCommitments, error) {
	hiding, err := nonceGenerate(r, kp.SigningShare)
	if err != nil {
		return nil, nil, err
	}
	binding, err := nonceGenerate(r, kp.SigningShare)
	if err != nil {
		return nil, nil, err
	}
	nonces := &SigningNonces{Hiding: hiding, Binding: binding}
	return nonces, nonces.Commitments(), nil
}

// nonceGenerate hedges fresh randomness with the secret share.
func nonceGenerate(r io.Reader, secret *crypto.Scalar) (*crypto.Scalar, error) {
	var seed [32]byte
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return nil, errs.Wrap(errs.SignatureError, err, "commit")
	}
	return h3(seed[:], secret.Bytes()), nil
}

func (n *SigningNonces) Commitments() *SigningCommitments {
	return &SigningCommitments{
		Hiding:  crypto.NewPoint().ScalarBaseMult(n.Hiding),
		Binding: crypto.NewPoint().ScalarBaseMult(n.Binding),
	}
}

func (n *SigningNonces) zero() {
	n.Hiding.Zero()
	n.Binding.Zero()
}

type rlpNonces struct {
	Hiding  []byte
	Binding []byte
}

// Marshal encodes the nonces for local storage between rounds.
func (n *SigningNonces) Marshal() ([]byte, error) {
	bz, err := rlp.EncodeToBytes(&rlpNonces{Hiding: n.Hiding.Bytes(), Binding: n.Binding.Bytes()})
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "nonces")
	}
	return bz, nil
}

func UnmarshalSigningNonces(bz []byte) (*SigningNonces, error) {
	var raw rlpNonces
	if err := rlp.DecodeBytes(bz, &raw); err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "nonces")
	}
	hiding, err := crypto.ParseScalar(raw.Hiding)
	if err != nil {
		return nil, err
	}
	binding, err := crypto.ParseScalar(raw.Binding)
	if err != nil {
		return nil, err
	}
	return &SigningNonces{Hiding: hiding, Binding: binding}, nil
}

func (c *SigningCommitments) Bytes() []byte {
	out := make([]byte, 0, SigningCommitmentsSize)
	out = append(out, c.Hiding.Bytes()...)
	return append(out, c.Binding.Bytes()...)
}

func (c *SigningCommitments) Hex() string {
	return hex.EncodeToString(c.Bytes())
}

func (c *SigningCommitments) Equal(o *SigningCommitments) bool {
	return c.Hiding.Equal(o.Hiding) && c.Binding.Equal(o.Binding)
}

func ParseSigningCommitments(b []byte) (*SigningCommitments, error) {
	if len(b) != SigningCommitmentsSize {
		return nil, errs.Newf(errs.ParseError, "signing commitments", "expected %d bytes, got %d", SigningCommitmentsSize, len(b))
	}
	return parseCommitmentPair(b[:crypto.PointSize], b[crypto.PointSize:])
}

// SigningCommitmentsFromHex decodes separately hex encoded hiding and
// binding commitments.
func SigningCommitmentsFromHex(hiding, binding string) (*SigningCommitments, error) {
	h, err := hex.DecodeString(hiding)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "signing commitments")
	}
	b, err := hex.DecodeString(binding)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "signing commitments")
	}
	return parseCommitmentPair(h, b)
}

func parseCommitmentPair(h, b []byte) (*SigningCommitments, error) {
	hiding, err := crypto.ParsePoint(h)
	if err != nil {
		return nil, err
	}
	binding, err := crypto.ParsePoint(b)
	if err != nil {
		return nil, err
	}
	if hiding.IsIdentity() || binding.IsIdentity() {
		return nil, errs.New(errs.ParseError, "signing commitments", "identity commitment")
	}
	return &SigningCommitments{Hiding: hiding, Binding: binding}, nil
}
