package frost

import (
	"encoding/hex"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
)

const SignatureShareSize = crypto.ScalarSize

// SignatureShare is one participant's z_i.
type SignatureShare struct {
	Z *crypto.Scalar
}

func (s *SignatureShare) Bytes() []byte {
	return s.Z.Bytes()
}

func (s *SignatureShare) Hex() string {
	return hex.EncodeToString(s.Bytes())
}

func ParseSignatureShare(b []byte) (*SignatureShare, error) {
	z, err := crypto.ParseScalar(b)
	if err != nil {
		return nil, err
	}
	return &SignatureShare{Z: z}, nil
}

func SignatureShareFromHex(s string) (*SignatureShare, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "signature share")
	}
	return ParseSignatureShare(b)
}

// signingState is what every signer and the aggregator derive from a
// package and the randomized group key.
type signingState struct {
	groupKey       *crypto.Point
	bindingFactors map[Identifier]*crypto.Scalar
	commitment     *crypto.Point
	challenge      *crypto.Scalar
}

func newSigningState(sp *SigningPackage, verifyingKey *crypto.Point, randomizer *crypto.Scalar) *signingState {
	st := &signingState{
		groupKey:       crypto.RandomizePublic(verifyingKey, randomizer),
		bindingFactors: make(map[Identifier]*crypto.Scalar, len(sp.entries)),
		commitment:     crypto.NewPoint(),
	}

	prefix := make([]byte, 0, crypto.PointSize+128)
	prefix = append(prefix, st.groupKey.Bytes()...)
	prefix = append(prefix, h4(sp.message)...)
	prefix = append(prefix, h5(sp.encodeCommitmentList())...)

	// R = sum(D_i + rho_i * E_i)
	for _, e := range sp.entries {
		rho := h1(prefix, e.id[:])
		st.bindingFactors[e.id] = rho
		term := crypto.NewPoint().ScalarMult(rho, e.commitments.Binding)
		term.Add(e.commitments.Hiding, term)
		st.commitment.Add(st.commitment, term)
	}
	st.challenge = crypto.Challenge(st.commitment, st.groupKey, sp.message)
	return st
}

// lagrangeCoefficient is lambda_i for interpolation at zero over ids.
func lagrangeCoefficient(id Identifier, ids []Identifier) (*crypto.Scalar, error) {
	xi := id.Scalar()
	num := crypto.ScalarFromUint64(1)
	den := crypto.ScalarFromUint64(1)
	for _, other := range ids {
		if other == id {
			continue
		}
		xj := other.Scalar()
		num.Mul(num, xj)
		den.Mul(den, crypto.NewScalar().Sub(xj, xi))
	}
	inv, err := crypto.NewScalar().Invert(den)
	if err != nil {
		return nil, errs.Wrap(errs.SignatureError, err, "lagrange")
	}
	return num.Mul(num, inv), nil
}

// Sign produces the signature share of kp over sp, for the group key
// randomized by randomizer. The nonces are zeroed afterwards.
func Sign(sp *SigningPackage, nonces *SigningNonces, kp *KeyPackage, randomizer *crypto.Scalar) (*SignatureShare, error) {
	defer nonces.zero()

	own, ok := sp.Commitments(kp.Identifier)
	if !ok {
		return nil, errs.New(errs.SignatureError, "sign", "own commitment not found in signing package")
	}
	if !own.Equal(nonces.Commitments()) {
		return nil, errs.New(errs.SignatureError, "sign", "signing package commitments do not match nonces")
	}

	st := newSigningState(sp, kp.VerifyingKey, randomizer)
	lambda, err := lagrangeCoefficient(kp.Identifier, sp.Identifiers())
	if err != nil {
		return nil, err
	}

	// z_i = d_i + e_i*rho_i + lambda_i*s_i*c
	z := crypto.NewScalar().Mul(nonces.Binding, st.bindingFactors[kp.Identifier])
	z.Add(nonces.Hiding, z)
	lsc := crypto.NewScalar().Mul(lambda, kp.SigningShare)
	lsc.Mul(lsc, st.challenge)
	z.Add(z, lsc)
	return &SignatureShare{Z: z}, nil
}

// Aggregate combines one share per package participant into a Schnorr
// signature under VerifyingKey + randomizer*G. Every share is checked
// against its verifying share, and the result is checked before it is
// returned.
func Aggregate(sp *SigningPackage, shares map[Identifier]*SignatureShare, pkp *PublicKeyPackage, randomizer *crypto.Scalar) (*crypto.Signature, error) {
	if len(sp.entries) == 0 {
		return nil, errs.New(errs.SignatureError, "aggregate", "signing package has no participants")
	}
	if len(shares) != len(sp.entries) {
		return nil, errs.Newf(errs.SignatureError, "aggregate", "%d shares for %d commitments", len(shares), len(sp.entries))
	}
	st := newSigningState(sp, pkp.VerifyingKey, randomizer)
	ids := sp.Identifiers()

	z := crypto.NewScalar()
	for _, e := range sp.entries {
		share, ok := shares[e.id]
		if !ok || share == nil || share.Z == nil {
			return nil, errs.Newf(errs.SignatureError, "aggregate", "missing share for %s", e.id.Hex())
		}
		if err := verifyShare(st, e, share, pkp, ids); err != nil {
			return nil, err
		}
		z.Add(z, share.Z)
	}
	// randomized key is Y + alpha*G, so add c*alpha
	ca := crypto.NewScalar().Mul(st.challenge, randomizer)
	z.Add(z, ca)

	sig := &crypto.Signature{R: st.commitment, S: z}
	if !crypto.Verify(st.groupKey, crypto.Generator(), sp.message, sig) {
		return nil, errs.New(errs.SignatureError, "aggregate", "aggregate signature does not verify")
	}
	return sig, nil
}

// z_i*G == D_i + rho_i*E_i + c*lambda_i*Y_i
func verifyShare(st *signingState, e commitmentEntry, share *SignatureShare, pkp *PublicKeyPackage, ids []Identifier) error {
	verifying, ok := pkp.VerifyingShares[e.id]
	if !ok {
		return errs.Newf(errs.SignatureError, "aggregate", "unknown participant %s", e.id.Hex())
	}
	lambda, err := lagrangeCoefficient(e.id, ids)
	if err != nil {
		return err
	}

	lhs := crypto.NewPoint().ScalarBaseMult(share.Z)

	rhs := crypto.NewPoint().ScalarMult(st.bindingFactors[e.id], e.commitments.Binding)
	rhs.Add(e.commitments.Hiding, rhs)
	cl := crypto.NewScalar().Mul(st.challenge, lambda)
	rhs.Add(rhs, crypto.NewPoint().ScalarMult(cl, verifying))

	if !lhs.Equal(rhs) {
		return errs.Newf(errs.SignatureError, "aggregate", "invalid signature share from %s", e.id.Hex())
	}
	return nil
}
