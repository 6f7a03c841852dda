package frost

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/stretchr/testify/require"
)

func split(t *testing.T, min, max uint16) (*crypto.Scalar, map[Identifier]*KeyPackage, *PublicKeyPackage) {
	t.Helper()
	secret, err := crypto.RandomScalar(rand.Reader)
	require.NoError(t, err)
	packages, pkp, err := SplitKey(rand.Reader, secret, min, max)
	require.NoError(t, err)
	return secret, packages, pkp
}

func id(t *testing.T, n uint16) Identifier {
	t.Helper()
	i, err := IdentifierFromUint16(n)
	require.NoError(t, err)
	return i
}

type round struct {
	sessions    map[Identifier]*SigningSession
	commitments map[Identifier]*SigningCommitments
}

func commitRound(t *testing.T, packages map[Identifier]*KeyPackage, signers []Identifier) *round {
	t.Helper()
	r := &round{
		sessions:    make(map[Identifier]*SigningSession),
		commitments: make(map[Identifier]*SigningCommitments),
	}
	for _, i := range signers {
		s, err := NewSigningSession(rand.Reader, packages[i])
		require.NoError(t, err)
		r.sessions[i] = s
		r.commitments[i] = s.Commitments()
	}
	return r
}

func (r *round) sign(t *testing.T, sp *SigningPackage, alpha *crypto.Scalar) map[Identifier]*SignatureShare {
	t.Helper()
	shares := make(map[Identifier]*SignatureShare)
	for i, s := range r.sessions {
		share, err := s.Sign(sp, alpha)
		require.NoError(t, err)
		shares[i] = share
	}
	return shares
}

func TestSplitAndSign(t *testing.T) {
	secret, packages, pkp := split(t, 2, 3)
	require.Len(t, packages, 3)
	require.True(t, crypto.NewPoint().ScalarBaseMult(secret).Equal(pkp.VerifyingKey))

	msg := []byte("hello FROST")
	alpha := crypto.HashToScalar("test", []byte("alpha"))

	tests := []struct {
		name    string
		signers []Identifier
	}{
		{"threshold", []Identifier{id(t, 1), id(t, 3)}},
		{"all", []Identifier{id(t, 1), id(t, 2), id(t, 3)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := commitRound(t, packages, tc.signers)
			sp, err := NewSigningPackage(r.commitments, msg)
			require.NoError(t, err)

			sig, err := Aggregate(sp, r.sign(t, sp, alpha), pkp, alpha)
			require.NoError(t, err)

			rk := crypto.RandomizePublic(pkp.VerifyingKey, alpha)
			require.True(t, crypto.Verify(rk, crypto.Generator(), msg, sig))
			require.False(t, crypto.Verify(pkp.VerifyingKey, crypto.Generator(), msg, sig))
		})
	}
}

func TestAggregateFailures(t *testing.T) {
	_, packages, pkp := split(t, 2, 3)
	msg := []byte("message")
	alpha := crypto.HashToScalar("test", []byte("alpha"))
	signers := []Identifier{id(t, 1), id(t, 2)}

	t.Run("foreign share", func(t *testing.T) {
		r := commitRound(t, packages, signers)
		sp, err := NewSigningPackage(r.commitments, msg)
		require.NoError(t, err)
		shares := r.sign(t, sp, alpha)
		shares[id(t, 1)] = &SignatureShare{Z: crypto.HashToScalar("test", []byte("forged"))}

		_, err = Aggregate(sp, shares, pkp, alpha)
		require.True(t, errors.Is(err, errs.SignatureError))
	})

	t.Run("wrong randomizer", func(t *testing.T) {
		r := commitRound(t, packages, signers)
		sp, err := NewSigningPackage(r.commitments, msg)
		require.NoError(t, err)
		shares := r.sign(t, sp, alpha)

		_, err = Aggregate(sp, shares, pkp, crypto.ScalarFromUint64(7))
		require.True(t, errors.Is(err, errs.SignatureError))
	})

	t.Run("below threshold", func(t *testing.T) {
		r := commitRound(t, packages, signers[:1])
		sp, err := NewSigningPackage(r.commitments, msg)
		require.NoError(t, err)
		shares := r.sign(t, sp, alpha)

		_, err = Aggregate(sp, shares, pkp, alpha)
		require.True(t, errors.Is(err, errs.SignatureError))
	})

	t.Run("missing share", func(t *testing.T) {
		r := commitRound(t, packages, signers)
		sp, err := NewSigningPackage(r.commitments, msg)
		require.NoError(t, err)
		shares := r.sign(t, sp, alpha)
		delete(shares, id(t, 2))

		_, err = Aggregate(sp, shares, pkp, alpha)
		require.True(t, errors.Is(err, errs.SignatureError))
	})
}

func TestSessionNonceReuse(t *testing.T) {
	_, packages, _ := split(t, 2, 2)
	r := commitRound(t, packages, []Identifier{id(t, 1), id(t, 2)})
	sp, err := NewSigningPackage(r.commitments, []byte("m"))
	require.NoError(t, err)

	s := r.sessions[id(t, 1)]
	_, err = s.Sign(sp, crypto.NewScalar())
	require.NoError(t, err)
	require.True(t, s.IsConsumed())

	_, err = s.Sign(sp, crypto.NewScalar())
	require.True(t, errors.Is(err, errs.SignatureError))
}

func TestSigningPackageCanonical(t *testing.T) {
	_, packages, pkp := split(t, 2, 3)
	r := commitRound(t, packages, []Identifier{id(t, 3), id(t, 1), id(t, 2)})

	reordered := make(map[Identifier]*SigningCommitments)
	for _, i := range []Identifier{id(t, 2), id(t, 3), id(t, 1)} {
		reordered[i] = r.commitments[i]
	}

	a, err := NewSigningPackage(r.commitments, []byte("m"))
	require.NoError(t, err)
	b, err := NewSigningPackage(reordered, []byte("m"))
	require.NoError(t, err)
	require.Equal(t, a.Bytes(), b.Bytes())
	require.Equal(t, []Identifier{id(t, 1), id(t, 2), id(t, 3)}, a.Identifiers())

	parsed, err := SigningPackageFromHex(a.Hex())
	require.NoError(t, err)
	require.Equal(t, a.Bytes(), parsed.Bytes())

	// swap the first two entries
	raw := a.Bytes()
	entry := IdentifierSize + SigningCommitmentsSize
	swapped := append([]byte(nil), raw[:2]...)
	swapped = append(swapped, raw[2+entry:2+2*entry]...)
	swapped = append(swapped, raw[2:2+entry]...)
	swapped = append(swapped, raw[2+2*entry:]...)
	_, err = ParseSigningPackage(swapped)
	require.True(t, errors.Is(err, errs.ParseError))

	// an empty package is only refused at aggregation
	empty, err := NewSigningPackage(nil, []byte("m"))
	require.NoError(t, err)
	require.Empty(t, empty.Identifiers())
	_, err = Aggregate(empty, nil, pkp, crypto.NewScalar())
	require.True(t, errors.Is(err, errs.SignatureError))
}

func TestEncodings(t *testing.T) {
	_, packages, pkp := split(t, 2, 3)

	parsedPkp, err := PublicKeyPackageFromHex(pkp.Hex())
	require.NoError(t, err)
	require.Equal(t, pkp.Bytes(), parsedPkp.Bytes())

	kp := packages[id(t, 2)]
	parsedKp, err := KeyPackageFromHex(kp.Hex())
	require.NoError(t, err)
	require.Equal(t, kp.Bytes(), parsedKp.Bytes())

	nonces, commitments, err := Commit(rand.Reader, kp)
	require.NoError(t, err)
	bz, err := nonces.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalSigningNonces(bz)
	require.NoError(t, err)
	require.True(t, restored.Commitments().Equal(commitments))

	c, err := SigningCommitmentsFromHex(hex.EncodeToString(commitments.Hiding.Bytes()), hex.EncodeToString(commitments.Binding.Bytes()))
	require.NoError(t, err)
	require.True(t, c.Equal(commitments))

	_, err = IdentifierFromHex(Identifier{}.Hex())
	require.True(t, errors.Is(err, errs.ParseError))
	_, err = IdentifierFromUint16(0)
	require.True(t, errors.Is(err, errs.RangeError))
	_, err = SignatureShareFromHex("zz")
	require.True(t, errors.Is(err, errs.ParseError))

	_, _, err = SplitKey(rand.Reader, crypto.ScalarFromUint64(1), 3, 2)
	require.True(t, errors.Is(err, errs.RangeError))
}
