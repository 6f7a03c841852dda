package transaction

import (
	"bytes"
	crand "crypto/rand"
	"encoding/hex"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/frost"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/utils"
)

// UnsignedTransaction is fully proven and carries its binding signature,
// but its spends and mints still need the authorizing signature of the
// spend key holders.
type UnsignedTransaction struct {
	body
	publicKeyRandomness *crypto.Scalar
}

// CommitmentHex is a participant's signing commitments as hex.
type CommitmentHex struct {
	Hiding  string
	Binding string
}

func ReadUnsignedTransaction(b []byte) (*UnsignedTransaction, error) {
	d := newDecoder(b, "read unsigned transaction")
	u := &UnsignedTransaction{}
	c := u.readHeader(d)
	u.publicKeyRandomness = d.scalar()
	u.readRecords(d, c, false)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return u, nil
}

func UnsignedTransactionFromHex(s string) (*UnsignedTransaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "read unsigned transaction")
	}
	return ReadUnsignedTransaction(b)
}

func (u *UnsignedTransaction) Serialize() []byte {
	out := u.appendHeader(nil)
	out = append(out, u.publicKeyRandomness.Bytes()...)
	return u.appendRecords(out, false)
}

// PublicKeyRandomness is the scalar alpha that randomizes the spend
// authorizing key for this transaction.
func (u *UnsignedTransaction) PublicKeyRandomness() *crypto.Scalar {
	return u.publicKeyRandomness.Clone()
}

func (u *UnsignedTransaction) PublicKeyRandomnessHex() string {
	return hex.EncodeToString(u.publicKeyRandomness.Bytes())
}

// RandomizedPublicKey is ak + alpha*G.
func (u *UnsignedTransaction) RandomizedPublicKey() *crypto.Point {
	return u.randomizedPublicKey.Clone()
}

// SignatureHash is the message every participant signs.
func (u *UnsignedTransaction) SignatureHash() [32]byte {
	return u.signatureHash()
}

// SigningPackage binds the signature hash to the participants'
// commitments in identifier order. The number of participants is not
// checked here; too few shares fail in SignFrost.
func (u *UnsignedTransaction) SigningPackage(commitments map[frost.Identifier]*frost.SigningCommitments) (*frost.SigningPackage, error) {
	sighash := u.signatureHash()
	return frost.NewSigningPackage(commitments, sighash[:])
}

// SigningPackageFromHex takes commitments keyed by hex identifier and
// returns the hex signing package.
func (u *UnsignedTransaction) SigningPackageFromHex(commitments map[string]CommitmentHex) (string, error) {
	parsed := make(map[frost.Identifier]*frost.SigningCommitments, len(commitments))
	for idHex, c := range commitments {
		id, err := frost.IdentifierFromHex(idHex)
		if err != nil {
			return "", err
		}
		sc, err := frost.SigningCommitmentsFromHex(c.Hiding, c.Binding)
		if err != nil {
			return "", err
		}
		parsed[id] = sc
	}
	sp, err := u.SigningPackage(parsed)
	if err != nil {
		return "", err
	}
	return sp.Hex(), nil
}

// SignatureShare is the participant side of a threshold signature: it
// signs sp with the session's nonces after checking that sp carries the
// signature hash of this transaction. A package for any other message is
// refused and the session is left unused.
func (u *UnsignedTransaction) SignatureShare(session *frost.SigningSession, sp *frost.SigningPackage) (*frost.SignatureShare, error) {
	sighash := u.signatureHash()
	if !bytes.Equal(sp.Message(), sighash[:]) {
		return nil, errs.New(errs.SignatureError, "signature share", "signing package is for a different transaction")
	}
	return session.Sign(sp, u.publicKeyRandomness)
}

// SignFrost aggregates the shares into the authorizing signature of every
// spend and mint and returns the posted transaction.
func (u *UnsignedTransaction) SignFrost(pkp *frost.PublicKeyPackage, sp *frost.SigningPackage, shares map[frost.Identifier]*frost.SignatureShare) (*Transaction, error) {
	sighash := u.signatureHash()
	if !bytes.Equal(sp.Message(), sighash[:]) {
		return nil, errs.New(errs.SignatureError, "sign frost", "signing package is for a different transaction")
	}
	if !crypto.RandomizePublic(pkp.VerifyingKey, u.publicKeyRandomness).Equal(u.randomizedPublicKey) {
		return nil, errs.New(errs.SignatureError, "sign frost", "public key package does not match the transaction key")
	}
	sig, err := frost.Aggregate(sp, shares, pkp, u.publicKeyRandomness)
	if err != nil {
		return nil, errs.Retag(errs.SignatureError, err, "sign frost")
	}

	tx := u.attach(sig)
	utils.Logger().Debug().
		Int("signers", len(shares)).
		Int("spends", len(tx.spends)).
		Msg("threshold signature aggregated")
	return tx, nil
}

// SignFrostFromHex is SignFrost with hex encoded inputs. shares is keyed
// by hex identifier.
func (u *UnsignedTransaction) SignFrostFromHex(pkpHex, spHex string, shares map[string]string) (*Transaction, error) {
	pkp, err := frost.PublicKeyPackageFromHex(pkpHex)
	if err != nil {
		return nil, err
	}
	sp, err := frost.SigningPackageFromHex(spHex)
	if err != nil {
		return nil, err
	}
	parsed := make(map[frost.Identifier]*frost.SignatureShare, len(shares))
	for idHex, shareHex := range shares {
		id, err := frost.IdentifierFromHex(idHex)
		if err != nil {
			return nil, err
		}
		share, err := frost.SignatureShareFromHex(shareHex)
		if err != nil {
			return nil, err
		}
		parsed[id] = share
	}
	return u.SignFrost(pkp, sp, parsed)
}

// signWithKey signs every spend and mint with ask + alpha.
func (u *UnsignedTransaction) signWithKey(sk types.SpendingKey) (*Transaction, error) {
	rsk := crypto.RandomizePrivate(sk.AuthorizingKey(), u.publicKeyRandomness)
	defer rsk.Zero()

	sighash := u.signatureHash()
	sig, err := crypto.Sign(crand.Reader, rsk, crypto.Generator(), sighash[:])
	if err != nil {
		return nil, err
	}
	if !crypto.Verify(u.randomizedPublicKey, crypto.Generator(), sighash[:], sig) {
		return nil, errs.New(errs.SignatureError, "sign", "spending key does not match the transaction key")
	}
	return u.attach(sig), nil
}

// attach copies the descriptions into a posted transaction carrying sig
// as the authorizing signature.
func (u *UnsignedTransaction) attach(sig *crypto.Signature) *Transaction {
	tx := &Transaction{body: u.body}
	tx.spends = make([]*SpendDescription, len(u.spends))
	for i, s := range u.spends {
		c := *s
		c.AuthorizingSignature = sig
		tx.spends[i] = &c
	}
	tx.mints = make([]*MintDescription, len(u.mints))
	for i, m := range u.mints {
		c := *m
		c.AuthorizingSignature = sig
		tx.mints[i] = &c
	}
	tx.outputs = append([]*OutputDescription(nil), u.outputs...)
	tx.burns = append([]*BurnDescription(nil), u.burns...)
	return tx
}
