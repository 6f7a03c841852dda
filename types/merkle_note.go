package types

import (
	crand "crypto/rand"
	"io"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/utils"
)

const (
	EncryptedNoteSize = NotePlaintextSize + crypto.AEADOverhead
	// OutgoingKeysSize covers owner || pk_d || esk under the sender's key.
	OutgoingKeysSize = 32 + crypto.PointSize + crypto.ScalarSize + crypto.AEADOverhead
	MerkleNoteSize   = crypto.PointSize + 32 + crypto.PointSize + EncryptedNoteSize + OutgoingKeysSize
)

// MerkleNote is the public part of an output: value commitment, note
// commitment, and the note encrypted for its owner and its sender.
type MerkleNote struct {
	ValueCommitment *crypto.Point
	NoteCommitment  NoteCommitment
	EphemeralKey    *crypto.Point
	EncryptedNote   [EncryptedNoteSize]byte
	OutgoingKeys    [OutgoingKeysSize]byte
}

// NewMerkleNote encrypts note for its owner and for the holder of ovk.
func NewMerkleNote(note *Note, cv *crypto.Point, ovk OutgoingViewKey) (*MerkleNote, error) {
	return newMerkleNote(crand.Reader, note, cv, ovk)
}

func newMerkleNote(r io.Reader, note *Note, cv *crypto.Point, ovk OutgoingViewKey) (*MerkleNote, error) {
	esk, err := crypto.RandomScalar(r)
	if err != nil {
		return nil, errs.Wrap(errs.ProofError, err, "merkle note")
	}
	epk := crypto.NewPoint().ScalarBaseMult(esk)

	mn := &MerkleNote{
		ValueCommitment: cv.Clone(),
		NoteCommitment:  note.Commitment(),
		EphemeralKey:    epk,
	}

	shared, err := crypto.ECDHEComputeSharedSecret(esk, note.Owner.TransmissionKey)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "merkle note")
	}
	key, nonce, err := crypto.CipherKey(shared)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "merkle note")
	}
	enc, err := crypto.EncryptNote(key, nonce, note.plaintext(), epk.Bytes())
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "merkle note")
	}
	copy(mn.EncryptedNote[:], enc)

	okey, ononce, err := crypto.CipherKey(mn.outgoingSecret(ovk))
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "merkle note")
	}
	keys := make([]byte, 0, OutgoingKeysSize-crypto.AEADOverhead)
	keys = append(keys, note.Owner.Owner[:]...)
	keys = append(keys, note.Owner.TransmissionKey.Bytes()...)
	keys = append(keys, esk.Bytes()...)
	encKeys, err := crypto.EncryptNote(okey, ononce, keys, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "merkle note")
	}
	copy(mn.OutgoingKeys[:], encKeys)
	return mn, nil
}

func (mn *MerkleNote) outgoingSecret(ovk OutgoingViewKey) []byte {
	return crypto.OutgoingSecret(ovk[:], mn.ValueCommitment.Bytes(), mn.NoteCommitment[:], mn.EphemeralKey.Bytes())
}

// DecryptForOwner recovers the note with the recipient's view key. It
// fails with KeyError when the note was not sent to that key.
func (mn *MerkleNote) DecryptForOwner(vk ViewKey) (*Note, error) {
	addr := vk.PublicAddress()
	shared, err := crypto.ECDHEComputeSharedSecret(vk.IncomingViewKey().inner, mn.EphemeralKey)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "decrypt note")
	}
	return mn.open(shared, addr)
}

// DecryptForSpender recovers the note with the creator's outgoing view key.
func (mn *MerkleNote) DecryptForSpender(ovk OutgoingViewKey) (*Note, error) {
	okey, ononce, err := crypto.CipherKey(mn.outgoingSecret(ovk))
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "decrypt note")
	}
	keys, err := crypto.DecryptNote(okey, ononce, mn.OutgoingKeys[:], nil)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "decrypt note")
	}
	owner, err := PublicAddressFromBytes(keys[:PublicAddressSize])
	if err != nil {
		return nil, err
	}
	esk, err := crypto.ParseScalar(keys[PublicAddressSize:])
	if err != nil {
		return nil, errs.Retag(errs.KeyError, err, "decrypt note")
	}
	shared, err := crypto.ECDHEComputeSharedSecret(esk, owner.TransmissionKey)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "decrypt note")
	}
	return mn.open(shared, owner)
}

func (mn *MerkleNote) open(shared []byte, owner PublicAddress) (*Note, error) {
	key, nonce, err := crypto.CipherKey(shared)
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "decrypt note")
	}
	pt, err := crypto.DecryptNote(key, nonce, mn.EncryptedNote[:], mn.EphemeralKey.Bytes())
	if err != nil {
		return nil, errs.Wrap(errs.KeyError, err, "decrypt note")
	}
	note, err := noteFromPlaintext(pt, owner)
	if err != nil {
		return nil, err
	}
	if note.Commitment() != mn.NoteCommitment {
		return nil, errs.New(errs.KeyError, "decrypt note", "plaintext does not match the note commitment")
	}
	return note, nil
}

func (mn *MerkleNote) Bytes() []byte {
	out := make([]byte, 0, MerkleNoteSize)
	out = append(out, mn.ValueCommitment.Bytes()...)
	out = append(out, mn.NoteCommitment[:]...)
	out = append(out, mn.EphemeralKey.Bytes()...)
	out = append(out, mn.EncryptedNote[:]...)
	return append(out, mn.OutgoingKeys[:]...)
}

func ParseMerkleNote(b []byte) (*MerkleNote, error) {
	if len(b) != MerkleNoteSize {
		return nil, errs.Newf(errs.ParseError, "merkle note", "expected %d bytes, got %d", MerkleNoteSize, len(b))
	}
	cv, err := crypto.ParsePoint(b[:crypto.PointSize])
	if err != nil {
		return nil, err
	}
	off := crypto.PointSize
	mn := &MerkleNote{ValueCommitment: cv}
	if !utils.IsCanonicalField(b[off : off+32]) {
		return nil, errs.New(errs.ParseError, "merkle note", "non-canonical note commitment")
	}
	copy(mn.NoteCommitment[:], b[off:off+32])
	off += 32
	if mn.EphemeralKey, err = crypto.ParsePoint(b[off : off+crypto.PointSize]); err != nil {
		return nil, err
	}
	off += crypto.PointSize
	copy(mn.EncryptedNote[:], b[off:off+EncryptedNoteSize])
	off += EncryptedNoteSize
	copy(mn.OutgoingKeys[:], b[off:])
	return mn, nil
}
