package types

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/utils"
)

const (
	MemoSize = 32

	// NotePlaintextSize is value || rcm || asset || memo || sender.
	NotePlaintextSize = 8 + utils.FieldSize + AssetIdentifierSize + MemoSize + 32
)

// NoteCommitment is the leaf a note occupies in the commitment tree.
type NoteCommitment [32]byte

// Nullifier marks a note as spent.
type Nullifier [32]byte

// Note is a spendable amount of one asset owned by an address.
type Note struct {
	Owner      PublicAddress
	Value      uint64
	Asset      AssetIdentifier
	Randomness fr.Element
	Memo       [MemoSize]byte
	Sender     [32]byte
}

// NewNote creates a note with fresh commitment randomness. sender is the
// owner tag of the creating account.
func NewNote(owner PublicAddress, value uint64, memo string, asset AssetIdentifier, sender [32]byte) *Note {
	n := &Note{
		Owner:      owner,
		Value:      value,
		Asset:      asset,
		Randomness: RandomField(),
		Sender:     sender,
	}
	copy(n.Memo[:], memo)
	return n
}

// Commitment is MiMC(G_a.x, G_a.y, value, owner, rcm).
func (n *Note) Commitment() NoteCommitment {
	gx, gy := n.Asset.Generator().CoordinateBytes()
	rcm := n.Randomness.Bytes()
	return NoteCommitment(utils.MiMCHash32(gx, gy, utils.Uint64Field(n.Value), n.Owner.Owner[:], rcm[:]))
}

// Nullifier is MiMC(nk, cm, position).
func (n *Note) Nullifier(nk fr.Element, position uint64) Nullifier {
	cm := n.Commitment()
	nkb := nk.Bytes()
	return Nullifier(utils.MiMCHash32(nkb[:], cm[:], utils.Uint64Field(position)))
}

// ValueCommitment is value*G_a + rcv*H.
func (n *Note) ValueCommitment(rcv *crypto.Scalar) *crypto.Point {
	return ValueCommitment(n.Value, n.Asset, rcv)
}

func (n *Note) MemoString() string {
	return trimZero(n.Memo[:])
}

// ValueCommitment is value*G_a + rcv*H.
func ValueCommitment(value uint64, asset AssetIdentifier, rcv *crypto.Scalar) *crypto.Point {
	vG := crypto.NewPoint().MulUint64(value, asset.Generator())
	rH := crypto.NewPoint().ScalarMult(rcv, crypto.ValueCommitmentBase())
	return vG.Add(vG, rH)
}

func (n *Note) plaintext() []byte {
	out := make([]byte, 0, NotePlaintextSize)
	out = binary.LittleEndian.AppendUint64(out, n.Value)
	rcm := n.Randomness.Bytes()
	out = append(out, rcm[:]...)
	out = append(out, n.Asset[:]...)
	out = append(out, n.Memo[:]...)
	return append(out, n.Sender[:]...)
}

func noteFromPlaintext(b []byte, owner PublicAddress) (*Note, error) {
	if len(b) != NotePlaintextSize {
		return nil, errs.Newf(errs.ParseError, "note", "expected %d bytes, got %d", NotePlaintextSize, len(b))
	}
	n := &Note{Owner: owner}
	n.Value = binary.LittleEndian.Uint64(b[:8])
	off := 8
	if !utils.IsCanonicalField(b[off : off+utils.FieldSize]) {
		return nil, errs.New(errs.ParseError, "note", "non-canonical randomness")
	}
	n.Randomness.SetBytes(b[off : off+utils.FieldSize])
	off += utils.FieldSize
	copy(n.Asset[:], b[off:off+AssetIdentifierSize])
	off += AssetIdentifierSize
	copy(n.Memo[:], b[off:off+MemoSize])
	off += MemoSize
	copy(n.Sender[:], b[off:])
	return n, nil
}
