package transaction

import (
	"encoding/binary"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/types"
)

// SpendDescription is the public record of a spent note.
type SpendDescription struct {
	ValueCommitment *crypto.Point
	RootHash        [32]byte
	TreeSize        uint32
	Nullifier       types.Nullifier
	Proof           prover.Proof
	// nil until the transaction is signed
	AuthorizingSignature *crypto.Signature
}

// SpendInfo is what GetSpend exposes.
type SpendInfo struct {
	TreeSize  uint32
	RootHash  [32]byte
	Nullifier types.Nullifier
}

func (s *SpendDescription) appendBody(out []byte) []byte {
	out = append(out, s.ValueCommitment.Bytes()...)
	out = append(out, s.RootHash[:]...)
	out = binary.LittleEndian.AppendUint32(out, s.TreeSize)
	out = append(out, s.Nullifier[:]...)
	return append(out, s.Proof[:]...)
}

func (s *SpendDescription) publicInputs(rk *crypto.Point) *prover.SpendPublic {
	return &prover.SpendPublic{
		RandomizedKey:   rk,
		ValueCommitment: s.ValueCommitment,
		Anchor:          s.RootHash,
		Nullifier:       s.Nullifier,
	}
}

func readSpend(d *decoder, signed bool) *SpendDescription {
	s := &SpendDescription{
		ValueCommitment: d.point(),
		RootHash:        d.field(),
		TreeSize:        d.uint32(),
		Nullifier:       types.Nullifier(d.field()),
		Proof:           d.proof(),
	}
	if signed {
		s.AuthorizingSignature = d.signature()
	}
	return s
}

// OutputDescription is a proven, encrypted new note.
type OutputDescription struct {
	Proof      prover.Proof
	MerkleNote *types.MerkleNote
}

func (o *OutputDescription) appendTo(out []byte) []byte {
	out = append(out, o.Proof[:]...)
	return append(out, o.MerkleNote.Bytes()...)
}

func readOutput(d *decoder) *OutputDescription {
	o := &OutputDescription{Proof: d.proof()}
	mn, err := types.ParseMerkleNote(d.next(types.MerkleNoteSize))
	d.fail(err)
	o.MerkleNote = mn
	return o
}

// MintDescription creates value of an asset. Owner is the owner tag that
// proved control of the asset; TransferOwnershipTo, when set, hands the
// asset to a new owner.
type MintDescription struct {
	Proof               prover.Proof
	Asset               types.Asset
	Value               uint64
	Owner               [32]byte
	TransferOwnershipTo *types.PublicAddress
	// nil until the transaction is signed
	AuthorizingSignature *crypto.Signature
}

func (m *MintDescription) appendBody(out []byte) []byte {
	out = append(out, m.Proof[:]...)
	out = append(out, m.Asset.Bytes()...)
	out = binary.LittleEndian.AppendUint64(out, m.Value)
	out = append(out, m.Owner[:]...)
	if m.TransferOwnershipTo == nil {
		out = append(out, 0)
		return append(out, make([]byte, types.PublicAddressSize)...)
	}
	out = append(out, 1)
	return append(out, m.TransferOwnershipTo.Bytes()...)
}

func readMint(d *decoder, signed bool) *MintDescription {
	m := &MintDescription{Proof: d.proof()}
	asset, err := types.ParseAsset(d.next(types.AssetSize))
	d.fail(err)
	m.Asset = asset
	m.Value = d.uint64()
	m.Owner = d.field()

	flag := d.uint8()
	addr := d.next(types.PublicAddressSize)
	switch flag {
	case 0:
		for _, b := range addr {
			if b != 0 {
				d.fail(errs.New(errs.ParseError, "mint", "owner bytes set without transfer flag"))
				break
			}
		}
	case 1:
		newOwner, err := types.PublicAddressFromBytes(addr)
		d.fail(err)
		m.TransferOwnershipTo = &newOwner
	default:
		d.fail(errs.Newf(errs.ParseError, "mint", "invalid transfer flag %d", flag))
	}

	if signed {
		m.AuthorizingSignature = d.signature()
	}
	return m
}

// BurnDescription destroys value of an asset.
type BurnDescription struct {
	AssetID types.AssetIdentifier
	Value   uint64
}

func (b *BurnDescription) appendTo(out []byte) []byte {
	out = append(out, b.AssetID[:]...)
	return binary.LittleEndian.AppendUint64(out, b.Value)
}

func readBurn(d *decoder) *BurnDescription {
	return &BurnDescription{
		AssetID: types.AssetIdentifier(d.bytes32()),
		Value:   d.uint64(),
	}
}
