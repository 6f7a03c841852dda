package transaction

import (
	"encoding/binary"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/utils"
)

// body is the part shared by unsigned and posted transactions.
type body struct {
	version             Version
	fee                 int64
	expiration          uint32
	randomizedPublicKey *crypto.Point
	spends              []*SpendDescription
	outputs             []*OutputDescription
	mints               []*MintDescription
	burns               []*BurnDescription
	bindingSignature    *crypto.Signature
}

// signatureHash covers everything except the authorizing and binding
// signatures.
func (b *body) signatureHash() [32]byte {
	out := make([]byte, 0, headerSize+
		len(b.spends)*spendBodySize+len(b.outputs)*outputSize+
		len(b.mints)*mintBodySize+len(b.burns)*burnSize)
	out = b.appendHeader(out)
	for _, s := range b.spends {
		out = s.appendBody(out)
	}
	for _, o := range b.outputs {
		out = o.appendTo(out)
	}
	for _, m := range b.mints {
		out = m.appendBody(out)
	}
	for _, bn := range b.burns {
		out = bn.appendTo(out)
	}
	return utils.Blake2b256(sighashPersona, out)
}

func (b *body) appendHeader(out []byte) []byte {
	out = append(out, byte(b.version))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(b.spends)))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(b.outputs)))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(b.mints)))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(b.burns)))
	out = binary.LittleEndian.AppendUint64(out, uint64(b.fee))
	out = binary.LittleEndian.AppendUint32(out, b.expiration)
	return append(out, b.randomizedPublicKey.Bytes()...)
}

// appendRecords writes every record, with authorizing signatures when signed.
func (b *body) appendRecords(out []byte, signed bool) []byte {
	for _, s := range b.spends {
		out = s.appendBody(out)
		if signed {
			out = append(out, s.AuthorizingSignature.Bytes()...)
		}
	}
	for _, o := range b.outputs {
		out = o.appendTo(out)
	}
	for _, m := range b.mints {
		out = m.appendBody(out)
		if signed {
			out = append(out, m.AuthorizingSignature.Bytes()...)
		}
	}
	for _, bn := range b.burns {
		out = bn.appendTo(out)
	}
	return append(out, b.bindingSignature.Bytes()...)
}

type counts struct {
	spends, outputs, mints, burns int
}

func (b *body) readHeader(d *decoder) counts {
	b.version = Version(d.uint8())
	if d.err == nil && !b.version.valid() {
		d.err = errs.Newf(errs.ParseError, d.op, "unknown transaction version %d", b.version)
	}
	var c counts
	c.spends = d.count(spendBodySize)
	c.outputs = d.count(outputSize)
	c.mints = d.count(mintBodySize)
	c.burns = d.count(burnSize)
	b.fee = int64(d.uint64())
	b.expiration = d.uint32()
	b.randomizedPublicKey = d.point()
	return c
}

func (b *body) readRecords(d *decoder, c counts, signed bool) {
	b.spends = make([]*SpendDescription, 0, c.spends)
	for i := 0; i < c.spends && d.err == nil; i++ {
		b.spends = append(b.spends, readSpend(d, signed))
	}
	b.outputs = make([]*OutputDescription, 0, c.outputs)
	for i := 0; i < c.outputs && d.err == nil; i++ {
		b.outputs = append(b.outputs, readOutput(d))
	}
	b.mints = make([]*MintDescription, 0, c.mints)
	for i := 0; i < c.mints && d.err == nil; i++ {
		b.mints = append(b.mints, readMint(d, signed))
	}
	b.burns = make([]*BurnDescription, 0, c.burns)
	for i := 0; i < c.burns && d.err == nil; i++ {
		b.burns = append(b.burns, readBurn(d))
	}
	b.bindingSignature = d.signature()
}

// bindingVerificationKey is sum(cv_spend) - sum(cv_output) plus the public
// mint, burn and fee values.
func (b *body) bindingVerificationKey() *crypto.Point {
	bvk := crypto.NewPoint()
	for _, s := range b.spends {
		bvk.Add(bvk, s.ValueCommitment)
	}
	for _, o := range b.outputs {
		bvk.Sub(bvk, o.MerkleNote.ValueCommitment)
	}
	for _, m := range b.mints {
		bvk.Add(bvk, crypto.NewPoint().MulUint64(m.Value, m.Asset.ID().Generator()))
	}
	for _, bn := range b.burns {
		bvk.Sub(bvk, crypto.NewPoint().MulUint64(bn.Value, bn.AssetID.Generator()))
	}

	native := types.NativeAssetID().Generator()
	if b.fee >= 0 {
		bvk.Sub(bvk, crypto.NewPoint().MulUint64(uint64(b.fee), native))
	} else {
		bvk.Add(bvk, crypto.NewPoint().MulUint64(uint64(-b.fee), native))
	}
	return bvk
}

// checkShape rejects a negative fee on anything but a miner's fee
// transaction and nullifiers repeated inside one transaction.
func (b *body) checkShape() error {
	if b.fee < 0 && (len(b.spends) != 0 || len(b.outputs) != 1 || len(b.mints) != 0 || len(b.burns) != 0) {
		return errs.New(errs.BalanceError, "verify", "negative fee outside a miner's fee transaction")
	}
	seen := make(map[types.Nullifier]struct{}, len(b.spends))
	for _, s := range b.spends {
		if _, dup := seen[s.Nullifier]; dup {
			return errs.New(errs.BalanceError, "verify", "nullifier repeated in transaction")
		}
		seen[s.Nullifier] = struct{}{}
	}
	return nil
}

// verifyProofs checks every spend, output and mint proof.
func (b *body) verifyProofs(params *prover.Params) error {
	for _, s := range b.spends {
		if err := params.VerifySpend(s.Proof, s.publicInputs(b.randomizedPublicKey)); err != nil {
			return err
		}
	}
	for _, o := range b.outputs {
		if err := params.VerifyOutput(o.Proof, o.MerkleNote.ValueCommitment, o.MerkleNote.NoteCommitment); err != nil {
			return err
		}
	}
	for _, m := range b.mints {
		if err := params.VerifyMint(m.Proof, b.randomizedPublicKey, m.Owner); err != nil {
			return err
		}
	}
	return nil
}

func (b *body) verifyBindingSignature(sighash [32]byte) error {
	if !crypto.Verify(b.bindingVerificationKey(), crypto.ValueCommitmentBase(), sighash[:], b.bindingSignature) {
		return errs.New(errs.SignatureError, "verify", "binding signature does not verify")
	}
	return nil
}
