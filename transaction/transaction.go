package transaction

import (
	"encoding/hex"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
)

// Transaction is a posted transaction. It is never modified after it is
// created.
type Transaction struct {
	body
}

func ReadTransaction(b []byte) (*Transaction, error) {
	d := newDecoder(b, "read transaction")
	tx := &Transaction{}
	c := tx.readHeader(d)
	tx.readRecords(d, c, true)
	if err := d.finish(); err != nil {
		return nil, err
	}
	return tx, nil
}

func TransactionFromHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "read transaction")
	}
	return ReadTransaction(b)
}

func (tx *Transaction) Serialize() []byte {
	return tx.appendRecords(tx.appendHeader(nil), true)
}

// Hash is the signature hash the authorizing and binding signatures were
// made over.
func (tx *Transaction) Hash() [32]byte {
	return tx.signatureHash()
}

func (tx *Transaction) Version() Version {
	return tx.version
}

func (tx *Transaction) Fee() int64 {
	return tx.fee
}

func (tx *Transaction) Expiration() uint32 {
	return tx.expiration
}

func (tx *Transaction) RandomizedPublicKey() *crypto.Point {
	return tx.randomizedPublicKey.Clone()
}

// TransactionSignature is the encoded binding signature.
func (tx *Transaction) TransactionSignature() []byte {
	return tx.bindingSignature.Bytes()
}

func (tx *Transaction) NotesLength() int {
	return len(tx.outputs)
}

// GetNote returns the encoded MerkleNote of output i.
func (tx *Transaction) GetNote(i int) ([]byte, error) {
	if i < 0 || i >= len(tx.outputs) {
		return nil, errs.Newf(errs.RangeError, "get note", "index %d out of range [0, %d)", i, len(tx.outputs))
	}
	return tx.outputs[i].MerkleNote.Bytes(), nil
}

func (tx *Transaction) SpendsLength() int {
	return len(tx.spends)
}

func (tx *Transaction) GetSpend(i int) (*SpendInfo, error) {
	if i < 0 || i >= len(tx.spends) {
		return nil, errs.Newf(errs.RangeError, "get spend", "index %d out of range [0, %d)", i, len(tx.spends))
	}
	s := tx.spends[i]
	return &SpendInfo{TreeSize: s.TreeSize, RootHash: s.RootHash, Nullifier: s.Nullifier}, nil
}

// Outputs, Mints and Burns return copies of the description lists.
func (tx *Transaction) Outputs() []*OutputDescription {
	return append([]*OutputDescription(nil), tx.outputs...)
}

func (tx *Transaction) Mints() []*MintDescription {
	return append([]*MintDescription(nil), tx.mints...)
}

func (tx *Transaction) Burns() []*BurnDescription {
	return append([]*BurnDescription(nil), tx.burns...)
}

// Verify checks the transaction on its own: shape, proofs, authorizing
// signatures and the binding signature. Anchors, nullifier reuse across
// transactions and asset ownership are checked against a ledger.
func (tx *Transaction) Verify(params *prover.Params) error {
	if err := tx.checkShape(); err != nil {
		return err
	}
	sighash := tx.signatureHash()
	if err := tx.verifyBindingSignature(sighash); err != nil {
		return err
	}
	for _, s := range tx.spends {
		if !crypto.Verify(tx.randomizedPublicKey, crypto.Generator(), sighash[:], s.AuthorizingSignature) {
			return errs.New(errs.SignatureError, "verify", "spend signature does not verify")
		}
	}
	for _, m := range tx.mints {
		if !crypto.Verify(tx.randomizedPublicKey, crypto.Generator(), sighash[:], m.AuthorizingSignature) {
			return errs.New(errs.SignatureError, "verify", "mint signature does not verify")
		}
	}
	return tx.verifyProofs(params)
}
