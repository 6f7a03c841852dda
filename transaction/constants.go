package transaction

import (
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/types"
)

// Version is the transaction serialization version.
type Version uint8

const (
	ProofLength                          = prover.ProofSize
	TransactionSignatureLength           = crypto.SignatureSize
	TransactionPublicKeyRandomnessLength = crypto.ScalarSize
	TransactionExpirationLength          = 4
	TransactionFeeLength                 = 8
	EncryptedNoteLength                  = types.EncryptedNoteSize

	LatestTransactionVersion Version = 1
)

const (
	// version || 4 counts || fee || expiration || rk
	headerSize = 1 + 4*8 + TransactionFeeLength + TransactionExpirationLength + crypto.PointSize

	spendBodySize  = crypto.PointSize + 32 + 4 + 32 + ProofLength
	spendSize      = spendBodySize + TransactionSignatureLength
	outputSize     = ProofLength + types.MerkleNoteSize
	mintBodySize   = ProofLength + types.AssetSize + 8 + 32 + 1 + types.PublicAddressSize
	mintSize       = mintBodySize + TransactionSignatureLength
	burnSize       = types.AssetIdentifierSize + 8
	sighashPersona = "zktx_sighash"
)

func (v Version) valid() bool {
	return v == LatestTransactionVersion
}
