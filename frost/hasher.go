package frost

import (
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/utils"
)

// ContextString prefixes every hash of the ciphersuite.
const ContextString = "FROST-BABYJUBJUB-BLAKE2B-v1"

// h1 computes a binding factor.
func h1(data ...[]byte) *crypto.Scalar {
	return crypto.HashToScalar(ContextString+"rho", data...)
}

// h3 derives a nonce from fresh randomness and the secret share.
func h3(data ...[]byte) *crypto.Scalar {
	return crypto.HashToScalar(ContextString+"nonce", data...)
}

// h4 hashes the message.
func h4(msg []byte) []byte {
	return utils.Blake2b512(ContextString+"msg", msg)
}

// h5 hashes the encoded commitment list.
func h5(encCommitList []byte) []byte {
	return utils.Blake2b512(ContextString+"com", encCommitList)
}
