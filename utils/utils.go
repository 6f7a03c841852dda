package utils

import (
	"encoding/binary"
	"hash"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/twistededwards"
)

var (
	CURVEID = twistededwards.BN254
)

// FieldSize is the byte length of a canonical BN254 Fr element.
const FieldSize = fr.Bytes

func MiMCHasher() hash.Hash {
	return mimc.NewMiMC()
}

// MiMCHash hashes ins as a sequence of field elements. Every full 32 byte
// chunk is reduced into Fr first, so inputs need not be canonical.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {

		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			chunk := in[i:end]

			if len(chunk) == blockSize {
				// this value may be greater than the modulus; convert to fr.Element
				var elem fr.Element
				elem.SetBytes(chunk)
				// canonical form
				chunk = elem.Marshal()
			}
			if _, err := hasher.Write(chunk); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// MiMCHash32 is MiMCHash returning a fixed array.
func MiMCHash32(ins ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], MiMCHash(ins...))
	return out
}

// FieldElement reduces b into Fr.
func FieldElement(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// IsCanonicalField reports whether b encodes an Fr element below the modulus.
func IsCanonicalField(b []byte) bool {
	if len(b) != FieldSize {
		return false
	}
	return new(big.Int).SetBytes(b).Cmp(fr.Modulus()) < 0
}

// Uint64Field encodes v as a big-endian 32 byte field element.
func Uint64Field(v uint64) []byte {
	out := make([]byte, FieldSize)
	binary.BigEndian.PutUint64(out[FieldSize-8:], v)
	return out
}
