package utils

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2b512 hashes data under a domain prefix.
func Blake2b512(domain string, data ...[]byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(domain))
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Blake2b256 hashes data under a domain prefix.
func Blake2b256(domain string, data ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(domain))
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ReverseBytes returns a reversed copy of b.
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}
