package frost

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
)

const IdentifierSize = crypto.ScalarSize

// Identifier names a participant. It is a non-zero scalar encoded big
// endian, so byte order equals numeric order.
type Identifier [IdentifierSize]byte

// IdentifierFromUint16 returns the identifier for participant n (n >= 1).
func IdentifierFromUint16(n uint16) (Identifier, error) {
	var id Identifier
	if n == 0 {
		return id, errs.New(errs.RangeError, "identifier", "identifier must be non-zero")
	}
	binary.BigEndian.PutUint16(id[IdentifierSize-2:], n)
	return id, nil
}

// DeriveIdentifier maps an arbitrary name onto an identifier.
func DeriveIdentifier(name []byte) Identifier {
	s := crypto.HashToScalar(ContextString+"id", name)
	return Identifier(s.Bytes32())
}

func ParseIdentifier(b []byte) (Identifier, error) {
	var id Identifier
	s, err := crypto.ParseScalar(b)
	if err != nil {
		return id, errs.Retag(errs.ParseError, err, "identifier")
	}
	if s.IsZero() {
		return id, errs.New(errs.ParseError, "identifier", "identifier must be non-zero")
	}
	copy(id[:], b)
	return id, nil
}

func IdentifierFromHex(s string) (Identifier, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Identifier{}, errs.Wrap(errs.ParseError, err, "identifier")
	}
	return ParseIdentifier(b)
}

func (id Identifier) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id Identifier) Scalar() *crypto.Scalar {
	s, _ := crypto.ParseScalar(id[:])
	return s
}

func (id Identifier) Less(other Identifier) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

func sortIdentifiers(ids []Identifier) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
