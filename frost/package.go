package frost

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/kysee/zktx/errs"
)

type commitmentEntry struct {
	id          Identifier
	commitments *SigningCommitments
}

// SigningPackage is the message plus every participant's commitments, in
// identifier order. All signers must sign over the same package.
type SigningPackage struct {
	entries []commitmentEntry
	message []byte
}

// NewSigningPackage sorts commitments by identifier. It does not check
// the number of participants against any threshold, and an empty map
// gives an empty package that Aggregate rejects.
func NewSigningPackage(commitments map[Identifier]*SigningCommitments, message []byte) (*SigningPackage, error) {
	ids := make([]Identifier, 0, len(commitments))
	for id, c := range commitments {
		if c == nil || c.Hiding == nil || c.Binding == nil {
			return nil, errs.Newf(errs.SignatureError, "signing package", "missing commitments for %s", id.Hex())
		}
		ids = append(ids, id)
	}
	sortIdentifiers(ids)

	sp := &SigningPackage{
		entries: make([]commitmentEntry, len(ids)),
		message: append([]byte(nil), message...),
	}
	for i, id := range ids {
		sp.entries[i] = commitmentEntry{id: id, commitments: commitments[id]}
	}
	return sp, nil
}

func (sp *SigningPackage) Message() []byte {
	return sp.message
}

// Identifiers returns the participants in canonical order.
func (sp *SigningPackage) Identifiers() []Identifier {
	ids := make([]Identifier, len(sp.entries))
	for i, e := range sp.entries {
		ids[i] = e.id
	}
	return ids
}

func (sp *SigningPackage) Commitments(id Identifier) (*SigningCommitments, bool) {
	for _, e := range sp.entries {
		if e.id == id {
			return e.commitments, true
		}
	}
	return nil, false
}

// encodeCommitmentList is the list hashed into every binding factor.
func (sp *SigningPackage) encodeCommitmentList() []byte {
	out := make([]byte, 0, len(sp.entries)*(IdentifierSize+SigningCommitmentsSize))
	for _, e := range sp.entries {
		out = append(out, e.id[:]...)
		out = append(out, e.commitments.Bytes()...)
	}
	return out
}

func (sp *SigningPackage) Bytes() []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(sp.entries)))
	buf.Write(sp.encodeCommitmentList())
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(sp.message)))
	buf.Write(sp.message)
	return buf.Bytes()
}

func (sp *SigningPackage) Hex() string {
	return hex.EncodeToString(sp.Bytes())
}

// ParseSigningPackage decodes a package and requires canonical order.
func ParseSigningPackage(b []byte) (*SigningPackage, error) {
	if len(b) < 2 {
		return nil, errs.New(errs.ParseError, "signing package", "truncated")
	}
	n := int(binary.LittleEndian.Uint16(b))
	off := 2
	entrySize := IdentifierSize + SigningCommitmentsSize
	if len(b) < off+n*entrySize+4 {
		return nil, errs.New(errs.ParseError, "signing package", "truncated")
	}

	sp := &SigningPackage{entries: make([]commitmentEntry, n)}
	for i := 0; i < n; i++ {
		id, err := ParseIdentifier(b[off : off+IdentifierSize])
		if err != nil {
			return nil, err
		}
		if i > 0 && !sp.entries[i-1].id.Less(id) {
			return nil, errs.New(errs.ParseError, "signing package", "identifiers not in canonical order")
		}
		c, err := ParseSigningCommitments(b[off+IdentifierSize : off+entrySize])
		if err != nil {
			return nil, err
		}
		sp.entries[i] = commitmentEntry{id: id, commitments: c}
		off += entrySize
	}

	msgLen := int(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	if len(b)-off != msgLen {
		return nil, errs.Newf(errs.ParseError, "signing package", "message length %d, %d bytes left", msgLen, len(b)-off)
	}
	sp.message = append([]byte(nil), b[off:]...)
	return sp, nil
}

func SigningPackageFromHex(s string) (*SigningPackage, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "signing package")
	}
	return ParseSigningPackage(b)
}
