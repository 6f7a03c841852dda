package transaction

import (
	"encoding/binary"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/utils"
)

// decoder walks a fixed layout and remembers the first error.
type decoder struct {
	buf []byte
	off int
	err error
	op  string
}

func newDecoder(buf []byte, op string) *decoder {
	return &decoder{buf: buf, op: op}
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	if len(d.buf)-d.off < n {
		d.err = errs.Newf(errs.ParseError, d.op, "truncated at offset %d", d.off)
		return make([]byte, n)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) fail(err error) {
	if d.err == nil && err != nil {
		d.err = errs.Retag(errs.ParseError, err, d.op)
	}
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) uint8() uint8 {
	return d.next(1)[0]
}

func (d *decoder) uint32() uint32 {
	return binary.LittleEndian.Uint32(d.next(4))
}

func (d *decoder) uint64() uint64 {
	return binary.LittleEndian.Uint64(d.next(8))
}

func (d *decoder) bytes32() [32]byte {
	var out [32]byte
	copy(out[:], d.next(32))
	return out
}

// field reads a canonical Fr element.
func (d *decoder) field() [32]byte {
	b := d.next(32)
	if d.err == nil && !utils.IsCanonicalField(b) {
		d.err = errs.Newf(errs.ParseError, d.op, "non-canonical field element at offset %d", d.off-32)
	}
	var out [32]byte
	copy(out[:], b)
	return out
}

func (d *decoder) point() *crypto.Point {
	p, err := crypto.ParsePoint(d.next(crypto.PointSize))
	d.fail(err)
	return p
}

func (d *decoder) scalar() *crypto.Scalar {
	s, err := crypto.ParseScalar(d.next(crypto.ScalarSize))
	d.fail(err)
	return s
}

func (d *decoder) signature() *crypto.Signature {
	sig, err := crypto.ParseSignature(d.next(crypto.SignatureSize))
	d.fail(err)
	return sig
}

func (d *decoder) proof() prover.Proof {
	var p prover.Proof
	copy(p[:], d.next(prover.ProofSize))
	return p
}

// count reads a record count and checks the records can fit.
func (d *decoder) count(recordSize int) int {
	n := d.uint64()
	if d.err == nil && n > uint64(d.remaining()/recordSize) {
		d.err = errs.Newf(errs.ParseError, d.op, "count %d exceeds input", n)
		return 0
	}
	return int(n)
}

// finish fails when bytes are left over.
func (d *decoder) finish() error {
	if d.err == nil && d.remaining() != 0 {
		d.err = errs.Newf(errs.ParseError, d.op, "%d trailing bytes", d.remaining())
	}
	return d.err
}
