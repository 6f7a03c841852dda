package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/utils"
)

const (
	ver    = 0x01
	prefix = "zt"

	PublicAddressSize = 32 + crypto.PointSize
)

func EncodeAddress(payload []byte) string {
	return prefix + base58.CheckEncode(payload, ver)
}

func DecodeAddress(addr string) ([]byte, error) {
	if !strings.HasPrefix(addr, prefix) {
		return nil, fmt.Errorf("wrong prefix: got(%s)", addr)
	}
	bz, _ver, err := base58.CheckDecode(addr[len(prefix):])
	if err != nil {
		return nil, err
	}
	if _ver != ver {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", ver, _ver)
	}
	return bz, nil
}

// PublicAddress is where notes are sent: the owner tag the note commitment
// binds to, and the transmission key pk_d used for note encryption.
type PublicAddress struct {
	Owner           [32]byte
	TransmissionKey *crypto.Point
}

func (a PublicAddress) Bytes() []byte {
	out := make([]byte, 0, PublicAddressSize)
	out = append(out, a.Owner[:]...)
	return append(out, a.TransmissionKey.Bytes()...)
}

func (a PublicAddress) Hex() string {
	return hex.EncodeToString(a.Bytes())
}

// String returns the base58check form.
func (a PublicAddress) String() string {
	return EncodeAddress(a.Bytes())
}

func (a PublicAddress) Equal(b PublicAddress) bool {
	return a.Owner == b.Owner && a.TransmissionKey.Equal(b.TransmissionKey)
}

func PublicAddressFromBytes(b []byte) (PublicAddress, error) {
	if len(b) != PublicAddressSize {
		return PublicAddress{}, errs.Newf(errs.KeyError, "public address", "expected %d bytes, got %d", PublicAddressSize, len(b))
	}
	if !utils.IsCanonicalField(b[:32]) {
		return PublicAddress{}, errs.New(errs.KeyError, "public address", "owner tag is not a canonical field element")
	}
	pkd, err := crypto.ParsePoint(b[32:])
	if err != nil {
		return PublicAddress{}, errs.Retag(errs.KeyError, err, "public address")
	}
	if pkd.IsIdentity() {
		return PublicAddress{}, errs.New(errs.KeyError, "public address", "identity transmission key")
	}
	var a PublicAddress
	copy(a.Owner[:], b[:32])
	a.TransmissionKey = pkd
	return a, nil
}

func PublicAddressFromHex(s string) (PublicAddress, error) {
	b, err := decodeKeyHex(s, "public address")
	if err != nil {
		return PublicAddress{}, err
	}
	return PublicAddressFromBytes(b)
}

// ParseAddress accepts the base58check form.
func ParseAddress(s string) (PublicAddress, error) {
	b, err := DecodeAddress(s)
	if err != nil {
		return PublicAddress{}, errs.Wrap(errs.KeyError, err, "public address")
	}
	return PublicAddressFromBytes(b)
}
