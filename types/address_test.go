package types

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kysee/zktx/errs"
	"github.com/stretchr/testify/require"
)

func TestAddressCodec(t *testing.T) {
	payload := make([]byte, 32)
	_, _ = crand.Read(payload)

	addr0 := EncodeAddress(payload)
	require.True(t, strings.HasPrefix(addr0, "zt"))

	// wrong prefix
	_addr0 := fmt.Sprintf("cz%s", addr0[2:])
	_, err := DecodeAddress(_addr0)
	require.ErrorContains(t, err, "wrong prefix")

	bzAddr, err := DecodeAddress(addr0)
	require.NoError(t, err)
	require.Equal(t, payload, bzAddr)
}

func TestPublicAddress(t *testing.T) {
	sk := NewSpendingKey()
	addr := sk.PublicAddress()

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	require.True(t, addr.Equal(parsed))

	fromHex, err := PublicAddressFromHex(addr.Hex())
	require.NoError(t, err)
	require.True(t, addr.Equal(fromHex))
	require.Len(t, addr.Hex(), 2*PublicAddressSize)

	_, err = PublicAddressFromHex("zz")
	require.True(t, errors.Is(err, errs.KeyError))
	_, err = PublicAddressFromHex(addr.Hex()[:126])
	require.True(t, errors.Is(err, errs.KeyError))
}
