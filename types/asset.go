package types

import (
	"encoding/hex"
	"sync"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
)

const (
	AssetIdentifierSize = 32
	AssetNameSize       = 32
	AssetMetadataSize   = 96
	AssetSize           = 32 + AssetNameSize + AssetMetadataSize + 1

	NativeAssetName = "$ZKT"
)

// AssetIdentifier names a fungible asset type.
type AssetIdentifier [AssetIdentifierSize]byte

func (id AssetIdentifier) Hex() string {
	return hex.EncodeToString(id[:])
}

var generators sync.Map

// Generator is the asset's value-commitment base G_a.
func (id AssetIdentifier) Generator() *crypto.Point {
	if g, ok := generators.Load(id); ok {
		return g.(*crypto.Point).Clone()
	}
	g := crypto.HashToPoint("zktx_asset_generator", id[:])
	generators.Store(id, g)
	return g.Clone()
}

func AssetIdentifierFromHex(s string) (AssetIdentifier, error) {
	var id AssetIdentifier
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, errs.Wrap(errs.ParseError, err, "asset identifier")
	}
	if len(b) != AssetIdentifierSize {
		return id, errs.Newf(errs.ParseError, "asset identifier", "expected %d bytes, got %d", AssetIdentifierSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Asset is the creator-bound description an identifier is derived from.
// Creator is the owner tag of the creating account.
type Asset struct {
	Creator  [32]byte
	Name     [AssetNameSize]byte
	Metadata [AssetMetadataSize]byte
	Nonce    byte
}

func NewAsset(creator PublicAddress, name, metadata string) (Asset, error) {
	var a Asset
	if len(name) == 0 || len(name) > AssetNameSize {
		return a, errs.Newf(errs.RangeError, "asset", "name must be 1 to %d bytes", AssetNameSize)
	}
	if len(metadata) > AssetMetadataSize {
		return a, errs.Newf(errs.RangeError, "asset", "metadata must be at most %d bytes", AssetMetadataSize)
	}
	a.Creator = creator.Owner
	copy(a.Name[:], name)
	copy(a.Metadata[:], metadata)
	return a, nil
}

var (
	nativeOnce  sync.Once
	nativeAsset Asset
	nativeID    AssetIdentifier
)

// NativeAsset is the fee-paying asset. It has no creator.
func NativeAsset() Asset {
	nativeOnce.Do(func() {
		copy(nativeAsset.Name[:], NativeAssetName)
		nativeID = nativeAsset.ID()
	})
	return nativeAsset
}

func NativeAssetID() AssetIdentifier {
	NativeAsset()
	return nativeID
}

func (a Asset) Bytes() []byte {
	out := make([]byte, 0, AssetSize)
	out = append(out, a.Creator[:]...)
	out = append(out, a.Name[:]...)
	out = append(out, a.Metadata[:]...)
	return append(out, a.Nonce)
}

// ID is the Poseidon hash of the serialized asset.
func (a Asset) ID() AssetIdentifier {
	var id AssetIdentifier
	h, err := poseidon.HashBytes(a.Bytes())
	if err != nil {
		// HashBytes only fails on oversized input, and the asset size is fixed
		panic(err)
	}
	h.FillBytes(id[:])
	return id
}

func (a Asset) NameString() string {
	return trimZero(a.Name[:])
}

func (a Asset) MetadataString() string {
	return trimZero(a.Metadata[:])
}

func ParseAsset(b []byte) (Asset, error) {
	var a Asset
	if len(b) != AssetSize {
		return a, errs.Newf(errs.ParseError, "asset", "expected %d bytes, got %d", AssetSize, len(b))
	}
	copy(a.Creator[:], b[:32])
	copy(a.Name[:], b[32:32+AssetNameSize])
	copy(a.Metadata[:], b[32+AssetNameSize:AssetSize-1])
	a.Nonce = b[AssetSize-1]
	return a, nil
}

func trimZero(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
