package transaction

import (
	"bytes"
	"math"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/types"
)

// ValueBalance tracks the signed net value of every asset in a
// transaction: spends and mints add, outputs and burns subtract.
type ValueBalance struct {
	in  map[types.AssetIdentifier]*uint256.Int
	out map[types.AssetIdentifier]*uint256.Int
}

func NewValueBalance() *ValueBalance {
	return &ValueBalance{
		in:  make(map[types.AssetIdentifier]*uint256.Int),
		out: make(map[types.AssetIdentifier]*uint256.Int),
	}
}

func (vb *ValueBalance) Add(asset types.AssetIdentifier, value uint64) {
	accumulate(vb.in, asset, value)
}

func (vb *ValueBalance) Subtract(asset types.AssetIdentifier, value uint64) {
	accumulate(vb.out, asset, value)
}

func accumulate(m map[types.AssetIdentifier]*uint256.Int, asset types.AssetIdentifier, value uint64) {
	cur, ok := m[asset]
	if !ok {
		cur = new(uint256.Int)
		m[asset] = cur
	}
	// at most 2^64 additions of u64 values before this could wrap
	cur.Add(cur, uint256.NewInt(value))
}

// Net returns in - out for asset.
func (vb *ValueBalance) Net(asset types.AssetIdentifier) *big.Int {
	net := new(big.Int)
	if v, ok := vb.in[asset]; ok {
		net.Add(net, v.ToBig())
	}
	if v, ok := vb.out[asset]; ok {
		net.Sub(net, v.ToBig())
	}
	return net
}

// Assets lists every asset touched, in byte order.
func (vb *ValueBalance) Assets() []types.AssetIdentifier {
	seen := make(map[types.AssetIdentifier]struct{}, len(vb.in)+len(vb.out))
	for a := range vb.in {
		seen[a] = struct{}{}
	}
	for a := range vb.out {
		seen[a] = struct{}{}
	}
	assets := make([]types.AssetIdentifier, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return bytes.Compare(assets[i][:], assets[j][:]) < 0 })
	return assets
}

func (vb *ValueBalance) Clone() *ValueBalance {
	c := NewValueBalance()
	for a, v := range vb.in {
		c.in[a] = v.Clone()
	}
	for a, v := range vb.out {
		c.out[a] = v.Clone()
	}
	return c
}

// int64Value converts v to a fee, failing with RangeError.
func int64Value(v *big.Int) (int64, error) {
	if !v.IsInt64() {
		return 0, errs.Newf(errs.RangeError, "fee", "%s does not fit a signed 64 bit fee", v)
	}
	return v.Int64(), nil
}

func feeFromUint64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, errs.Newf(errs.RangeError, "fee", "%d does not fit a signed 64 bit fee", v)
	}
	return int64(v), nil
}
