package prover

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/utils"
)

// ValueBits bounds every committed value.
const ValueBits = 64

// SpendCircuit proves a note in the tree under Anchor is owned by the keys
// behind Rk, has the value committed in Cv, and has nullifier Nf.
type SpendCircuit struct {
	Rk     twistededwards.Point `gnark:",public"`
	Cv     twistededwards.Point `gnark:",public"`
	Anchor frontend.Variable    `gnark:",public"`
	Nf     frontend.Variable    `gnark:",public"`

	Ak       twistededwards.Point
	Alpha    frontend.Variable
	Nk       frontend.Variable
	Value    frontend.Variable
	Ga       twistededwards.Point
	Rcv      frontend.Variable
	Rcm      frontend.Variable
	Position frontend.Variable
	Path     []frontend.Variable
}

func (cc *SpendCircuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, utils.CURVEID)
	if err != nil {
		return err
	}
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	verifyRandomizedKey(api, curve, cc.Ak, cc.Alpha, cc.Rk)
	owner := ownerTag(&hasher, cc.Ak, cc.Nk)
	verifyValueCommitment(api, curve, cc.Value, cc.Ga, cc.Rcv, cc.Cv)

	cm := noteCommitment(&hasher, cc.Ga, cc.Value, owner, cc.Rcm)
	api.AssertIsEqual(merkleRoot(api, &hasher, cm, cc.Position, cc.Path), cc.Anchor)

	hasher.Reset()
	hasher.Write(cc.Nk, cm, cc.Position)
	api.AssertIsEqual(hasher.Sum(), cc.Nf)
	return nil
}

// OutputCircuit proves Cm commits to the value and asset committed in Cv.
type OutputCircuit struct {
	Cv twistededwards.Point `gnark:",public"`
	Cm frontend.Variable    `gnark:",public"`

	Value frontend.Variable
	Ga    twistededwards.Point
	Rcv   frontend.Variable
	Owner frontend.Variable
	Rcm   frontend.Variable
}

func (cc *OutputCircuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, utils.CURVEID)
	if err != nil {
		return err
	}
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	verifyValueCommitment(api, curve, cc.Value, cc.Ga, cc.Rcv, cc.Cv)
	api.AssertIsEqual(noteCommitment(&hasher, cc.Ga, cc.Value, cc.Owner, cc.Rcm), cc.Cm)
	return nil
}

// MintCircuit proves the keys behind Rk own the owner tag Owner.
type MintCircuit struct {
	Rk    twistededwards.Point `gnark:",public"`
	Owner frontend.Variable    `gnark:",public"`

	Ak    twistededwards.Point
	Nk    frontend.Variable
	Alpha frontend.Variable
}

func (cc *MintCircuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, utils.CURVEID)
	if err != nil {
		return err
	}
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	verifyRandomizedKey(api, curve, cc.Ak, cc.Alpha, cc.Rk)
	api.AssertIsEqual(ownerTag(&hasher, cc.Ak, cc.Nk), cc.Owner)
	return nil
}

// rk = ak + alpha*G
func verifyRandomizedKey(api frontend.API, curve twistededwards.Curve, ak twistededwards.Point, alpha frontend.Variable, rk twistededwards.Point) {
	curve.AssertIsOnCurve(ak)

	base := twistededwards.Point{
		X: curve.Params().Base[0],
		Y: curve.Params().Base[1],
	}
	computed := curve.Add(ak, curve.ScalarMul(base, alpha))
	api.AssertIsEqual(computed.X, rk.X)
	api.AssertIsEqual(computed.Y, rk.Y)
}

// cv = value*G_a + rcv*H
func verifyValueCommitment(api frontend.API, curve twistededwards.Curve, value frontend.Variable, ga twistededwards.Point, rcv frontend.Variable, cv twistededwards.Point) {
	_ = api.ToBinary(value, ValueBits)
	curve.AssertIsOnCurve(ga)

	hx, hy := crypto.ValueCommitmentBase().Coordinates()
	h := twistededwards.Point{X: hx, Y: hy}

	computed := curve.Add(curve.ScalarMul(ga, value), curve.ScalarMul(h, rcv))
	api.AssertIsEqual(computed.X, cv.X)
	api.AssertIsEqual(computed.Y, cv.Y)
}

func ownerTag(hasher hash.FieldHasher, ak twistededwards.Point, nk frontend.Variable) frontend.Variable {
	hasher.Reset()
	hasher.Write(ak.X, ak.Y, nk)
	return hasher.Sum()
}

func noteCommitment(hasher hash.FieldHasher, ga twistededwards.Point, value, owner, rcm frontend.Variable) frontend.Variable {
	hasher.Reset()
	hasher.Write(ga.X, ga.Y, value, owner, rcm)
	return hasher.Sum()
}

// merkleRoot walks a fixed-depth path. Bit i of position set means the
// node is the right child at level i.
func merkleRoot(api frontend.API, hasher hash.FieldHasher, leaf, position frontend.Variable, path []frontend.Variable) frontend.Variable {
	bits := api.ToBinary(position, len(path))
	cur := leaf
	for i, sibling := range path {
		left := api.Select(bits[i], sibling, cur)
		right := api.Select(bits[i], cur, sibling)
		hasher.Reset()
		hasher.Write(left, right)
		cur = hasher.Sum()
	}
	return cur
}

func pointAssignment(p *crypto.Point) twistededwards.Point {
	x, y := p.Coordinates()
	return twistededwards.Point{X: x, Y: y}
}

func fieldAssignment(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
