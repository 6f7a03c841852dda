package transaction

import (
	crand "crypto/rand"
	"io"
	"math/big"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/utils"
	"github.com/pkg/errors"
)

type state uint8

const (
	stateProposed state = iota
	stateUnsigned
	statePosted
)

func (s state) String() string {
	switch s {
	case stateProposed:
		return "proposed"
	case stateUnsigned:
		return "unsigned"
	case statePosted:
		return "posted"
	}
	return "unknown"
}

type spendBuilder struct {
	note    *types.Note
	witness types.Witness
	rcv     *crypto.Scalar
}

type outputBuilder struct {
	note  *types.Note
	rcv   *crypto.Scalar
	cv    *crypto.Point
	proof prover.Proof
}

type mintBuilder struct {
	asset    types.Asset
	value    uint64
	newOwner *types.PublicAddress
}

// ProposedTransaction accumulates actions until it is posted or built.
// It is owned by one caller and is not safe for concurrent use. Once Post,
// PostMinersFee or Build succeeds it rejects every further call.
type ProposedTransaction struct {
	version    Version
	params     *prover.Params
	rand       io.Reader
	state      state
	spends     []*spendBuilder
	outputs    []*outputBuilder
	mints      []*mintBuilder
	burns      []*BurnDescription
	balance    *ValueBalance
	expiration uint32
}

func NewProposedTransaction(version Version, params *prover.Params) (*ProposedTransaction, error) {
	if !version.valid() {
		return nil, errs.Newf(errs.ParseError, "new transaction", "unknown transaction version %d", version)
	}
	return &ProposedTransaction{
		version: version,
		params:  params,
		rand:    crand.Reader,
		balance: NewValueBalance(),
	}, nil
}

func (p *ProposedTransaction) checkProposed(op string) error {
	if p.state != stateProposed {
		return errs.Newf(errs.BalanceError, op, "transaction already %s", p.state)
	}
	return nil
}

func (p *ProposedTransaction) randomScalar(op string) (*crypto.Scalar, error) {
	s, err := crypto.RandomScalar(p.rand)
	if err != nil {
		return nil, errs.Wrap(errs.ProofError, err, op)
	}
	return s, nil
}

// AddSpend spends note, which the witness places in the note tree. The
// nullifier is derived from the note and the witness position when the
// transaction is proven.
func (p *ProposedTransaction) AddSpend(note *types.Note, witness types.Witness) error {
	if err := p.checkProposed("add spend"); err != nil {
		return err
	}
	if note == nil || witness == nil {
		return errs.New(errs.ProofError, "add spend", "missing note or witness")
	}
	if err := p.params.CheckWitness(witness, note.Commitment()); err != nil {
		return err
	}
	rcv, err := p.randomScalar("add spend")
	if err != nil {
		return err
	}
	p.spends = append(p.spends, &spendBuilder{note: note, witness: witness, rcv: rcv})
	p.balance.Add(note.Asset, note.Value)
	return nil
}

// AddOutput proves a new note. Encryption happens when the sender's
// outgoing view key is known.
func (p *ProposedTransaction) AddOutput(note *types.Note) error {
	if err := p.checkProposed("add output"); err != nil {
		return err
	}
	ob, err := p.proveOutput(note)
	if err != nil {
		return err
	}
	p.outputs = append(p.outputs, ob)
	p.balance.Subtract(note.Asset, note.Value)
	return nil
}

func (p *ProposedTransaction) proveOutput(note *types.Note) (*outputBuilder, error) {
	if note == nil || note.Owner.TransmissionKey == nil || note.Owner.TransmissionKey.IsIdentity() {
		return nil, errs.New(errs.ProofError, "add output", "note has no valid owner")
	}
	rcv, err := p.randomScalar("add output")
	if err != nil {
		return nil, err
	}
	proof, cv, err := p.params.ProveOutput(note, rcv)
	if err != nil {
		return nil, err
	}
	return &outputBuilder{note: note, rcv: rcv, cv: cv, proof: proof}, nil
}

func (p *ProposedTransaction) AddMint(asset types.Asset, value *big.Int) error {
	return p.addMint(asset, value, nil)
}

// AddMintWithNewOwner mints and hands ownership of asset to newOwner. The
// transfer is covered by the signature hash, so only the current owner can
// authorize it.
func (p *ProposedTransaction) AddMintWithNewOwner(asset types.Asset, value *big.Int, newOwner types.PublicAddress) error {
	return p.addMint(asset, value, &newOwner)
}

func (p *ProposedTransaction) addMint(asset types.Asset, value *big.Int, newOwner *types.PublicAddress) error {
	if err := p.checkProposed("add mint"); err != nil {
		return err
	}
	v, err := types.Uint64Value(value)
	if err != nil {
		return err
	}
	p.mints = append(p.mints, &mintBuilder{asset: asset, value: v, newOwner: newOwner})
	p.balance.Add(asset.ID(), v)
	return nil
}

func (p *ProposedTransaction) AddBurn(asset types.AssetIdentifier, value *big.Int) error {
	if err := p.checkProposed("add burn"); err != nil {
		return err
	}
	v, err := types.Uint64Value(value)
	if err != nil {
		return err
	}
	p.burns = append(p.burns, &BurnDescription{AssetID: asset, Value: v})
	p.balance.Subtract(asset, v)
	return nil
}

// SetExpiration sets the last sequence the transaction is valid for.
// Zero never expires.
func (p *ProposedTransaction) SetExpiration(sequence uint32) {
	p.expiration = sequence
}

func (p *ProposedTransaction) Expiration() uint32 {
	return p.expiration
}

// ValueBalance returns a copy of the running balance.
func (p *ProposedTransaction) ValueBalance() *ValueBalance {
	return p.balance.Clone()
}

// Post proves and signs with a single spending key. Positive change in
// every asset goes to changeAddress, or to the spender when it is nil.
func (p *ProposedTransaction) Post(sk types.SpendingKey, changeAddress *types.PublicAddress, intendedFee uint64) (*Transaction, error) {
	if err := p.checkProposed("post"); err != nil {
		return nil, err
	}
	fee, err := feeFromUint64(intendedFee)
	if err != nil {
		return nil, err
	}
	sender := sk.PublicAddress()
	if changeAddress == nil {
		changeAddress = &sender
	}

	u, err := p.partialPost(sk.ProofGenerationKey(), sk.OutgoingViewKey(), sender, changeAddress, fee, true)
	if err != nil {
		return nil, errors.Wrap(err, "post")
	}
	tx, err := u.signWithKey(sk)
	if err != nil {
		return nil, errors.Wrap(err, "post")
	}
	p.state = statePosted

	utils.Logger().Debug().
		Int("spends", len(tx.spends)).
		Int("outputs", len(tx.outputs)).
		Int("mints", len(tx.mints)).
		Int("burns", len(tx.burns)).
		Int64("fee", tx.fee).
		Msg("transaction posted")
	return tx, nil
}

// PostMinersFee posts a transaction with exactly one output and nothing
// else. Its fee is the negated output value.
func (p *ProposedTransaction) PostMinersFee(sk types.SpendingKey) (*Transaction, error) {
	if err := p.checkProposed("post miners fee"); err != nil {
		return nil, err
	}
	if len(p.spends) != 0 || len(p.outputs) != 1 || len(p.mints) != 0 || len(p.burns) != 0 {
		return nil, errs.Newf(errs.BalanceError, "post miners fee",
			"miner's fee transaction must have one output and nothing else, has %d spends %d outputs %d mints %d burns",
			len(p.spends), len(p.outputs), len(p.mints), len(p.burns))
	}
	return p.postMinersFee(sk, true)
}

func (p *ProposedTransaction) postMinersFee(sk types.SpendingKey, checked bool) (*Transaction, error) {
	fee, err := int64Value(p.balance.Net(types.NativeAssetID()))
	if err != nil {
		return nil, err
	}
	sender := sk.PublicAddress()
	u, err := p.partialPost(sk.ProofGenerationKey(), sk.OutgoingViewKey(), sender, nil, fee, checked)
	if err != nil {
		return nil, errors.Wrap(err, "post miners fee")
	}
	tx, err := u.signWithKey(sk)
	if err != nil {
		return nil, errors.Wrap(err, "post miners fee")
	}
	p.state = statePosted

	utils.Logger().Debug().Int64("fee", tx.fee).Msg("miner's fee transaction posted")
	return tx, nil
}

// Build proves the transaction without signing it, for threshold signing.
// vk and publicAddress must belong to pgk. Positive change goes to
// changeAddress, or to publicAddress when it is nil.
func (p *ProposedTransaction) Build(
	pgk types.ProofGenerationKey,
	vk types.ViewKey,
	ovk types.OutgoingViewKey,
	publicAddress types.PublicAddress,
	intendedFee uint64,
	changeAddress *types.PublicAddress,
) (*UnsignedTransaction, error) {
	if err := p.checkProposed("build"); err != nil {
		return nil, err
	}
	if !vk.AK.Equal(pgk.AK) || !vk.NK.Equal(&pgk.NK) {
		return nil, errs.New(errs.KeyError, "build", "view key does not match proof generation key")
	}
	if !vk.PublicAddress().Equal(publicAddress) {
		return nil, errs.New(errs.KeyError, "build", "public address does not match view key")
	}
	fee, err := feeFromUint64(intendedFee)
	if err != nil {
		return nil, err
	}
	if changeAddress == nil {
		changeAddress = &publicAddress
	}

	u, err := p.partialPost(pgk, ovk, publicAddress, changeAddress, fee, true)
	if err != nil {
		return nil, errors.Wrap(err, "build")
	}
	p.state = stateUnsigned

	utils.Logger().Debug().
		Int("spends", len(u.spends)).
		Int("outputs", len(u.outputs)).
		Int64("fee", u.fee).
		Msg("unsigned transaction built")
	return u, nil
}

// BuildFromHex is Build with hex encoded keys and addresses. An empty
// changeAddressHex sends change to the public address.
func (p *ProposedTransaction) BuildFromHex(pgkHex, vkHex, ovkHex, publicAddressHex string, intendedFee uint64, changeAddressHex string) (*UnsignedTransaction, error) {
	pgk, err := types.ProofGenerationKeyFromHex(pgkHex)
	if err != nil {
		return nil, err
	}
	vk, err := types.ViewKeyFromHex(vkHex)
	if err != nil {
		return nil, err
	}
	ovk, err := types.OutgoingViewKeyFromHex(ovkHex)
	if err != nil {
		return nil, err
	}
	addr, err := types.PublicAddressFromHex(publicAddressHex)
	if err != nil {
		return nil, err
	}
	var change *types.PublicAddress
	if changeAddressHex != "" {
		c, err := types.PublicAddressFromHex(changeAddressHex)
		if err != nil {
			return nil, err
		}
		change = &c
	}
	return p.Build(pgk, vk, ovk, addr, intendedFee, change)
}

// partialPost adds change when changeAddress is set, draws the public key
// randomness, proves every action and signs the value balance. With
// checked, the value commitments must balance. Nothing in p changes on
// failure.
func (p *ProposedTransaction) partialPost(
	pgk types.ProofGenerationKey,
	ovk types.OutgoingViewKey,
	sender types.PublicAddress,
	changeAddress *types.PublicAddress,
	fee int64,
	checked bool,
) (*UnsignedTransaction, error) {
	outputs := append([]*outputBuilder(nil), p.outputs...)
	if changeAddress != nil {
		change, err := p.changeOutputs(sender, changeAddress, fee)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, change...)
	}

	alpha, err := p.randomScalar("randomness")
	if err != nil {
		return nil, err
	}
	u := &UnsignedTransaction{
		body: body{
			version:             p.version,
			fee:                 fee,
			expiration:          p.expiration,
			randomizedPublicKey: crypto.RandomizePublic(pgk.AK, alpha),
		},
		publicKeyRandomness: alpha,
	}

	// bsk = sum(rcv_spend) - sum(rcv_output)
	bsk := crypto.NewScalar()
	for _, sb := range p.spends {
		proof, pub, err := p.params.ProveSpend(&prover.SpendInputs{
			ProofGenerationKey: pgk,
			Randomness:         alpha,
			Note:               sb.note,
			ValueRandomness:    sb.rcv,
			Witness:            sb.witness,
		})
		if err != nil {
			return nil, err
		}
		u.spends = append(u.spends, &SpendDescription{
			ValueCommitment: pub.ValueCommitment,
			RootHash:        pub.Anchor,
			TreeSize:        sb.witness.TreeSize(),
			Nullifier:       pub.Nullifier,
			Proof:           proof,
		})
		bsk.Add(bsk, sb.rcv)
	}

	for _, ob := range outputs {
		mn, err := types.NewMerkleNote(ob.note, ob.cv, ovk)
		if err != nil {
			return nil, err
		}
		u.outputs = append(u.outputs, &OutputDescription{Proof: ob.proof, MerkleNote: mn})
		bsk.Sub(bsk, ob.rcv)
	}

	for _, mb := range p.mints {
		proof, _, owner, err := p.params.ProveMint(pgk, alpha)
		if err != nil {
			return nil, err
		}
		u.mints = append(u.mints, &MintDescription{
			Proof:               proof,
			Asset:               mb.asset,
			Value:               mb.value,
			Owner:               owner,
			TransferOwnershipTo: mb.newOwner,
		})
	}
	u.burns = append(u.burns, p.burns...)

	bvk := crypto.NewPoint().ScalarMult(bsk, crypto.ValueCommitmentBase())
	if checked && !bvk.Equal(u.bindingVerificationKey()) {
		return nil, errs.New(errs.BalanceError, "binding signature", "value commitments do not balance")
	}
	sighash := u.signatureHash()
	sig, err := crypto.Sign(p.rand, bsk, crypto.ValueCommitmentBase(), sighash[:])
	if err != nil {
		return nil, err
	}
	u.bindingSignature = sig
	return u, nil
}

// changeOutputs returns one change note per asset with value left over.
// The native asset pays fee first.
func (p *ProposedTransaction) changeOutputs(sender types.PublicAddress, changeAddress *types.PublicAddress, fee int64) ([]*outputBuilder, error) {
	native := types.NativeAssetID()
	var change []*outputBuilder
	assets := p.balance.Assets()
	if !containsAsset(assets, native) {
		assets = append(assets, native)
	}
	for _, asset := range assets {
		net := p.balance.Net(asset)
		if asset == native {
			net.Sub(net, big.NewInt(fee))
		}
		switch net.Sign() {
		case -1:
			return nil, errs.Newf(errs.BalanceError, "change", "asset %s is short by %s", asset.Hex(), new(big.Int).Neg(net))
		case 0:
			continue
		}
		value, err := types.Uint64Value(net)
		if err != nil {
			return nil, err
		}
		ob, err := p.proveOutput(types.NewNote(*changeAddress, value, "", asset, sender.Owner))
		if err != nil {
			return nil, err
		}
		change = append(change, ob)
	}
	return change, nil
}

func containsAsset(assets []types.AssetIdentifier, asset types.AssetIdentifier) bool {
	for _, a := range assets {
		if a == asset {
			return true
		}
	}
	return false
}

// UnsafeMinersFeeBuilder posts miner's fee transactions without checking
// their shape. It exists to produce invalid transactions for tests.
type UnsafeMinersFeeBuilder struct {
	tx *ProposedTransaction
}

func NewUnsafeMinersFeeBuilder(tx *ProposedTransaction) *UnsafeMinersFeeBuilder {
	return &UnsafeMinersFeeBuilder{tx: tx}
}

// PostMinersFeeUnchecked posts with fee equal to the native balance and
// no change, whatever the transaction holds.
func (b *UnsafeMinersFeeBuilder) PostMinersFeeUnchecked(sk types.SpendingKey) (*Transaction, error) {
	if err := b.tx.checkProposed("post miners fee"); err != nil {
		return nil, err
	}
	return b.tx.postMinersFee(sk, false)
}
