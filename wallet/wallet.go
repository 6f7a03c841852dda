// Package wallet tracks the notes one spending key owns across posted
// transactions and builds payments from them.
package wallet

import (
	"bytes"
	"math/big"
	"sort"
	"sync"

	"github.com/holiman/uint256"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/transaction"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/utils"
	"github.com/pkg/errors"
)

// WitnessSource produces the authentication path of the note at a tree
// position.
type WitnessSource interface {
	Witness(position uint64) (*types.StaticWitness, error)
}

// OwnedNote is a note the wallet can spend.
type OwnedNote struct {
	Note      *types.Note
	Position  uint64
	Nullifier types.Nullifier
	Spent     bool
}

type Wallet struct {
	mu      sync.RWMutex
	key     types.SpendingKey
	address types.PublicAddress
	notes   []*OwnedNote
	byNf    map[types.Nullifier]*OwnedNote
}

func New(sk types.SpendingKey) *Wallet {
	return &Wallet{
		key:     sk,
		address: sk.PublicAddress(),
		byNf:    make(map[types.Nullifier]*OwnedNote),
	}
}

func (w *Wallet) Address() types.PublicAddress {
	return w.address
}

// AddNote records a note known to sit at position, such as a genesis note.
func (w *Wallet) AddNote(note *types.Note, position uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addNote(note, position)
}

func (w *Wallet) addNote(note *types.Note, position uint64) {
	nf := note.Nullifier(w.key.NullifierKey(), position)
	if _, ok := w.byNf[nf]; ok {
		return
	}
	on := &OwnedNote{Note: note, Position: position, Nullifier: nf}
	w.notes = append(w.notes, on)
	w.byNf[nf] = on
}

// Scan marks the notes tx spends and picks up the outputs sent to this
// wallet. firstPosition is the tree position of the first output, as
// returned by the ledger. It returns the number of notes received.
func (w *Wallet) Scan(tx *transaction.Transaction, firstPosition uint64) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := 0; i < tx.SpendsLength(); i++ {
		s, _ := tx.GetSpend(i)
		if on, ok := w.byNf[s.Nullifier]; ok {
			on.Spent = true
		}
	}

	vk := w.key.ViewKey()
	received := 0
	for i, o := range tx.Outputs() {
		note, err := o.MerkleNote.DecryptForOwner(vk)
		if err != nil {
			// not ours
			continue
		}
		w.addNote(note, firstPosition+uint64(i))
		received++
	}
	if received > 0 {
		utils.Logger().Debug().Int("received", received).Str("address", w.address.String()).Msg("wallet scanned transaction")
	}
	return received
}

// Unspent lists unspent notes of asset in tree order.
func (w *Wallet) Unspent(asset types.AssetIdentifier) []*OwnedNote {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*OwnedNote
	for _, on := range w.notes {
		if !on.Spent && on.Note.Asset == asset {
			out = append(out, on)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (w *Wallet) Balance(asset types.AssetIdentifier) *uint256.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ret := uint256.NewInt(0)
	for _, on := range w.notes {
		if !on.Spent && on.Note.Asset == asset {
			ret = ret.Add(ret, uint256.NewInt(on.Note.Value))
		}
	}
	return ret
}

// Balances returns the unspent total of every asset the wallet holds.
func (w *Wallet) Balances() map[types.AssetIdentifier]*uint256.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ret := make(map[types.AssetIdentifier]*uint256.Int)
	for _, on := range w.notes {
		if on.Spent {
			continue
		}
		b, ok := ret[on.Note.Asset]
		if !ok {
			b = uint256.NewInt(0)
			ret[on.Note.Asset] = b
		}
		b.Add(b, uint256.NewInt(on.Note.Value))
	}
	return ret
}

// FormatBalance renders the balance of asset as a fixed-point amount.
func (w *Wallet) FormatBalance(asset types.AssetIdentifier) string {
	b := w.Balance(asset)
	if !b.IsUint64() {
		return b.Dec()
	}
	return types.FormatAmount(b.Uint64())
}

// Pay posts a transaction sending value of asset to recipient and paying
// fee in the native asset. Notes are chosen oldest first and change comes
// back to the wallet. The spent notes are marked once the transaction is
// scanned.
func (w *Wallet) Pay(params *prover.Params, witnesses WitnessSource, recipient types.PublicAddress, asset types.AssetIdentifier, value, fee uint64, memo string) (*transaction.Transaction, error) {
	p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
	if err != nil {
		return nil, err
	}

	need := map[types.AssetIdentifier]uint64{asset: value}
	native := types.NativeAssetID()
	if asset == native {
		if value+fee < value {
			return nil, errs.New(errs.RangeError, "pay", "value plus fee overflows")
		}
		need[native] = value + fee
	} else if fee > 0 {
		need[native] = fee
	}

	assets := make([]types.AssetIdentifier, 0, len(need))
	for a := range need {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		return bytes.Compare(assets[i][:], assets[j][:]) < 0
	})

	for _, a := range assets {
		notes, err := w.selectNotes(a, need[a])
		if err != nil {
			return nil, err
		}
		for _, on := range notes {
			wit, err := witnesses.Witness(on.Position)
			if err != nil {
				return nil, errors.Wrap(err, "pay")
			}
			if err := p.AddSpend(on.Note, wit); err != nil {
				return nil, errors.Wrap(err, "pay")
			}
		}
	}

	if err := p.AddOutput(types.NewNote(recipient, value, memo, asset, w.address.Owner)); err != nil {
		return nil, errors.Wrap(err, "pay")
	}
	return p.Post(w.key, nil, fee)
}

func (w *Wallet) selectNotes(asset types.AssetIdentifier, amount uint64) ([]*OwnedNote, error) {
	var (
		picked []*OwnedNote
		total  = new(big.Int)
		target = new(big.Int).SetUint64(amount)
	)
	for _, on := range w.Unspent(asset) {
		if total.Cmp(target) >= 0 {
			break
		}
		picked = append(picked, on)
		total.Add(total, new(big.Int).SetUint64(on.Note.Value))
	}
	if total.Cmp(target) < 0 {
		return nil, errs.Newf(errs.BalanceError, "pay", "asset %s balance %s is below %d", asset.Hex(), total, amount)
	}
	return picked, nil
}
