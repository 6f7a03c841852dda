package verifier

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/transaction"
	"github.com/kysee/zktx/types"
	"github.com/stretchr/testify/require"
)

const testDepth = 4

var params *prover.Params

func TestMain(m *testing.M) {
	var err error
	params, err = prover.Setup(testDepth)
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(testDepth)
	require.NoError(t, err)
	return l
}

// seed puts a native note for sk on the ledger and returns it with its
// position.
func seed(t *testing.T, l *Ledger, sk types.SpendingKey, value uint64) (*types.Note, uint64) {
	t.Helper()
	note := types.NewNote(sk.PublicAddress(), value, "", types.NativeAssetID(), [32]byte{})
	pos, err := l.AppendCommitment(note.Commitment())
	require.NoError(t, err)
	return note, pos
}

func pay(t *testing.T, l *Ledger, sk types.SpendingKey, note *types.Note, pos uint64, to types.PublicAddress, value, fee uint64) *transaction.Transaction {
	t.Helper()
	w, err := l.Witness(pos)
	require.NoError(t, err)
	p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
	require.NoError(t, err)
	require.NoError(t, p.AddSpend(note, w))
	require.NoError(t, p.AddOutput(types.NewNote(to, value, "", types.NativeAssetID(), sk.PublicAddress().Owner)))
	tx, err := p.Post(sk, nil, fee)
	require.NoError(t, err)
	return tx
}

func TestLedgerTree(t *testing.T) {
	l := newLedger(t)
	empty := l.Root()
	require.True(t, l.IsAnchor(empty, 0))

	var cms []types.NoteCommitment
	for i := 0; i < 5; i++ {
		var cm types.NoteCommitment
		cm[31] = byte(i + 1)
		pos, err := l.AppendCommitment(cm)
		require.NoError(t, err)
		require.Equal(t, uint64(i), pos)
		cms = append(cms, cm)
	}
	require.Equal(t, uint32(5), l.Size())
	require.NotEqual(t, empty, l.Root())

	for i, cm := range cms {
		w, err := l.Witness(uint64(i))
		require.NoError(t, err)
		require.Equal(t, l.Root(), types.WitnessRoot(w.Nodes, cm))
		require.Equal(t, uint64(i), types.WitnessPosition(w))
		require.NoError(t, params.CheckWitness(w, cm))

		got, err := l.Commitment(uint64(i))
		require.NoError(t, err)
		require.Equal(t, cm, got)
	}
	require.True(t, l.IsAnchor(l.Root(), 5))
	require.False(t, l.IsAnchor(l.Root(), 4))

	_, err := l.Witness(5)
	require.True(t, errors.Is(err, errs.RangeError))
	_, err = l.Commitment(5)
	require.True(t, errors.Is(err, errs.RangeError))

	t.Run("full", func(t *testing.T) {
		small, err := NewLedger(1)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err := small.AppendCommitment(types.NoteCommitment{byte(i)})
			require.NoError(t, err)
		}
		_, err = small.AppendCommitment(types.NoteCommitment{9})
		require.True(t, errors.Is(err, errs.RangeError))
	})

	_, err = NewLedger(0)
	require.True(t, errors.Is(err, errs.RangeError))
}

func TestApply(t *testing.T) {
	l := newLedger(t)
	alice := types.NewSpendingKey()
	bob := types.NewSpendingKey()

	note, pos := seed(t, l, alice, 100)
	tx := pay(t, l, alice, note, pos, bob.PublicAddress(), 70, 1)
	require.True(t, VerifyTransactions(params, [][]byte{tx.Serialize()}))

	first, err := l.Apply(tx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	require.Equal(t, uint32(1+tx.NotesLength()), l.Size())

	spend, err := tx.GetSpend(0)
	require.NoError(t, err)
	require.True(t, l.HasNullifier(spend.Nullifier))

	t.Run("double spend", func(t *testing.T) {
		_, err := l.Apply(tx)
		require.True(t, errors.Is(err, errs.BalanceError))
		require.Equal(t, uint32(1+tx.NotesLength()), l.Size())
	})

	t.Run("spend received note", func(t *testing.T) {
		raw, err := tx.GetNote(0)
		require.NoError(t, err)
		mn, err := types.ParseMerkleNote(raw)
		require.NoError(t, err)
		received, err := mn.DecryptForOwner(bob.ViewKey())
		require.NoError(t, err)

		next := pay(t, l, bob, received, first, alice.PublicAddress(), 60, 10)
		_, err = l.Apply(next)
		require.NoError(t, err)
	})

	t.Run("unknown anchor", func(t *testing.T) {
		other := newLedger(t)
		note, pos := seed(t, other, alice, 5)
		_, _ = other.AppendCommitment(types.NoteCommitment{1})
		tx := pay(t, other, alice, note, pos, bob.PublicAddress(), 5, 0)
		_, err := l.Apply(tx)
		require.True(t, errors.Is(err, errs.ProofError))
	})
}

func TestAssetOwnership(t *testing.T) {
	l := newLedger(t)
	creator := types.NewSpendingKey()
	heir := types.NewSpendingKey()
	asset, err := types.NewAsset(creator.PublicAddress(), "coupon", "")
	require.NoError(t, err)
	require.Equal(t, creator.PublicAddress().Owner, l.AssetOwner(asset))

	mint := func(sk types.SpendingKey, newOwner *types.PublicAddress) *transaction.Transaction {
		p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
		require.NoError(t, err)
		if newOwner != nil {
			require.NoError(t, p.AddMintWithNewOwner(asset, big.NewInt(10), *newOwner))
		} else {
			require.NoError(t, p.AddMint(asset, big.NewInt(10)))
		}
		tx, err := p.Post(sk, nil, 0)
		require.NoError(t, err)
		require.NoError(t, tx.Verify(params))
		return tx
	}

	_, err = l.Apply(mint(heir, nil))
	require.True(t, errors.Is(err, errs.ProofError))

	addr := heir.PublicAddress()
	_, err = l.Apply(mint(creator, &addr))
	require.NoError(t, err)
	require.Equal(t, addr.Owner, l.AssetOwner(asset))

	_, err = l.Apply(mint(creator, nil))
	require.True(t, errors.Is(err, errs.ProofError))
	_, err = l.Apply(mint(heir, nil))
	require.NoError(t, err)
}

func TestVerifyTransactions(t *testing.T) {
	require.True(t, VerifyTransactions(params, nil))
	require.True(t, VerifyTransactions(params, [][]byte{}))

	miner := types.NewSpendingKey()
	minersFee := func() *transaction.Transaction {
		p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
		require.NoError(t, err)
		require.NoError(t, p.AddOutput(types.NewNote(miner.PublicAddress(), 20, "", types.NativeAssetID(), miner.PublicAddress().Owner)))
		tx, err := p.PostMinersFee(miner)
		require.NoError(t, err)
		return tx
	}
	a, b := minersFee().Serialize(), minersFee().Serialize()
	require.True(t, VerifyTransactions(params, [][]byte{a, b}))

	cases := []struct {
		name  string
		batch [][]byte
		kind  errs.Kind
	}{
		{"garbage", [][]byte{a, {0xde, 0xad}}, errs.ParseError},
		{"truncated", [][]byte{a[:len(a)-1], b}, errs.ParseError},
		{"bad binding signature", [][]byte{a, flip(b, len(b)-1)}, errs.SignatureError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.False(t, VerifyTransactions(params, tc.batch))
			err := VerifyTransactionsContext(context.Background(), params, tc.batch)
			require.True(t, errors.Is(err, tc.kind))
		})
	}

	t.Run("unchecked miners fee", func(t *testing.T) {
		p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			require.NoError(t, p.AddOutput(types.NewNote(miner.PublicAddress(), 20, "", types.NativeAssetID(), miner.PublicAddress().Owner)))
		}
		tx, err := transaction.NewUnsafeMinersFeeBuilder(p).PostMinersFeeUnchecked(miner)
		require.NoError(t, err)
		require.False(t, VerifyTransactions(params, [][]byte{a, tx.Serialize()}))
	})
}

// flip returns a copy of b with the low bit of byte i toggled. The last
// byte of a transaction is the low byte of the binding signature scalar.
func flip(b []byte, i int) []byte {
	c := append([]byte(nil), b...)
	c[i] ^= 0x01
	return c
}
