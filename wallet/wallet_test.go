package wallet

import (
	"bytes"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/transaction"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/verifier"
	"github.com/stretchr/testify/require"
)

var params *prover.Params

func TestMain(m *testing.M) {
	var err error
	params, err = prover.Setup(4)
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func apply(t *testing.T, l *verifier.Ledger, tx *transaction.Transaction, wallets ...*Wallet) {
	t.Helper()
	require.NoError(t, tx.Verify(params))
	first, err := l.Apply(tx)
	require.NoError(t, err)
	for _, w := range wallets {
		w.Scan(tx, first)
	}
}

func TestWallet(t *testing.T) {
	native := types.NativeAssetID()
	l, err := verifier.NewLedger(params.Depth())
	require.NoError(t, err)

	alice := New(types.NewSpendingKey())
	bob := New(types.NewSpendingKey())

	genesis := types.NewNote(alice.Address(), 100, "genesis", native, [32]byte{})
	pos, err := l.AppendCommitment(genesis.Commitment())
	require.NoError(t, err)
	alice.AddNote(genesis, pos)
	alice.AddNote(genesis, pos)
	require.Len(t, alice.Unspent(native), 1)
	require.Equal(t, uint64(100), alice.Balance(native).Uint64())

	tx, err := alice.Pay(params, l, bob.Address(), native, 30, 2, "rent")
	require.NoError(t, err)
	apply(t, l, tx, alice, bob)

	require.Equal(t, uint64(68), alice.Balance(native).Uint64())
	require.Equal(t, uint64(30), bob.Balance(native).Uint64())
	require.Equal(t, "0.00000030", bob.FormatBalance(native))
	require.Equal(t, "rent", bob.Unspent(native)[0].Note.MemoString())

	_, err = bob.Pay(params, l, alice.Address(), native, 40, 0, "")
	require.True(t, errors.Is(err, errs.BalanceError))

	tx, err = bob.Pay(params, l, alice.Address(), native, 25, 5, "")
	require.NoError(t, err)
	apply(t, l, tx, alice, bob)

	require.Equal(t, uint64(93), alice.Balance(native).Uint64())
	require.True(t, bob.Balance(native).IsZero())
	require.Empty(t, bob.Balances())

	balances := alice.Balances()
	require.Len(t, balances, 1)
	require.Equal(t, uint64(93), balances[native].Uint64())
}

func TestWalletCustomAsset(t *testing.T) {
	native := types.NativeAssetID()
	l, err := verifier.NewLedger(params.Depth())
	require.NoError(t, err)

	issuer := New(types.NewSpendingKey())
	holder := New(types.NewSpendingKey())
	asset, err := types.NewAsset(issuer.Address(), "ticket", "row 7")
	require.NoError(t, err)

	sk := issuer.key
	p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
	require.NoError(t, err)
	require.NoError(t, p.AddMint(asset, big.NewInt(5)))
	tx, err := p.Post(sk, nil, 0)
	require.NoError(t, err)
	apply(t, l, tx, issuer)
	require.Equal(t, uint64(5), issuer.Balance(asset.ID()).Uint64())

	// fees need native notes
	_, err = issuer.Pay(params, l, holder.Address(), asset.ID(), 2, 1, "")
	require.True(t, errors.Is(err, errs.BalanceError))

	tx, err = issuer.Pay(params, l, holder.Address(), asset.ID(), 2, 0, "")
	require.NoError(t, err)
	apply(t, l, tx, issuer, holder)
	require.Equal(t, uint64(3), issuer.Balance(asset.ID()).Uint64())
	require.Equal(t, uint64(2), holder.Balance(asset.ID()).Uint64())
	require.True(t, holder.Balance(native).IsZero())

	// spends are added asset by asset in byte order
	funding := types.NewNote(issuer.Address(), 10, "", native, [32]byte{})
	pos, err := l.AppendCommitment(funding.Commitment())
	require.NoError(t, err)
	issuer.AddNote(funding, pos)

	tx, err = issuer.Pay(params, l, holder.Address(), asset.ID(), 1, 1, "")
	require.NoError(t, err)
	require.Equal(t, 2, tx.SpendsLength())
	want := []types.Nullifier{issuer.Unspent(native)[0].Nullifier, issuer.Unspent(asset.ID())[0].Nullifier}
	if id := asset.ID(); bytes.Compare(id[:], native[:]) < 0 {
		want[0], want[1] = want[1], want[0]
	}
	for i, nf := range want {
		spend, err := tx.GetSpend(i)
		require.NoError(t, err)
		require.Equal(t, nf, spend.Nullifier)
	}
	apply(t, l, tx, issuer, holder)
	require.Equal(t, uint64(3), holder.Balance(asset.ID()).Uint64())
	require.Equal(t, uint64(9), issuer.Balance(native).Uint64())
}
