package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/stretchr/testify/require"
)

func TestNoteCommitment(t *testing.T) {
	sk := NewSpendingKey()
	note := NewNote(sk.PublicAddress(), 100, "memo", NativeAssetID(), sk.PublicAddress().Owner)

	require.Equal(t, note.Commitment(), note.Commitment())

	other := *note
	other.Value = 101
	require.NotEqual(t, note.Commitment(), other.Commitment())

	nk := sk.NullifierKey()
	require.Equal(t, note.Nullifier(nk, 3), note.Nullifier(nk, 3))
	require.NotEqual(t, note.Nullifier(nk, 3), note.Nullifier(nk, 4))
}

func TestMerkleNoteDecrypt(t *testing.T) {
	sender := NewSpendingKey()
	receiver := NewSpendingKey()

	note := NewNote(receiver.PublicAddress(), 42, "hello", NativeAssetID(), sender.PublicAddress().Owner)
	rcv := crypto.HashToScalar("test", []byte("rcv"))
	mn, err := NewMerkleNote(note, note.ValueCommitment(rcv), sender.OutgoingViewKey())
	require.NoError(t, err)

	parsed, err := ParseMerkleNote(mn.Bytes())
	require.NoError(t, err)
	require.Equal(t, mn.Bytes(), parsed.Bytes())
	require.Len(t, mn.Bytes(), MerkleNoteSize)

	t.Run("owner", func(t *testing.T) {
		got, err := parsed.DecryptForOwner(receiver.ViewKey())
		require.NoError(t, err)
		require.Equal(t, uint64(42), got.Value)
		require.Equal(t, "hello", got.MemoString())
		require.Equal(t, note.Commitment(), got.Commitment())
		require.Equal(t, sender.PublicAddress().Owner, got.Sender)
	})

	t.Run("spender", func(t *testing.T) {
		got, err := parsed.DecryptForSpender(sender.OutgoingViewKey())
		require.NoError(t, err)
		require.Equal(t, note.Commitment(), got.Commitment())
		require.True(t, got.Owner.Equal(receiver.PublicAddress()))
	})

	t.Run("stranger", func(t *testing.T) {
		stranger := NewSpendingKey()
		_, err := parsed.DecryptForOwner(stranger.ViewKey())
		require.True(t, errors.Is(err, errs.KeyError))
		_, err = parsed.DecryptForSpender(stranger.OutgoingViewKey())
		require.True(t, errors.Is(err, errs.KeyError))
	})

	_, err = ParseMerkleNote(mn.Bytes()[1:])
	require.True(t, errors.Is(err, errs.ParseError))
}

func TestWitnessRoot(t *testing.T) {
	leaf := [32]byte{1}
	path := []WitnessNode{{Side: Right, Sibling: [32]byte{2}}, {Side: Left, Sibling: [32]byte{3}}}
	w := &StaticWitness{Root: WitnessRoot(path, leaf), Size: 4, Nodes: path}
	require.Equal(t, uint64(1), WitnessPosition(w))
	require.NotEqual(t, w.Root, WitnessRoot(path, [32]byte{9}))
}

func TestAsset(t *testing.T) {
	sk := NewSpendingKey()
	asset, err := NewAsset(sk.PublicAddress(), "gold", "shiny")
	require.NoError(t, err)
	require.Equal(t, "gold", asset.NameString())
	require.Equal(t, "shiny", asset.MetadataString())
	require.NotEqual(t, NativeAssetID(), asset.ID())
	require.False(t, asset.ID().Generator().Equal(NativeAssetID().Generator()))

	parsed, err := ParseAsset(asset.Bytes())
	require.NoError(t, err)
	require.Equal(t, asset.ID(), parsed.ID())

	_, err = NewAsset(sk.PublicAddress(), "", "")
	require.True(t, errors.Is(err, errs.RangeError))
}

func TestAmounts(t *testing.T) {
	require.Equal(t, "1.50000000", FormatAmount(150000000))

	v, err := ParseAmount("1.5")
	require.NoError(t, err)
	require.Equal(t, uint64(150000000), v)

	_, err = ParseAmount("-1")
	require.True(t, errors.Is(err, errs.RangeError))
	_, err = ParseAmount("0.000000001")
	require.True(t, errors.Is(err, errs.RangeError))

	_, err = Uint64Value(new(big.Int).Lsh(big.NewInt(1), 64))
	require.True(t, errors.Is(err, errs.RangeError))
	_, err = Uint64Value(big.NewInt(-1))
	require.True(t, errors.Is(err, errs.RangeError))
}
