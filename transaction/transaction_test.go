package transaction

import (
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/frost"
	"github.com/kysee/zktx/prover"
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

func witnessFor(cm types.NoteCommitment, position uint64) *types.StaticWitness {
	nodes := make([]types.WitnessNode, testDepth)
	for i := range nodes {
		nodes[i].Sibling[31] = byte(i + 7)
		if position&(1<<uint(i)) != 0 {
			nodes[i].Side = types.Right
		}
	}
	return &types.StaticWitness{Root: types.WitnessRoot(nodes, cm), Size: uint32(position + 1), Nodes: nodes}
}

func newProposed(t *testing.T) *ProposedTransaction {
	t.Helper()
	p, err := NewProposedTransaction(LatestTransactionVersion, params)
	require.NoError(t, err)
	return p
}

// addSpend spends a fresh note of value owned by sk at position 3.
func addSpend(t *testing.T, p *ProposedTransaction, sk types.SpendingKey, value uint64, asset types.AssetIdentifier) *types.Note {
	t.Helper()
	note := types.NewNote(sk.PublicAddress(), value, "", asset, sk.PublicAddress().Owner)
	require.NoError(t, p.AddSpend(note, witnessFor(note.Commitment(), 3)))
	return note
}

func TestPost(t *testing.T) {
	sk := types.NewSpendingKey()
	receiver := types.NewSpendingKey()
	native := types.NativeAssetID()

	p := newProposed(t)
	spent := addSpend(t, p, sk, 100, native)
	require.NoError(t, p.AddOutput(types.NewNote(receiver.PublicAddress(), 60, "payment", native, sk.PublicAddress().Owner)))
	p.SetExpiration(1234)
	require.Equal(t, int64(40), p.ValueBalance().Net(native).Int64())

	tx, err := p.Post(sk, nil, 10)
	require.NoError(t, err)
	require.NoError(t, tx.Verify(params))

	require.Equal(t, int64(10), tx.Fee())
	require.Equal(t, uint32(1234), tx.Expiration())
	require.Equal(t, 1, tx.SpendsLength())
	require.Equal(t, 2, tx.NotesLength())
	require.Len(t, tx.TransactionSignature(), TransactionSignatureLength)

	spend, err := tx.GetSpend(0)
	require.NoError(t, err)
	require.Equal(t, spent.Nullifier(sk.NullifierKey(), 3), spend.Nullifier)
	require.Equal(t, uint32(4), spend.TreeSize)
	_, err = tx.GetSpend(1)
	require.True(t, errors.Is(err, errs.RangeError))
	_, err = tx.GetNote(2)
	require.True(t, errors.Is(err, errs.RangeError))
	_, err = tx.GetNote(-1)
	require.True(t, errors.Is(err, errs.RangeError))

	t.Run("notes", func(t *testing.T) {
		raw, err := tx.GetNote(0)
		require.NoError(t, err)
		mn, err := types.ParseMerkleNote(raw)
		require.NoError(t, err)
		note, err := mn.DecryptForOwner(receiver.ViewKey())
		require.NoError(t, err)
		require.Equal(t, uint64(60), note.Value)
		require.Equal(t, "payment", note.MemoString())

		raw, err = tx.GetNote(1)
		require.NoError(t, err)
		mn, err = types.ParseMerkleNote(raw)
		require.NoError(t, err)
		change, err := mn.DecryptForOwner(sk.ViewKey())
		require.NoError(t, err)
		require.Equal(t, uint64(30), change.Value)
	})

	t.Run("round trip", func(t *testing.T) {
		bz := tx.Serialize()
		parsed, err := ReadTransaction(bz)
		require.NoError(t, err)
		require.Equal(t, bz, parsed.Serialize())
		require.Equal(t, tx.Hash(), parsed.Hash())
		require.NoError(t, parsed.Verify(params))

		_, err = ReadTransaction(bz[:len(bz)-1])
		require.True(t, errors.Is(err, errs.ParseError))
		_, err = ReadTransaction(append(bz, 0))
		require.True(t, errors.Is(err, errs.ParseError))
	})

	t.Run("tampered", func(t *testing.T) {
		bz := tx.Serialize()
		// expiration is covered by the signature hash
		bz[1+4*8+TransactionFeeLength] ^= 1
		parsed, err := ReadTransaction(bz)
		require.NoError(t, err)
		require.True(t, errors.Is(parsed.Verify(params), errs.SignatureError))
	})

	t.Run("posted builder is frozen", func(t *testing.T) {
		err := p.AddOutput(types.NewNote(receiver.PublicAddress(), 1, "", native, sk.PublicAddress().Owner))
		require.True(t, errors.Is(err, errs.BalanceError))
		_, err = p.Post(sk, nil, 0)
		require.True(t, errors.Is(err, errs.BalanceError))
	})
}

func TestPostBalance(t *testing.T) {
	sk := types.NewSpendingKey()
	native := types.NativeAssetID()

	p := newProposed(t)
	addSpend(t, p, sk, 10, native)
	require.NoError(t, p.AddOutput(types.NewNote(sk.PublicAddress(), 8, "", native, sk.PublicAddress().Owner)))

	_, err := p.Post(sk, nil, 5)
	require.True(t, errors.Is(err, errs.BalanceError))

	// a failed post leaves the builder usable
	tx, err := p.Post(sk, nil, 2)
	require.NoError(t, err)
	require.Equal(t, 1, tx.NotesLength())
	require.NoError(t, tx.Verify(params))
}

func TestAddSpendErrors(t *testing.T) {
	sk := types.NewSpendingKey()
	note := types.NewNote(sk.PublicAddress(), 10, "", types.NativeAssetID(), sk.PublicAddress().Owner)
	w := witnessFor(note.Commitment(), 1)

	p := newProposed(t)
	bad := *w
	bad.Root = [32]byte{}
	require.True(t, errors.Is(p.AddSpend(note, &bad), errs.ProofError))

	short := *w
	short.Nodes = short.Nodes[:testDepth-1]
	require.True(t, errors.Is(p.AddSpend(note, &short), errs.ProofError))

	// a foreign key cannot prove the spend
	require.NoError(t, p.AddSpend(note, w))
	change := sk.PublicAddress()
	_, err := p.Post(types.NewSpendingKey(), &change, 0)
	require.True(t, errors.Is(err, errs.ProofError))
}

func TestMinersFee(t *testing.T) {
	miner := types.NewSpendingKey()
	native := types.NativeAssetID()

	p := newProposed(t)
	require.NoError(t, p.AddOutput(types.NewNote(miner.PublicAddress(), 50, "", native, miner.PublicAddress().Owner)))
	tx, err := p.PostMinersFee(miner)
	require.NoError(t, err)
	require.Equal(t, int64(-50), tx.Fee())
	require.Equal(t, 0, tx.SpendsLength())
	require.Equal(t, 1, tx.NotesLength())
	require.NoError(t, tx.Verify(params))

	t.Run("with spend", func(t *testing.T) {
		p := newProposed(t)
		addSpend(t, p, miner, 5, native)
		require.NoError(t, p.AddOutput(types.NewNote(miner.PublicAddress(), 50, "", native, miner.PublicAddress().Owner)))
		_, err := p.PostMinersFee(miner)
		require.True(t, errors.Is(err, errs.BalanceError))
	})

	t.Run("unchecked", func(t *testing.T) {
		p := newProposed(t)
		for i := 0; i < 2; i++ {
			require.NoError(t, p.AddOutput(types.NewNote(miner.PublicAddress(), 50, "", native, miner.PublicAddress().Owner)))
		}
		_, err := p.PostMinersFee(miner)
		require.True(t, errors.Is(err, errs.BalanceError))

		tx, err := NewUnsafeMinersFeeBuilder(p).PostMinersFeeUnchecked(miner)
		require.NoError(t, err)
		require.Equal(t, int64(-100), tx.Fee())

		parsed, err := ReadTransaction(tx.Serialize())
		require.NoError(t, err)
		require.Equal(t, tx.Serialize(), parsed.Serialize())
		require.True(t, errors.Is(parsed.Verify(params), errs.BalanceError))
	})
}

func TestMintAndBurn(t *testing.T) {
	sk := types.NewSpendingKey()
	newOwner := types.NewSpendingKey().PublicAddress()
	asset, err := types.NewAsset(sk.PublicAddress(), "gold", "bars")
	require.NoError(t, err)

	p := newProposed(t)
	require.NoError(t, p.AddMintWithNewOwner(asset, big.NewInt(100), newOwner))
	require.NoError(t, p.AddBurn(asset.ID(), big.NewInt(40)))

	tooBig := new(big.Int).Lsh(big.NewInt(1), 64)
	require.True(t, errors.Is(p.AddMint(asset, tooBig), errs.RangeError))
	require.True(t, errors.Is(p.AddBurn(asset.ID(), big.NewInt(-1)), errs.RangeError))

	tx, err := p.Post(sk, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tx.Verify(params))

	require.Equal(t, 1, tx.NotesLength())
	mints := tx.Mints()
	require.Len(t, mints, 1)
	require.Equal(t, uint64(100), mints[0].Value)
	require.Equal(t, sk.PublicAddress().Owner, mints[0].Owner)
	require.True(t, mints[0].TransferOwnershipTo.Equal(newOwner))
	require.Len(t, tx.Burns(), 1)

	parsed, err := ReadTransaction(tx.Serialize())
	require.NoError(t, err)
	require.True(t, parsed.Mints()[0].TransferOwnershipTo.Equal(newOwner))
	require.NoError(t, parsed.Verify(params))
}

func TestVersion(t *testing.T) {
	_, err := NewProposedTransaction(LatestTransactionVersion+1, params)
	require.True(t, errors.Is(err, errs.ParseError))
}

// signRound runs the commitment round for the given participants and
// returns their sessions and the package over unsigned.
func signRound(t *testing.T, unsigned *UnsignedTransaction, packages map[frost.Identifier]*frost.KeyPackage, participants ...uint16) (map[frost.Identifier]*frost.SigningSession, *frost.SigningPackage) {
	t.Helper()
	sessions := make(map[frost.Identifier]*frost.SigningSession)
	commitments := make(map[frost.Identifier]*frost.SigningCommitments)
	for _, n := range participants {
		id, err := frost.IdentifierFromUint16(n)
		require.NoError(t, err)
		s, err := frost.NewSigningSession(crand.Reader, packages[id])
		require.NoError(t, err)
		sessions[id] = s
		commitments[id] = s.Commitments()
	}
	sp, err := unsigned.SigningPackage(commitments)
	require.NoError(t, err)
	return sessions, sp
}

func TestThresholdSigning(t *testing.T) {
	sk := types.NewSpendingKey()
	native := types.NativeAssetID()
	packages, pkp, err := frost.SplitKey(crand.Reader, sk.AuthorizingKey(), 2, 3)
	require.NoError(t, err)

	p := newProposed(t)
	addSpend(t, p, sk, 100, native)
	require.NoError(t, p.AddOutput(types.NewNote(types.NewSpendingKey().PublicAddress(), 70, "", native, sk.PublicAddress().Owner)))

	vk := sk.ViewKey()
	unsigned, err := p.BuildFromHex(sk.ProofGenerationKey().Hex(), vk.Hex(), sk.OutgoingViewKey().Hex(), sk.PublicAddress().Hex(), 5, "")
	require.NoError(t, err)
	require.Len(t, unsigned.PublicKeyRandomnessHex(), 2*TransactionPublicKeyRandomnessLength)

	_, err = p.Post(sk, nil, 5)
	require.True(t, errors.Is(err, errs.BalanceError))

	// signers only see the serialized transaction
	unsigned, err = ReadUnsignedTransaction(unsigned.Serialize())
	require.NoError(t, err)

	signers, sp := signRound(t, unsigned, packages, 1, 3)
	sighash := unsigned.SignatureHash()
	require.Equal(t, sighash[:], sp.Message())

	commitments := make(map[frost.Identifier]*frost.SigningCommitments)
	for id, s := range signers {
		commitments[id] = s.Commitments()
	}

	t.Run("signer refuses package for another transaction", func(t *testing.T) {
		q := newProposed(t)
		addSpend(t, q, sk, 40, native)
		other, err := q.Build(sk.ProofGenerationKey(), sk.ViewKey(), sk.OutgoingViewKey(), sk.PublicAddress(), 40, nil)
		require.NoError(t, err)

		sessions, otherSp := signRound(t, other, packages, 1, 2)
		for _, s := range sessions {
			_, err := unsigned.SignatureShare(s, otherSp)
			require.True(t, errors.Is(err, errs.SignatureError))
			require.False(t, s.IsConsumed())
		}
	})

	shares := make(map[frost.Identifier]*frost.SignatureShare)
	for id, s := range signers {
		share, err := unsigned.SignatureShare(s, sp)
		require.NoError(t, err)
		shares[id] = share
	}

	t.Run("foreign share", func(t *testing.T) {
		forged := make(map[frost.Identifier]*frost.SignatureShare)
		for id, s := range shares {
			forged[id] = s
		}
		for id := range forged {
			forged[id] = &frost.SignatureShare{Z: unsigned.PublicKeyRandomness()}
			break
		}
		_, err := unsigned.SignFrost(pkp, sp, forged)
		require.True(t, errors.Is(err, errs.SignatureError))
	})

	t.Run("package over another message", func(t *testing.T) {
		otherSp, err := frost.NewSigningPackage(commitments, []byte("another message"))
		require.NoError(t, err)
		_, err = unsigned.SignFrost(pkp, otherSp, shares)
		require.True(t, errors.Is(err, errs.SignatureError))
	})

	t.Run("public key package of another key", func(t *testing.T) {
		_, otherPkp, err := frost.SplitKey(crand.Reader, types.NewSpendingKey().AuthorizingKey(), 2, 3)
		require.NoError(t, err)
		_, err = unsigned.SignFrost(otherPkp, sp, shares)
		require.True(t, errors.Is(err, errs.SignatureError))
	})

	t.Run("hex entry points", func(t *testing.T) {
		hexCommitments := make(map[string]CommitmentHex)
		for id, c := range commitments {
			hexCommitments[id.Hex()] = CommitmentHex{
				Hiding:  hex.EncodeToString(c.Hiding.Bytes()),
				Binding: hex.EncodeToString(c.Binding.Bytes()),
			}
		}
		spHex, err := unsigned.SigningPackageFromHex(hexCommitments)
		require.NoError(t, err)
		require.Equal(t, sp.Hex(), spHex)

		hexShares := make(map[string]string)
		for id, s := range shares {
			hexShares[id.Hex()] = s.Hex()
		}
		tx, err := unsigned.SignFrostFromHex(pkp.Hex(), spHex, hexShares)
		require.NoError(t, err)
		require.NoError(t, tx.Verify(params))
	})

	tx, err := unsigned.SignFrost(pkp, sp, shares)
	require.NoError(t, err)
	require.NoError(t, tx.Verify(params))
	require.Equal(t, sighash, tx.Hash())
	require.Equal(t, int64(5), tx.Fee())

	parsed, err := ReadTransaction(tx.Serialize())
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), parsed.Hash())
}

func TestThresholdMint(t *testing.T) {
	sk := types.NewSpendingKey()
	packages, pkp, err := frost.SplitKey(crand.Reader, sk.AuthorizingKey(), 2, 3)
	require.NoError(t, err)
	asset, err := types.NewAsset(sk.PublicAddress(), "shares", "series a")
	require.NoError(t, err)

	p := newProposed(t)
	require.NoError(t, p.AddMint(asset, big.NewInt(8)))
	unsigned, err := p.Build(sk.ProofGenerationKey(), sk.ViewKey(), sk.OutgoingViewKey(), sk.PublicAddress(), 0, nil)
	require.NoError(t, err)

	signers, sp := signRound(t, unsigned, packages, 2, 3)
	shares := make(map[frost.Identifier]*frost.SignatureShare)
	for id, s := range signers {
		share, err := unsigned.SignatureShare(s, sp)
		require.NoError(t, err)
		shares[id] = share
	}

	tx, err := unsigned.SignFrost(pkp, sp, shares)
	require.NoError(t, err)
	require.NoError(t, tx.Verify(params))
	require.Len(t, tx.Mints(), 1)
	require.Equal(t, asset.ID(), tx.Mints()[0].Asset.ID())
	require.Equal(t, uint64(8), tx.Mints()[0].Value)

	// the mint signature is checked like any spend signature
	m := *tx.mints[0]
	m.AuthorizingSignature = &crypto.Signature{
		R: m.AuthorizingSignature.R,
		S: crypto.NewScalar().Add(m.AuthorizingSignature.S, crypto.ScalarFromUint64(1)),
	}
	tampered := &Transaction{body: tx.body}
	tampered.mints = []*MintDescription{&m}
	require.True(t, errors.Is(tampered.Verify(params), errs.SignatureError))
}

func TestBuildKeyErrors(t *testing.T) {
	sk := types.NewSpendingKey()
	other := types.NewSpendingKey()
	p := newProposed(t)

	_, err := p.BuildFromHex("zz", sk.ViewKey().Hex(), sk.OutgoingViewKey().Hex(), sk.PublicAddress().Hex(), 0, "")
	require.True(t, errors.Is(err, errs.KeyError))

	_, err = p.BuildFromHex(sk.ProofGenerationKey().Hex(), sk.ViewKey().Hex()[:10], sk.OutgoingViewKey().Hex(), sk.PublicAddress().Hex(), 0, "")
	require.True(t, errors.Is(err, errs.KeyError))

	_, err = p.Build(sk.ProofGenerationKey(), other.ViewKey(), sk.OutgoingViewKey(), sk.PublicAddress(), 0, nil)
	require.True(t, errors.Is(err, errs.KeyError))

	_, err = p.Build(sk.ProofGenerationKey(), sk.ViewKey(), sk.OutgoingViewKey(), other.PublicAddress(), 0, nil)
	require.True(t, errors.Is(err, errs.KeyError))
}

func TestValueBalance(t *testing.T) {
	vb := NewValueBalance()
	a := types.AssetIdentifier{1}
	b := types.AssetIdentifier{2}
	vb.Add(b, 10)
	vb.Subtract(a, ^uint64(0))
	vb.Subtract(a, 1)

	want := new(big.Int).Lsh(big.NewInt(1), 64)
	require.Zero(t, want.Neg(want).Cmp(vb.Net(a)))
	require.Equal(t, int64(10), vb.Net(b).Int64())
	require.Equal(t, []types.AssetIdentifier{a, b}, vb.Assets())
}
