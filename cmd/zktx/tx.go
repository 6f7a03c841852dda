package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"

	"github.com/kysee/zktx/prover"
	"github.com/kysee/zktx/transaction"
	"github.com/kysee/zktx/types"
	"github.com/kysee/zktx/verifier"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Builds, inspects and verifies transactions",
}

var txInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Prints the public fields of a posted transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := readHexFile(args[0])
		if err != nil {
			return err
		}
		tx, err := transaction.TransactionFromHex(s)
		if err != nil {
			return err
		}

		hash := tx.Hash()
		fmt.Printf("hash:       %x\n", hash)
		fmt.Printf("version:    %d\n", tx.Version())
		fmt.Printf("fee:        %s\n", formatFee(tx.Fee()))
		fmt.Printf("expiration: %d\n", tx.Expiration())
		for i := 0; i < tx.SpendsLength(); i++ {
			sp, _ := tx.GetSpend(i)
			fmt.Printf("spend %d:    nullifier %x root %x tree size %d\n", i, sp.Nullifier, sp.RootHash, sp.TreeSize)
		}
		for i, o := range tx.Outputs() {
			fmt.Printf("note %d:     commitment %x\n", i, o.MerkleNote.NoteCommitment)
		}
		for i, m := range tx.Mints() {
			fmt.Printf("mint %d:     asset %s (%s) value %s\n", i, m.Asset.ID().Hex(), m.Asset.NameString(), types.FormatAmount(m.Value))
			if m.TransferOwnershipTo != nil {
				fmt.Printf("            ownership to %s\n", m.TransferOwnershipTo)
			}
		}
		for i, b := range tx.Burns() {
			fmt.Printf("burn %d:     asset %s value %s\n", i, b.AssetID.Hex(), types.FormatAmount(b.Value))
		}
		fmt.Printf("signature:  %s\n", hex.EncodeToString(tx.TransactionSignature()))
		return nil
	},
}

var txVerifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Verifies a batch of posted transactions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := prover.Load(cfg.ParamsDir)
		if err != nil {
			return err
		}
		batch := make([][]byte, 0, len(args))
		for _, path := range args {
			s, err := readHexFile(path)
			if err != nil {
				return err
			}
			bz, err := hex.DecodeString(s)
			if err != nil {
				return errors.Wrapf(err, "decode %s", path)
			}
			batch = append(batch, bz)
		}
		if !verifier.VerifyTransactions(params, batch) {
			return errors.Errorf("batch of %d transactions is invalid", len(batch))
		}
		fmt.Printf("%d transactions verified\n", len(batch))
		return nil
	},
}

var (
	buildPGK     string
	buildVK      string
	buildOVK     string
	buildAddress string
	buildName    string
	buildMeta    string
	buildValue   string
	buildExpiry  uint32
	buildOut     string
	minerKey     string
)

var txBuildMintCmd = &cobra.Command{
	Use:   "build-mint",
	Short: "Builds an unsigned transaction minting a new asset for a threshold account",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := prover.Load(cfg.ParamsDir)
		if err != nil {
			return err
		}
		creator, err := types.PublicAddressFromHex(buildAddress)
		if err != nil {
			return err
		}
		asset, err := types.NewAsset(creator, buildName, buildMeta)
		if err != nil {
			return err
		}
		value, err := types.ParseAmount(buildValue)
		if err != nil {
			return err
		}

		p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
		if err != nil {
			return err
		}
		if err := p.AddMint(asset, new(big.Int).SetUint64(value)); err != nil {
			return err
		}
		p.SetExpiration(buildExpiry)
		u, err := p.BuildFromHex(buildPGK, buildVK, buildOVK, buildAddress, 0, "")
		if err != nil {
			return err
		}

		s := hex.EncodeToString(u.Serialize())
		fmt.Printf("asset: %s\n", asset.ID().Hex())
		if buildOut == "" {
			fmt.Println(s)
			return nil
		}
		return errors.Wrap(os.WriteFile(buildOut, []byte(s+"\n"), 0644), "write transaction")
	},
}

var txMinersFeeCmd = &cobra.Command{
	Use:   "miners-fee",
	Short: "Posts a miner's fee transaction paying the key's own address",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := prover.Load(cfg.ParamsDir)
		if err != nil {
			return err
		}
		sk, err := types.SpendingKeyFromHex(minerKey)
		if err != nil {
			return err
		}
		value, err := types.ParseAmount(buildValue)
		if err != nil {
			return err
		}
		p, err := transaction.NewProposedTransaction(transaction.LatestTransactionVersion, params)
		if err != nil {
			return err
		}
		note := types.NewNote(sk.PublicAddress(), value, "", types.NativeAssetID(), sk.PublicAddress().Owner)
		if err := p.AddOutput(note); err != nil {
			return err
		}
		tx, err := p.PostMinersFee(sk)
		if err != nil {
			return err
		}
		return writePosted(tx, buildOut)
	},
}

func formatFee(fee int64) string {
	if fee < 0 {
		return "-" + types.FormatAmount(uint64(-fee))
	}
	return types.FormatAmount(uint64(fee))
}

func writePosted(tx *transaction.Transaction, path string) error {
	s := hex.EncodeToString(tx.Serialize())
	if path == "" {
		fmt.Println(s)
		return nil
	}
	return errors.Wrap(os.WriteFile(path, []byte(s+"\n"), 0644), "write transaction")
}

func init() {
	txBuildMintCmd.Flags().StringVar(&buildPGK, "pgk", "", "proof generation key hex")
	txBuildMintCmd.Flags().StringVar(&buildVK, "vk", "", "view key hex")
	txBuildMintCmd.Flags().StringVar(&buildOVK, "ovk", "", "outgoing view key hex")
	txBuildMintCmd.Flags().StringVar(&buildAddress, "address", "", "account address hex")
	txBuildMintCmd.Flags().StringVar(&buildName, "name", "", "asset name")
	txBuildMintCmd.Flags().StringVar(&buildMeta, "metadata", "", "asset metadata")
	txBuildMintCmd.Flags().StringVar(&buildValue, "value", "", "amount to mint")
	txBuildMintCmd.Flags().Uint32Var(&buildExpiry, "expiration", 0, "last sequence the transaction is valid for (0 never expires)")
	txBuildMintCmd.Flags().StringVar(&buildOut, "out", "", "file for the unsigned transaction hex (stdout when empty)")
	for _, f := range []string{"pgk", "vk", "ovk", "address", "name", "value"} {
		_ = txBuildMintCmd.MarkFlagRequired(f)
	}

	txMinersFeeCmd.Flags().StringVar(&minerKey, "key", "", "spending key hex of the miner")
	txMinersFeeCmd.Flags().StringVar(&buildValue, "value", "", "block reward")
	txMinersFeeCmd.Flags().StringVar(&buildOut, "out", "", "file for the posted transaction hex (stdout when empty)")
	_ = txMinersFeeCmd.MarkFlagRequired("key")
	_ = txMinersFeeCmd.MarkFlagRequired("value")

	txCmd.AddCommand(txBuildMintCmd)
	txCmd.AddCommand(txMinersFeeCmd)
	txCmd.AddCommand(txInspectCmd)
	txCmd.AddCommand(txVerifyCmd)
}
