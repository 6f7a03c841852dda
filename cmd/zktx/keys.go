package main

import (
	crand "crypto/rand"
	"fmt"

	"github.com/kysee/zktx/frost"
	"github.com/kysee/zktx/types"
	"github.com/spf13/cobra"
)

var (
	splitKeyHex     string
	splitMinSigners uint16
	splitMaxSigners uint16
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generates and splits spending keys",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generates a spending key and prints the keys derived from it",
	RunE: func(cmd *cobra.Command, args []string) error {
		sk := types.NewSpendingKey()
		printKeys(sk)
		return nil
	},
}

var keysSplitCmd = &cobra.Command{
	Use:   "split",
	Short: "Splits the authorizing key of a spending key into FROST key packages",
	Long: `Splits the authorizing key of a spending key with a trusted dealer.
Each participant receives one key package; any --min of them can
authorize spends for the account. The public key package is shared with
the aggregator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sk, err := types.SpendingKeyFromHex(splitKeyHex)
		if err != nil {
			return err
		}
		packages, pkp, err := frost.SplitKey(crand.Reader, sk.AuthorizingKey(), splitMinSigners, splitMaxSigners)
		if err != nil {
			return err
		}
		printKeys(sk)
		for n := uint16(1); n <= splitMaxSigners; n++ {
			id, _ := frost.IdentifierFromUint16(n)
			fmt.Printf("key package %d:    %s\n", n, packages[id].Hex())
		}
		fmt.Printf("public key package: %s\n", pkp.Hex())
		return nil
	},
}

func printKeys(sk types.SpendingKey) {
	vk := sk.ViewKey()
	fmt.Printf("spending key:         %s\n", sk.Hex())
	fmt.Printf("address:              %s\n", sk.PublicAddress())
	fmt.Printf("address hex:          %s\n", sk.PublicAddress().Hex())
	fmt.Printf("proof generation key: %s\n", sk.ProofGenerationKey().Hex())
	fmt.Printf("view key:             %s\n", vk.Hex())
	fmt.Printf("incoming view key:    %s\n", vk.IncomingViewKey().Hex())
	fmt.Printf("outgoing view key:    %s\n", sk.OutgoingViewKey().Hex())
}

func init() {
	keysSplitCmd.Flags().StringVar(&splitKeyHex, "key", "", "spending key hex")
	keysSplitCmd.Flags().Uint16Var(&splitMinSigners, "min", 2, "signers needed to authorize")
	keysSplitCmd.Flags().Uint16Var(&splitMaxSigners, "max", 3, "key packages to create")
	_ = keysSplitCmd.MarkFlagRequired("key")

	keysCmd.AddCommand(keysNewCmd)
	keysCmd.AddCommand(keysSplitCmd)
}
