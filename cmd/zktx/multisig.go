package main

import (
	crand "crypto/rand"
	"fmt"
	"os"

	"github.com/kysee/zktx/frost"
	"github.com/kysee/zktx/transaction"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	keyPackageHex       string
	publicKeyPackageHex string
	noncesPath          string
	unsignedPath        string
	signingPackageHex   string
	commitmentArgs      []string
	shareArgs           []string
	postedOut           string
)

var multisigCmd = &cobra.Command{
	Use:   "multisig",
	Short: "Runs the rounds of a threshold signature over an unsigned transaction",
	Long: `Runs the rounds of a threshold signature:
commit     each signer draws nonces and publishes commitments
package    the coordinator binds the commitments to the transaction
sign       each signer produces a signature share
aggregate  the coordinator combines shares into the posted transaction`,
}

var multisigCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Draws signing nonces and prints the commitments to publish",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := frost.KeyPackageFromHex(keyPackageHex)
		if err != nil {
			return err
		}
		nonces, commitments, err := frost.Commit(crand.Reader, kp)
		if err != nil {
			return err
		}
		bz, err := nonces.Marshal()
		if err != nil {
			return err
		}
		if err := os.WriteFile(noncesPath, bz, 0600); err != nil {
			return errors.Wrap(err, "write nonces")
		}
		fmt.Printf("identifier: %s\n", kp.Identifier.Hex())
		fmt.Printf("commitment: %s:%x:%x\n", kp.Identifier.Hex(), commitments.Hiding.Bytes(), commitments.Binding.Bytes())
		return nil
	},
}

var multisigPackageCmd = &cobra.Command{
	Use:   "package",
	Short: "Builds the signing package from the signers' commitments",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := readUnsigned(unsignedPath)
		if err != nil {
			return err
		}
		commitments := make(map[string]transaction.CommitmentHex, len(commitmentArgs))
		for _, arg := range commitmentArgs {
			f, err := splitPair(arg, 3)
			if err != nil {
				return err
			}
			commitments[f[0]] = transaction.CommitmentHex{Hiding: f[1], Binding: f[2]}
		}
		sp, err := u.SigningPackageFromHex(commitments)
		if err != nil {
			return err
		}
		fmt.Println(sp)
		return nil
	},
}

var multisigSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Signs the signing package with stored nonces, then deletes them",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := frost.KeyPackageFromHex(keyPackageHex)
		if err != nil {
			return err
		}
		u, err := readUnsigned(unsignedPath)
		if err != nil {
			return err
		}
		sp, err := frost.SigningPackageFromHex(signingPackageHex)
		if err != nil {
			return err
		}
		bz, err := os.ReadFile(noncesPath)
		if err != nil {
			return errors.Wrap(err, "read nonces")
		}
		nonces, err := frost.UnmarshalSigningNonces(bz)
		if err != nil {
			return err
		}
		// nonces are single use whatever the outcome
		if err := os.Remove(noncesPath); err != nil {
			return errors.Wrap(err, "remove nonces")
		}

		share, err := u.SignatureShare(frost.RestoreSigningSession(kp, nonces), sp)
		if err != nil {
			return err
		}
		fmt.Printf("share: %s:%s\n", kp.Identifier.Hex(), share.Hex())
		return nil
	},
}

var multisigAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregates signature shares into the posted transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := readUnsigned(unsignedPath)
		if err != nil {
			return err
		}
		shares := make(map[string]string, len(shareArgs))
		for _, arg := range shareArgs {
			f, err := splitPair(arg, 2)
			if err != nil {
				return err
			}
			shares[f[0]] = f[1]
		}
		tx, err := u.SignFrostFromHex(publicKeyPackageHex, signingPackageHex, shares)
		if err != nil {
			return err
		}
		return writePosted(tx, postedOut)
	},
}

func readUnsigned(path string) (*transaction.UnsignedTransaction, error) {
	s, err := readHexFile(path)
	if err != nil {
		return nil, err
	}
	return transaction.UnsignedTransactionFromHex(s)
}

func init() {
	multisigCommitCmd.Flags().StringVar(&keyPackageHex, "key-package", "", "key package hex")
	multisigCommitCmd.Flags().StringVar(&noncesPath, "nonces", "nonces.bin", "file to keep the nonces in until signing")
	_ = multisigCommitCmd.MarkFlagRequired("key-package")

	multisigPackageCmd.Flags().StringVar(&unsignedPath, "tx", "", "file holding the unsigned transaction hex")
	multisigPackageCmd.Flags().StringArrayVar(&commitmentArgs, "commitment", nil, "identifier:hiding:binding, repeated per signer")
	_ = multisigPackageCmd.MarkFlagRequired("tx")

	multisigSignCmd.Flags().StringVar(&keyPackageHex, "key-package", "", "key package hex")
	multisigSignCmd.Flags().StringVar(&noncesPath, "nonces", "nonces.bin", "file written by commit")
	multisigSignCmd.Flags().StringVar(&unsignedPath, "tx", "", "file holding the unsigned transaction hex")
	multisigSignCmd.Flags().StringVar(&signingPackageHex, "package", "", "signing package hex")
	_ = multisigSignCmd.MarkFlagRequired("key-package")
	_ = multisigSignCmd.MarkFlagRequired("tx")
	_ = multisigSignCmd.MarkFlagRequired("package")

	multisigAggregateCmd.Flags().StringVar(&unsignedPath, "tx", "", "file holding the unsigned transaction hex")
	multisigAggregateCmd.Flags().StringVar(&publicKeyPackageHex, "public-key-package", "", "public key package hex")
	multisigAggregateCmd.Flags().StringVar(&signingPackageHex, "package", "", "signing package hex")
	multisigAggregateCmd.Flags().StringArrayVar(&shareArgs, "share", nil, "identifier:share, repeated per signer")
	multisigAggregateCmd.Flags().StringVar(&postedOut, "out", "", "file for the posted transaction hex (stdout when empty)")
	_ = multisigAggregateCmd.MarkFlagRequired("tx")
	_ = multisigAggregateCmd.MarkFlagRequired("public-key-package")
	_ = multisigAggregateCmd.MarkFlagRequired("package")

	multisigCmd.AddCommand(multisigCommitCmd)
	multisigCmd.AddCommand(multisigPackageCmd)
	multisigCmd.AddCommand(multisigSignCmd)
	multisigCmd.AddCommand(multisigAggregateCmd)
}
