package main

import (
	"fmt"

	"github.com/kysee/zktx/prover"
	"github.com/spf13/cobra"
)

var (
	setupDepth int
	setupOut   string
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Manages the proving and verifying keys",
}

var paramsSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Compiles the circuits and runs the Groth16 setup",
	Long: `Compiles the spend, output and mint circuits for a note tree depth and
writes their proving and verifying keys. The setup is not a ceremony: the
toxic waste is known to this process, so the keys are for development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		depth := cfg.TreeDepth
		if cmd.Flags().Changed("depth") {
			depth = setupDepth
		}
		dir := cfg.ParamsDir
		if setupOut != "" {
			dir = setupOut
		}
		params, err := prover.Setup(depth)
		if err != nil {
			return err
		}
		if err := params.Save(dir); err != nil {
			return err
		}
		fmt.Printf("wrote parameters for tree depth %d to %s\n", depth, dir)
		return nil
	},
}

var exportOut string

var paramsExportCmd = &cobra.Command{
	Use:   "export-solidity",
	Short: "Writes Solidity verifier contracts for the stored keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := prover.Load(cfg.ParamsDir)
		if err != nil {
			return err
		}
		files, err := params.ExportSolidity(exportOut)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("Solidity verifier generated: %s\n", f)
		}
		return nil
	},
}

func init() {
	paramsSetupCmd.Flags().IntVar(&setupDepth, "depth", prover.DefaultTreeDepth, "note tree depth, overrides the config file")
	paramsSetupCmd.Flags().StringVar(&setupOut, "out", "", "output directory, overrides the config file")

	paramsExportCmd.Flags().StringVar(&exportOut, "out", "contracts", "directory for the contracts")

	paramsCmd.AddCommand(paramsSetupCmd)
	paramsCmd.AddCommand(paramsExportCmd)
}
