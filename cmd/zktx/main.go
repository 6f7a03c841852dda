package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kysee/zktx/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "zktx",
	Short: "Shielded transaction tooling",
	Long: `zktx builds, signs, inspects and verifies shielded transactions.
It also runs the trusted-dealer split and the signing rounds of a
threshold (FROST) account.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		_, err = cfg.CreateLogger()
		return err
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config file")

	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(multisigCmd)
	rootCmd.AddCommand(txCmd)
}

// readHexFile reads a file holding one hex string.
func readHexFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read hex file")
	}
	return strings.TrimSpace(string(b)), nil
}

// splitPair splits "id:value" flag values.
func splitPair(s string, parts int) ([]string, error) {
	out := strings.Split(s, ":")
	if len(out) != parts {
		return nil, errors.Errorf("expected %d colon separated fields in %q", parts, s)
	}
	return out, nil
}
