package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/clinicaudit/ledger/foundation/ledger/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var keyPath string

// genkeyCmd represents the genkey command
var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate the node's checkpoint signing key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(keyPath); err == nil {
			return fmt.Errorf("key %s already exists", keyPath)
		}

		privateKey, err := crypto.GenerateKey()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
			return err
		}

		if err := crypto.SaveECDSA(keyPath, privateKey); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), signature.Address(privateKey))
		return nil
	},
}

func init() {
	genkeyCmd.Flags().StringVarP(&keyPath, "key", "k", "zblock/node.ecdsa", "Path to write the private key.")
	rootCmd.AddCommand(genkeyCmd)
}
