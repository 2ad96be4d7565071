package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clinicaudit/ledger/foundation/ledger/state"
	"github.com/spf13/cobra"
)

var expectSigner string

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <file>",
	Short: "Check a saved checkpoint against its signature and the stored chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var scp state.SignedCheckpoint
		if err := json.Unmarshal(data, &scp); err != nil {
			return fmt.Errorf("decoding checkpoint: %w", err)
		}

		blocks, _, err := loadChain()
		if err != nil {
			return err
		}

		if err := checkCheckpoint(scp, blocks, expectSigner); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "CHECKPOINT OK: head %d %s signed by %s\n", scp.HeadIndex, scp.HeadHash, scp.Signer)
		return nil
	},
}

func init() {
	checkpointCmd.Flags().StringVar(&expectSigner, "signer", "", "Address the checkpoint must be signed by.")
	rootCmd.AddCommand(checkpointCmd)
}
