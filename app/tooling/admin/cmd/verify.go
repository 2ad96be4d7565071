package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/spf13/cobra"
)

var verifyJSON bool

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the stored chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		blocks, d, err := loadChain()
		if err != nil {
			return err
		}

		report := database.VerifyBlocks(blocks, d)
		if err := printReport(cmd.OutOrStdout(), report, verifyJSON); err != nil {
			return err
		}

		if !report.IsValid {
			return fmt.Errorf("chain failed verification")
		}

		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Print the report as JSON.")
	rootCmd.AddCommand(verifyCmd)
}

func printReport(w io.Writer, report database.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if report.IsValid {
		_, err := fmt.Fprintf(w, "VALID: %d blocks\n", report.TotalBlocks)
		return err
	}

	broken := "none"
	if report.BrokenAtIndex != nil {
		broken = fmt.Sprint(*report.BrokenAtIndex)
	}

	_, err := fmt.Fprintf(w, "INVALID: %d blocks: broken at %s: %s\n", report.TotalBlocks, broken, report.Reason)
	return err
}
