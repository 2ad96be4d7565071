package cmd

import (
	"fmt"
	"io"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/digest"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/leveldb"
	"github.com/spf13/cobra"
)

var (
	subjectID string
	blockHash string
)

// hashIndex is implemented by storage that can find a block by its hash
// without walking the chain.
type hashIndex interface {
	GetBlockByHash(hash string) (database.BlockData, error)
}

// blocksCmd represents the blocks command
var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Print the stored chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if blockHash != "" {
			b, err := findBlock(blockHash)
			if err != nil {
				return err
			}
			return printBlocks(cmd.OutOrStdout(), []database.Block{b}, "")
		}

		blocks, _, err := loadChain()
		if err != nil {
			return err
		}

		return printBlocks(cmd.OutOrStdout(), blocks, subjectID)
	},
}

func init() {
	blocksCmd.Flags().StringVar(&subjectID, "subject", "", "Only print blocks for this subject id.")
	blocksCmd.Flags().StringVar(&blockHash, "hash", "", "Only print the block with this hash.")
	rootCmd.AddCommand(blocksCmd)
}

// findBlock locates a block by hash, using the storage hash index when
// there is one.
func findBlock(hash string) (database.Block, error) {
	if !digest.IsHex(hash) {
		return database.Block{}, fmt.Errorf("hash %q is not a sha256 hex digest", hash)
	}

	strg, err := openStorage()
	if err != nil {
		return database.Block{}, err
	}
	defer strg.Close()

	if hi, ok := strg.(hashIndex); ok {
		blockData, err := hi.GetBlockByHash(hash)
		switch {
		case leveldb.IsNotFound(err):
			return database.Block{}, fmt.Errorf("block %s not found", hash)
		case err != nil:
			return database.Block{}, err
		}
		return database.ToBlock(blockData), nil
	}

	blocks, err := database.ReadAll(strg)
	if err != nil {
		return database.Block{}, err
	}

	for _, b := range blocks {
		if b.Hash == hash {
			return b, nil
		}
	}

	return database.Block{}, fmt.Errorf("block %s not found", hash)
}
func printBlocks(w io.Writer, blocks []database.Block, subject string) error {
	for _, b := range blocks {
		if subject != "" && b.Header.SubjectID != subject {
			continue
		}

		h := b.Header
		if _, err := fmt.Fprintf(w, "%d  %s  %-13s  %-10s  %s\n", h.Index, h.TimeStamp.Format("2006-01-02T15:04:05Z07:00"), h.RecordType, h.SubjectID, b.Hash); err != nil {
			return err
		}
	}

	return nil
}
