package cmd

import (
	"fmt"
	"strings"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/state"
)

// checkCheckpoint confirms the checkpoint was signed by its stated signer
// and that the stored chain still holds the head it recorded.
func checkCheckpoint(scp state.SignedCheckpoint, blocks []database.Block, signer string) error {
	recovered, err := scp.Validate()
	if err != nil {
		return fmt.Errorf("checkpoint signature: %w", err)
	}

	if !strings.EqualFold(recovered, scp.Signer) {
		return fmt.Errorf("checkpoint signed by %s, claims %s", recovered, scp.Signer)
	}

	if signer != "" && !strings.EqualFold(recovered, signer) {
		return fmt.Errorf("checkpoint signed by %s, expected %s", recovered, signer)
	}

	if scp.HeadIndex >= uint64(len(blocks)) {
		return fmt.Errorf("chain has %d blocks, checkpoint head is %d", len(blocks), scp.HeadIndex)
	}

	if got := blocks[scp.HeadIndex].Hash; got != scp.HeadHash {
		return fmt.Errorf("block %d hash %s does not match checkpoint %s", scp.HeadIndex, got, scp.HeadHash)
	}

	return nil
}
