package state

import (
	"fmt"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
)

// VerifyChain walks a snapshot of the chain and reports its integrity. The
// lock is only held to copy the block slice so writers are not stalled by a
// long walk. Inconsistency is reported, never returned as an error.
func (l *Ledger) VerifyChain() database.Report {
	blocks := l.Blocks()

	report := database.VerifyBlocks(blocks, l.genesis.Difficulty)
	l.evHandler("state: VerifyChain: blocks[%d]: valid[%t]", report.TotalBlocks, report.IsValid)

	return report
}

// Blocks returns a copy of the chain.
func (l *Ledger) Blocks() []database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]database.Block, len(l.blocks))
	copy(blocks, l.blocks)

	return blocks
}

// BlocksRange returns a copy of the blocks from index from to index to
// inclusive. The range is clamped to the chain.
func (l *Ledger) BlocksRange(from uint64, to uint64) []database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	l64 := uint64(len(l.blocks))
	if from > to || from >= l64 {
		return nil
	}
	if to >= l64 {
		to = l64 - 1
	}

	blocks := make([]database.Block, to-from+1)
	copy(blocks, l.blocks[from:to+1])

	return blocks
}

// Length returns the number of blocks in the chain, genesis included.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.blocks)
}

// LatestBlock returns the last sealed block.
func (l *Ledger) LatestBlock() (database.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.blocks) == 0 {
		return database.Block{}, ErrChainNotInitialized
	}

	return l.blocks[len(l.blocks)-1], nil
}

// BlockByIndex returns the block at the specified index.
func (l *Ledger) BlockByIndex(index uint64) (database.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.blocks)) {
		return database.Block{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}

	return l.blocks[index], nil
}

// BlockByHash returns the block sealed with the specified hash. This is the
// lookup behind the cross-reference clinical records keep.
func (l *Ledger) BlockByHash(hash string) (database.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	index, exists := l.byHash[hash]
	if !exists {
		return database.Block{}, fmt.Errorf("%w: hash %s", ErrNotFound, hash)
	}

	return l.blocks[index], nil
}
