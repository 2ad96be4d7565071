package state

import (
	"fmt"
	"unicode/utf8"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/digest"
)

// RecordEvent fingerprints the payload and appends a sealed block carrying
// that fingerprint. The call blocks until the block is mined and appended.
// The returned block's hash is what the caller keeps as a cross-reference.
func (l *Ledger) RecordEvent(subjectID string, recordType database.RecordType, payload any) (database.Block, error) {
	if !recordType.IsValid() {
		return database.Block{}, fmt.Errorf("%w: %q", ErrInvalidRecordType, recordType)
	}

	if !utf8.ValidString(subjectID) {
		return database.Block{}, fmt.Errorf("%w: %q", ErrInvalidSubject, subjectID)
	}

	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	l.mu.RLock()
	initialized, shutdown := l.initialized, l.shutdown
	index := uint64(len(l.blocks))
	var prevBlock database.Block
	if initialized {
		prevBlock = l.blocks[index-1]
	}
	l.mu.RUnlock()

	switch {
	case shutdown:
		return database.Block{}, ErrShutdown
	case !initialized:
		return database.Block{}, ErrChainNotInitialized
	}

	dataHash, err := digest.Hash(payload)
	if err != nil {
		return database.Block{}, fmt.Errorf("fingerprint payload: %w", err)
	}

	block := database.NewBlock(prevBlock, subjectID, recordType, dataHash, database.Timestamp())
	block.Header.Index = index

	block, err = l.mine(block)
	if err != nil {
		return database.Block{}, err
	}

	// Write to storage first so a failed write never leaves a block in
	// memory that the mirror doesn't have.
	if err := l.storage.Write(database.NewBlockData(block)); err != nil {
		return database.Block{}, fmt.Errorf("persisting block %d: %w", block.Header.Index, err)
	}

	l.mu.Lock()
	l.blocks = append(l.blocks, block)
	l.byHash[block.Hash] = index
	l.mu.Unlock()

	l.evHandler("state: RecordEvent: appended: %s", block)

	return block, nil
}
