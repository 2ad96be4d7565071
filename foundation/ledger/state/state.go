// Package state is the core API for the audit ledger and implements the
// genesis, append and verification rules over the chain of sealed blocks.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/genesis"
	"github.com/clinicaudit/ledger/foundation/ledger/storage/memory"
)

// Set of error variables for ledger operations.
var (
	ErrChainNotInitialized = errors.New("chain not initialized")
	ErrShutdown            = errors.New("ledger is shut down")
	ErrInvalidRecordType   = errors.New("invalid record type")
	ErrInvalidSubject      = errors.New("subject id is not valid UTF-8")
	ErrNotFound            = errors.New("block not found")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for sealing blocks off the calling goroutine.
// Mine must block until the block is sealed.
type Worker interface {
	Shutdown()
	Mine(block database.Block, difficulty uint) (database.Block, error)
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis   genesis.Genesis
	Storage   database.Storage
	EvHandler EventHandler
}

// Ledger manages the chain of sealed blocks. It is constructed once per
// process and shared by reference with every caller.
type Ledger struct {
	evHandler EventHandler
	genesis   genesis.Genesis
	storage   database.Storage

	// appendMu serializes Initialize and RecordEvent end to end, hashing and
	// mining included. mu guards the block slice and is only held briefly.
	appendMu    sync.Mutex
	mu          sync.RWMutex
	initialized bool
	shutdown    bool
	blocks      []database.Block
	byHash      map[string]uint64

	Worker Worker
}

// New constructs a ledger for use. The chain is empty until Initialize is
// called.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Without a configured storage the chain only lives in memory.
	strg := cfg.Storage
	if strg == nil {
		var err error
		if strg, err = memory.New(); err != nil {
			return nil, err
		}
	}

	l := Ledger{
		evHandler: ev,
		genesis:   cfg.Genesis,
		storage:   strg,
		byHash:    make(map[string]uint64),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// to dispatch mining. Until then blocks are mined on the caller's G.

	return &l, nil
}

// Initialize produces the genesis block exactly once. If the storage already
// holds a chain it is loaded instead and no new genesis is mined. Calling
// Initialize again is a no-op.
func (l *Ledger) Initialize() error {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	if l.isInitialized() {
		return nil
	}

	l.evHandler("state: Initialize: started")
	defer l.evHandler("state: Initialize: completed")

	blocks, err := database.ReadAll(l.storage)
	if err != nil {
		return fmt.Errorf("reading storage: %w", err)
	}

	if len(blocks) > 0 {
		report := database.VerifyBlocks(blocks, l.genesis.Difficulty)
		l.evHandler("state: Initialize: loaded blocks[%d]: valid[%t]", len(blocks), report.IsValid)
		if !report.IsValid {
			l.evHandler("state: Initialize: WARNING: stored chain fails verification: %s", report.Reason)
		}

		l.mu.Lock()
		for i, b := range blocks {
			l.byHash[b.Hash] = uint64(i)
		}
		l.blocks = blocks
		l.initialized = true
		l.mu.Unlock()

		return nil
	}

	date := l.genesis.Date
	if date.IsZero() {
		date = database.Timestamp()
	}

	block, err := l.mine(database.NewGenesis(date))
	if err != nil {
		return err
	}

	if err := l.storage.Write(database.NewBlockData(block)); err != nil {
		return fmt.Errorf("persisting genesis: %w", err)
	}

	l.mu.Lock()
	l.blocks = []database.Block{block}
	l.byHash[block.Hash] = 0
	l.initialized = true
	l.mu.Unlock()

	l.evHandler("state: Initialize: genesis sealed: %s", block)

	return nil
}

// Shutdown cleanly brings the ledger down. Appends in flight complete first.
func (l *Ledger) Shutdown() error {
	l.evHandler("state: Shutdown: started")
	defer l.evHandler("state: Shutdown: completed")

	// Stop the mining worker so no new work is accepted.
	if l.Worker != nil {
		l.Worker.Shutdown()
	}

	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	l.mu.Lock()
	l.shutdown = true
	l.mu.Unlock()

	return l.storage.Close()
}

// Difficulty returns the number of leading zeros a block hash requires.
func (l *Ledger) Difficulty() uint {
	return l.genesis.Difficulty
}

// RetrieveGenesis returns the genesis configuration of the ledger.
func (l *Ledger) RetrieveGenesis() genesis.Genesis {
	return l.genesis
}

// =============================================================================

// mine seals the block on the worker when one is registered.
func (l *Ledger) mine(block database.Block) (database.Block, error) {
	if l.Worker != nil {
		return l.Worker.Mine(block, l.genesis.Difficulty)
	}

	block.MineWithEvents(l.genesis.Difficulty, l.evHandler)
	return block, nil
}

func (l *Ledger) isInitialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.initialized
}
