// Package worker implements the mining workflow for the ledger. Sealing a
// block is CPU bound, so it runs on a dedicated goroutine while the caller
// blocks on the result. This keeps request serving goroutines free.
package worker

import (
	"sync"

	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/state"
)

// maxMiningRequests represents the max number of pending mining requests
// that can be queued. The ledger serializes its appends, so in practice only
// one request is ever in flight.
const maxMiningRequests = 1

// =============================================================================

// request is a block to seal and where to send the sealed result.
type request struct {
	block      database.Block
	difficulty uint
	result     chan database.Block
}

// Worker manages the mining workflow for the ledger.
type Worker struct {
	wg        sync.WaitGroup
	shut      chan struct{}
	once      sync.Once
	mu        sync.RWMutex
	closed    bool
	requests  chan request
	evHandler state.EventHandler
}

// Run creates a worker, registers it with the ledger, and starts the
// mining goroutine.
func Run(ledger *state.Ledger, evHandler state.EventHandler) *Worker {
	w := New(evHandler)

	// Register this worker with the ledger so appends are dispatched here.
	ledger.Worker = w

	return w
}

// New constructs a worker and starts the mining goroutine. Run should be
// preferred unless the worker is being used without a ledger.
func New(evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		shut:      make(chan struct{}),
		requests:  make(chan request, maxMiningRequests),
		evHandler: evHandler,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutine performing work. A block being mined
// is finished first.
func (w *Worker) Shutdown() {
	w.once.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		// Once closed is set no new request can be queued, so the mining
		// goroutine only needs to drain what is already buffered.
		w.evHandler("worker: shutdown: terminate goroutines")
		w.mu.Lock()
		w.closed = true
		close(w.shut)
		w.mu.Unlock()

		w.wg.Wait()
	})
}

// Mine hands the block to the mining goroutine and blocks until it comes
// back sealed. It fails only if the worker has been shut down.
func (w *Worker) Mine(block database.Block, difficulty uint) (database.Block, error) {
	req := request{
		block:      block,
		difficulty: difficulty,
		result:     make(chan database.Block, 1),
	}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return database.Block{}, state.ErrShutdown
	}
	w.requests <- req
	w.mu.RUnlock()

	// Once the request is queued, wait for it even if a shutdown begins.
	// The mining goroutine drains queued requests before it exits.
	return <-req.result, nil
}

// =============================================================================

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.requests:
			w.runMiningOperation(req)

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")

			// Complete anything already queued so no caller is left waiting.
			for {
				select {
				case req := <-w.requests:
					w.runMiningOperation(req)
				default:
					return
				}
			}
		}
	}
}

// runMiningOperation seals the block in the request and sends it back.
func (w *Worker) runMiningOperation(req request) {
	w.evHandler("worker: runMiningOperation: MINING: started: blk[%d]", req.block.Header.Index)
	defer w.evHandler("worker: runMiningOperation: MINING: completed: blk[%d]", req.block.Header.Index)

	block := req.block
	block.MineWithEvents(req.difficulty, w.evHandler)

	req.result <- block
}
