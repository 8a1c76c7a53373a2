// Package worker implements peer replication and snapshot persistence for
// the blockchain.
package worker

import (
	"sync"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/state"
)

// Config represents the settings for the background operations.
type Config struct {
	SnapshotPath string
	SyncOnStart  bool
}

// Worker manages the replication and persistence workflows for the
// blockchain.
type Worker struct {
	state        *state.State
	cfg          Config
	wg           sync.WaitGroup
	shut         chan struct{}
	shutOnce     sync.Once
	txSharing    chan database.Tx
	blockSharing chan database.Block
	snapshots    chan bool
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config, evHandler state.EventHandler) *Worker {
	w := Worker{
		state:        st,
		cfg:          cfg,
		shut:         make(chan struct{}),
		txSharing:    make(chan database.Tx, maxTxShareRequests),
		blockSharing: make(chan database.Block, maxBlockShareRequests),
		snapshots:    make(chan bool, 1),
		evHandler:    evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	if cfg.SyncOnStart {
		w.Sync()
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.shareTxOperations,
		w.shareBlockOperations,
		w.snapshotOperations,
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

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work. A final snapshot is
// written before returning.
func (w *Worker) Shutdown() {
	w.shutOnce.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.wg.Wait()

		w.runSnapshotOperation()
	})
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// SignalShareBlock signals a share block operation. If
// maxBlockShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareBlock(block database.Block) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share block signaled")
	default:
		w.evHandler("worker: SignalShareBlock: queue full, block won't be shared.")
	}
}

// SignalSnapshot signals a snapshot write. If there is already a signal
// pending in the channel, just return since a snapshot will be written.
func (w *Worker) SignalSnapshot() {
	select {
	case w.snapshots <- true:
	default:
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
