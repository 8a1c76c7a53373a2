// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/genesis"
	"github.com/toychain/utxonode/foundation/blockchain/mempool"
	"github.com/toychain/utxonode/foundation/blockchain/peer"
)

// Set of error variables for the state package.
var (
	ErrShutdown        = errors.New("node is shutting down")
	ErrPeerUnreachable = errors.New("peer unreachable")
)

// defaultSendTimeout bounds every request made to a peer.
const defaultSendTimeout = 3 * time.Second

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for peer replication and snapshot persistence.
type Worker interface {
	Shutdown()
	SignalShareTx(tx database.Tx)
	SignalShareBlock(block database.Block)
	SignalSnapshot()
}

// Storage interface represents the behavior required to be implemented by
// any package providing a durable copy of the chain. Both calls are upserts
// keyed by block hash and transaction id.
type Storage interface {
	InsertBlock(block database.Block) error
	UpsertMempool(pending []database.Tx) error
	Close() error
}

// Verifier checks transactions received from peers before they enter the
// mempool. Signatures are opaque to the ledger so the default accepts all.
type Verifier interface {
	Verify(tx database.Tx) error
}

// AcceptAll is the default Verifier.
type AcceptAll struct{}

// Verify implements the Verifier interface.
func (AcceptAll) Verify(database.Tx) error { return nil }

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host        string
	Genesis     genesis.Genesis
	KnownPeers  *peer.PeerSet
	Storage     Storage
	Verifier    Verifier
	SendTimeout time.Duration
	EvHandler   EventHandler
}

// task is a unit of work for the writer goroutine.
type task struct {
	fn   func() error
	done chan error
}

// State manages the blockchain database. Every mutation runs on a single
// writer goroutine which holds the write lock while it applies the change.
type State struct {
	mu         sync.RWMutex
	host       string
	evHandler  EventHandler
	adjustedAt int

	genesis    genesis.Genesis
	knownPeers *peer.PeerSet
	db         *database.Database
	mempool    *mempool.Mempool
	storage    Storage
	verifier   Verifier
	client     peerClient

	tasks    chan task
	shut     chan struct{}
	shutOnce sync.Once
	wg       sync.WaitGroup

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = AcceptAll{}
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	state := State{
		host:       cfg.Host,
		evHandler:  ev,
		adjustedAt: -1,

		genesis:    cfg.Genesis,
		knownPeers: knownPeers,
		db:         database.New(cfg.Genesis),
		mempool:    mempool.New(),
		storage:    cfg.Storage,
		verifier:   verifier,
		client:     newPeerClient(timeout),

		tasks: make(chan task),
		shut:  make(chan struct{}),

		Worker: nopWorker{},
	}

	// The Worker is replaced by the call to worker.Run which registers
	// itself with the state.

	state.persistChain()

	state.wg.Add(1)
	go state.writer()

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all replication and snapshot activity.
	s.Worker.Shutdown()

	s.shutOnce.Do(func() {
		close(s.shut)
	})
	s.wg.Wait()

	if s.storage != nil {
		return s.storage.Close()
	}

	return nil
}

// =============================================================================

// writer applies the queued mutations one at a time.
func (s *State) writer() {
	defer s.wg.Done()

	for {
		select {
		case t := <-s.tasks:
			s.mu.Lock()
			err := t.fn()
			s.mu.Unlock()
			t.done <- err

		case <-s.shut:
			return
		}
	}
}

// write hands the function to the writer goroutine and waits for the
// result.
func (s *State) write(fn func() error) error {
	t := task{
		fn:   fn,
		done: make(chan error, 1),
	}

	select {
	case s.tasks <- t:
	case <-s.shut:
		return ErrShutdown
	}

	return <-t.done
}

// =============================================================================

// persistBlock hands the committed block and the remaining mempool to the
// durable store. Failures are reported and never undo the commit.
func (s *State) persistBlock(block database.Block) {
	if s.storage == nil {
		return
	}

	if err := s.storage.InsertBlock(block); err != nil {
		s.evHandler("state: persistBlock: ERROR: %s: %s", database.ErrPersistence, err)
	}
	s.persistMempool()
}

// persistChain hands every block and the mempool to the durable store.
// Inserts are keyed by hash so blocks already stored are overwritten.
func (s *State) persistChain() {
	if s.storage == nil {
		return
	}

	for _, block := range s.db.Blocks() {
		if err := s.storage.InsertBlock(block); err != nil {
			s.evHandler("state: persistChain: ERROR: %s: %s", database.ErrPersistence, err)
			return
		}
	}
	s.persistMempool()
}

// persistMempool hands the pending transactions to the durable store.
func (s *State) persistMempool() {
	if s.storage == nil {
		return
	}

	if err := s.storage.UpsertMempool(s.mempool.Copy()); err != nil {
		s.evHandler("state: persistMempool: ERROR: %s: %s", database.ErrPersistence, err)
	}
}

// nopWorker is used until a real worker registers with the state.
type nopWorker struct{}

func (nopWorker) Shutdown()                       {}
func (nopWorker) SignalShareTx(database.Tx)       {}
func (nopWorker) SignalShareBlock(database.Block) {}
func (nopWorker) SignalSnapshot()                 {}
