// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(tx database.SignedTx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Beneficiary string
	Host        string
	Genesis     genesis.Genesis
	KnownPeers  *peer.PeerSet
	EvHandler   EventHandler
}

// State manages the blockchain node: the ledger, the pool of pending
// transactions and the set of known peers.
type State struct {
	mu          sync.Mutex
	resyncWG    sync.WaitGroup
	allowMining bool

	beneficiary string
	host        string
	evHandler   EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	ledger     *ledger.Ledger

	Worker Worker
}

// New constructs a new blockchain node holding only the genesis block. A
// transaction creating the beneficiary's account is queued so the first
// block mined by this node pays its reward.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if !signature.IsAddress(cfg.Beneficiary) {
		return nil, fmt.Errorf("invalid beneficiary address %q", cfg.Beneficiary)
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	gen := cfg.Genesis
	if gen.MineRateMS == 0 {
		gen = genesis.Default()
	}

	state := State{
		allowMining: true,
		beneficiary: cfg.Beneficiary,
		host:        cfg.Host,
		evHandler:   ev,

		knownPeers: knownPeers,
		genesis:    gen,
		mempool:    mempool.New(),
		ledger:     ledger.New(gen, ev),

		// The worker.Run call replaces this with the real worker.
		Worker: noopWorker{},
	}

	tx, err := database.NewCreateAccountTx(database.NewAccount(cfg.Beneficiary, gen.StartingBalance, nil))
	if err != nil {
		return nil, err
	}
	state.mempool.Upsert(tx)

	ev("state: New: beneficiary[%s]: queued account creation: tx[%s]", cfg.Beneficiary, tx)

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure a resync in flight is finished.
	s.resyncWG.Wait()

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// IsMiningAllowed identifies if we are allowed to mine blocks. This
// might be turned off if the blockchain needs to be resynced.
func (s *State) IsMiningAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allowMining
}

// =============================================================================

// noopWorker is used until a real worker registers itself.
type noopWorker struct{}

func (noopWorker) Shutdown() {}
func (noopWorker) Sync() {}
func (noopWorker) SignalStartMining() {}
func (noopWorker) SignalCancelMining() (done func()) { return func() {} }
func (noopWorker) SignalShareTx(tx database.SignedTx) {}
