// Package ledger maintains the chain of blocks and the world state produced
// by executing the transactions of those blocks in order.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// Set of errors returned by the ledger.
var (
	ErrChainSync    = errors.New("chain synchronization failed")
	ErrStateRoot    = errors.New("the state root must match the world state the block applies on top of")
	ErrGenesisBlock = errors.New("the genesis block can't be added to a chain")
)

// Pool represents the pending transactions that must be cleared once a block
// holding them is admitted.
type Pool interface {
	ClearBlockTransactions(series []database.SignedTx)
}

// =============================================================================

// Ledger manages the chain and the world state. All methods are safe for
// concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	genesis   genesis.Genesis
	chain     []database.Block
	db        *database.Database
	evHandler func(v string, args ...any)
}

// New constructs a ledger holding only the genesis block and an empty world
// state.
func New(gen genesis.Genesis, evHandler func(v string, args ...any)) *Ledger {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &Ledger{
		genesis:   gen,
		chain:     []database.Block{database.Genesis()},
		db:        database.New(),
		evHandler: evHandler,
	}
}

// AddBlock validates the block against the current head, executes its
// transactions against the world state and appends it to the chain. The
// transactions of the block are then removed from the pool. When anything
// fails, the chain and the world state are left untouched.
func (l *Ledger) AddBlock(block database.Block, pool Pool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.addBlock(block); err != nil {
		return err
	}

	if pool != nil {
		pool.ClearBlockTransactions(block.TransactionSeries)
	}

	return nil
}

// ReplaceChain replaces the local chain with the candidate when the candidate
// is longer and every one of its blocks validates and executes in order from
// genesis. The swap of chain and world state is all or nothing. Transactions
// included in the new chain are removed from the pool.
func (l *Ledger) ReplaceChain(candidate []database.Block, pool Pool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evHandler("ledger: ReplaceChain: started: local[%d]: candidate[%d]", len(l.chain), len(candidate))
	defer l.evHandler("ledger: ReplaceChain: completed")

	if len(candidate) <= len(l.chain) {
		return fmt.Errorf("%w: the incoming chain must be longer, local %d, candidate %d", ErrChainSync, len(l.chain), len(candidate))
	}

	if !candidate[0].IsGenesis() {
		return fmt.Errorf("%w: the incoming chain must start with the genesis block", ErrChainSync)
	}

	// Replay the candidate into a fresh ledger so nothing local changes
	// until every block has been accepted.
	fresh := New(l.genesis, l.evHandler)
	for _, block := range candidate[1:] {
		if err := fresh.addBlock(block); err != nil {
			l.evHandler("ledger: ReplaceChain: ERROR: blk[%d]: %s", block.Header.Number, err)
			return fmt.Errorf("%w: block %d: %w", ErrChainSync, block.Header.Number, err)
		}
	}

	l.chain = fresh.chain
	l.db = fresh.db

	if pool != nil {
		for _, block := range l.chain {
			pool.ClearBlockTransactions(block.TransactionSeries)
		}
	}

	l.evHandler("ledger: ReplaceChain: replaced: length[%d]: stateRoot[%s]", len(l.chain), l.db.StateRoot())

	return nil
}

// =============================================================================

// LatestBlock returns the head of the chain.
func (l *Ledger) LatestBlock() database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[len(l.chain)-1]
}

// Length returns the number of blocks in the chain, genesis included.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.chain)
}

// Chain returns a copy of the chain.
func (l *Ledger) Chain() []database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	chain := make([]database.Block, len(l.chain))
	copy(chain, l.chain)

	return chain
}

// Blocks returns the blocks numbered from through to, inclusive. Numbers
// past the head are ignored.
func (l *Ledger) Blocks(from uint64, to uint64) []database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	last := uint64(len(l.chain) - 1)
	if to > last {
		to = last
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		out = append(out, l.chain[i])
	}

	return out
}

// GetAccount returns the account stored under the key in the world state.
func (l *Ledger) GetAccount(key string) (database.Account, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.db.GetAccount(key)
}

// StateRoot returns the root hash of the world state.
func (l *Ledger) StateRoot() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.db.StateRoot()
}

// CopyState returns an independent copy of the world state for executing
// transactions that may be thrown away.
func (l *Ledger) CopyState() *database.Database {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.db.Copy()
}

// Snapshot returns the head of the chain together with a copy of the world
// state it produced, taken under the same lock so the two always agree.
func (l *Ledger) Snapshot() (database.Block, *database.Database) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[len(l.chain)-1], l.db.Copy()
}

// Genesis returns the protocol parameters of the chain.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// =============================================================================

// addBlock performs the work of AddBlock. The caller must hold the lock.
func (l *Ledger) addBlock(block database.Block) error {
	latest := l.chain[len(l.chain)-1]

	l.evHandler("ledger: addBlock: validate: blk[%d]: parent[%d]", block.Header.Number, latest.Header.Number)

	if block.IsGenesis() {
		return ErrGenesisBlock
	}

	if err := block.ValidateBlock(latest, l.evHandler); err != nil {
		return err
	}

	if block.Header.StateRoot != l.db.StateRoot() {
		return fmt.Errorf("%w, got %s, exp %s", ErrStateRoot, block.Header.StateRoot, l.db.StateRoot())
	}

	l.evHandler("ledger: addBlock: execute: blk[%d]: txs[%d]", block.Header.Number, len(block.TransactionSeries))

	db := l.db.Copy()
	if err := database.ApplyTransactionSeries(block.TransactionSeries, db, l.genesis.MiningReward); err != nil {
		return fmt.Errorf("block %d: %w", block.Header.Number, err)
	}

	l.chain = append(l.chain, block)
	l.db = db

	l.evHandler("ledger: addBlock: appended: blk[%d]: stateRoot[%s]", block.Header.Number, db.StateRoot())

	return nil
}
