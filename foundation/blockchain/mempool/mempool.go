// Package mempool maintains the pool of transactions waiting to be mined.
package mempool

import (
	"slices"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Mempool represents a set of transactions keyed by transaction id. The
// order transactions were first added in is preserved, which is the order
// they are offered for the next block.
type Mempool struct {
	mu    sync.RWMutex
	pool  map[string]database.SignedTx
	order []string
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.SignedTx),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Exists reports whether a transaction with the id is in the pool.
func (mp *Mempool) Exists(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Upsert adds or replaces a transaction in the mempool. Adding a transaction
// that already exists keeps its original position.
func (mp *Mempool) Upsert(tx database.SignedTx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID]; !exists {
		mp.order = append(mp.order, tx.ID)
	}
	mp.pool[tx.ID] = tx

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(id string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.delete(id)
}

// ClearBlockTransactions removes every transaction of the series that is in
// the pool. It is called once a block holding the series is admitted.
func (mp *Mempool) ClearBlockTransactions(series []database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, tx := range series {
		mp.delete(tx.ID)
	}
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.SignedTx)
	mp.order = nil
}

// PickBest returns up to howMany transactions in the order they were added.
// Any negative value returns every transaction.
func (mp *Mempool) PickBest(howMany int) []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany < 0 || howMany > len(mp.order) {
		howMany = len(mp.order)
	}

	txs := make([]database.SignedTx, howMany)
	for i, id := range mp.order[:howMany] {
		txs[i] = mp.pool[id]
	}

	return txs
}

// TransactionSeries returns every transaction in the pool in the order they
// were added.
func (mp *Mempool) TransactionSeries() []database.SignedTx {
	return mp.PickBest(-1)
}

// =============================================================================

// delete removes the transaction. The caller must hold the write lock.
func (mp *Mempool) delete(id string) {
	if _, exists := mp.pool[id]; !exists {
		return
	}

	delete(mp.pool, id)
	mp.order = slices.DeleteFunc(mp.order, func(v string) bool {
		return v == id
	})
}
